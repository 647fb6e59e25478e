// Package jwks validates a JSON Web Key Set document (RFC 7517) before any
// individual key is handed to the keystore for certificate-chain validation.
package jwks

import (
	"fmt"

	"github.com/boddenberg/pix-br-code/internal/domain"
)

// supportedAlgorithms mirrors the non-HMAC, non-none algorithms this
// pipeline can eventually verify a signature with (RS/PS/ES 256/384/512).
var supportedAlgorithms = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

var supportedKeyOps = map[string]bool{"verify": true}

// Validate casts a decoded JSON object into a domain.JWKS, enforcing the
// top-level and per-key invariants from the key-set schema.
func Validate(raw map[string]any) (*domain.JWKS, error) {
	v := &validator{}

	rawKeys, _ := raw["keys"].([]any)
	if len(rawKeys) == 0 {
		return nil, &domain.ErrValidationSet{
			Schema: "JWKS",
			Errors: []*domain.ErrValidation{{Field: "keys", Message: "must be a non-empty array"}},
		}
	}

	keys := make([]domain.JWK, 0, len(rawKeys))
	for i, rk := range rawKeys {
		km, ok := rk.(map[string]any)
		if !ok {
			v.fail(fmt.Sprintf("keys[%d]", i), "must be an object")
			continue
		}
		keys = append(keys, validateKey(km, i, v))
	}

	if len(v.errs) > 0 {
		return nil, &domain.ErrValidationSet{Schema: "JWKS", Errors: v.errs}
	}
	return &domain.JWKS{Keys: keys}, nil
}

func validateKey(km map[string]any, i int, v *validator) domain.JWK {
	prefix := fmt.Sprintf("keys[%d]", i)
	k := domain.JWK{}

	k.Kty, _ = km["kty"].(string)
	if k.Kty != "EC" && k.Kty != "RSA" {
		v.fail(prefix+".kty", `must be "EC" or "RSA"`)
	}

	k.Kid, _ = km["kid"].(string)
	if k.Kid == "" {
		v.fail(prefix+".kid", "is required")
	}

	k.X5T, _ = km["x5t"].(string)
	if k.X5T == "" {
		v.fail(prefix+".x5t", "is required")
	}

	k.X5C = stringSlice(km["x5c"])
	if len(k.X5C) == 0 {
		v.fail(prefix+".x5c", "must be a non-empty array")
	}

	if _, ok := km["key_ops"].([]any); !ok {
		v.fail(prefix+".key_ops", "is required")
	}
	k.KeyOps = stringSlice(km["key_ops"])
	for _, op := range k.KeyOps {
		if !supportedKeyOps[op] {
			v.fail(prefix+".key_ops", fmt.Sprintf("unsupported operation %q", op))
		}
	}

	k.Use, _ = km["use"].(string)
	k.Alg, _ = km["alg"].(string)
	if k.Alg != "" && !supportedAlgorithms[k.Alg] {
		v.fail(prefix+".alg", fmt.Sprintf("%q is not a supported signing algorithm", k.Alg))
	}
	k.X5TS256, _ = km["x5t#S256"].(string)
	k.X5U, _ = km["x5u"].(string)

	switch k.Kty {
	case "RSA":
		k.N, _ = km["n"].(string)
		k.E, _ = km["e"].(string)
		if k.N == "" || k.E == "" {
			v.fail(prefix, "RSA keys require n and e")
		}
	case "EC":
		k.Crv, _ = km["crv"].(string)
		k.X, _ = km["x"].(string)
		k.Y, _ = km["y"].(string)
		if k.Crv == "" || k.X == "" || k.Y == "" {
			v.fail(prefix, "EC keys require crv, x and y")
		}
	}

	return k
}

func stringSlice(raw any) []string {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// DeclaredKeyOf extracts the per-kty algebraic parameters from a validated
// JWK, i.e. the spec's "K_declared".
func DeclaredKeyOf(k domain.JWK) domain.DeclaredKey {
	switch k.Kty {
	case "RSA":
		return domain.DeclaredKey{Kty: "RSA", N: k.N, E: k.E}
	case "EC":
		return domain.DeclaredKey{Kty: "EC", Crv: k.Crv, X: k.X, Y: k.Y}
	default:
		return domain.DeclaredKey{Kty: k.Kty}
	}
}

type validator struct {
	errs []*domain.ErrValidation
}

func (v *validator) fail(field, message string) {
	v.errs = append(v.errs, &domain.ErrValidation{Field: field, Message: message})
}
