// Package jws parses and validates the protected header of a compact
// JWS, without touching the signature. Signature verification belongs to
// pixloader, once a key has been resolved.
package jws

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boddenberg/pix-br-code/internal/domain"
)

var rejectedAlgorithms = map[string]bool{
	"none":   true,
	"HS256":  true,
	"HS384":  true,
	"HS512":  true,
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// PeekHeader decodes a compact JWS's protected header without verifying its
// signature, reusing jwt/v5's own base64url segment decoding (ParseUnverified
// stops short of signature checking and hands back the raw header map).
func PeekHeader(compact string) (map[string]any, error) {
	token, _, err := parser.ParseUnverified(compact, jwt.MapClaims{})
	if err != nil {
		return nil, &domain.ErrMalformedTLV{Reason: fmt.Sprintf("malformed_jws: %v", err)}
	}
	return token.Header, nil
}

// Validate casts a decoded protected header into a domain.JWSHeader,
// enforcing the algorithm whitelist and the https jku scheme.
func Validate(raw map[string]any) (*domain.JWSHeader, error) {
	v := &validator{}
	h := &domain.JWSHeader{}

	h.Alg, _ = raw["alg"].(string)
	if h.Alg == "" {
		v.fail("alg", "is required")
	} else if len(h.Alg) != 5 {
		v.fail("alg", "must have length 5")
	} else if rejectedAlgorithms[h.Alg] {
		v.fail("alg", fmt.Sprintf("%q is not a permitted signing algorithm", h.Alg))
	}

	h.Kid, _ = raw["kid"].(string)
	if h.Kid == "" {
		v.fail("kid", "is required")
	}

	h.X5T, _ = raw["x5t"].(string)
	if h.X5T == "" {
		v.fail("x5t", "is required")
	}

	jku, _ := raw["jku"].(string)
	if jku == "" {
		v.fail("jku", "is required")
	} else {
		h.Jku = normalizeJku(jku)
		u, err := url.Parse(h.Jku)
		if err != nil {
			v.fail("jku", "must parse as a valid URL")
		} else if !strings.EqualFold(u.Scheme, "https") {
			v.fail("jku", "scheme must be https")
		}
	}

	if len(v.errs) > 0 {
		return nil, &domain.ErrValidationSet{Schema: "JWSHeader", Errors: v.errs}
	}
	return h, nil
}

// PeekAndValidate combines PeekHeader and Validate, the call pixloader uses.
func PeekAndValidate(compact string) (*domain.JWSHeader, error) {
	raw, err := PeekHeader(compact)
	if err != nil {
		return nil, err
	}
	return Validate(raw)
}

func normalizeJku(jku string) string {
	if strings.Contains(jku, "://") {
		return jku
	}
	return "https://" + jku
}

type validator struct {
	errs []*domain.ErrValidation
}

func (v *validator) fail(field, message string) {
	v.errs = append(v.errs, &domain.ErrValidation{Field: field, Message: message})
}
