package domain

import "crypto/x509"

// JWK is a single entry of a JWKS document (RFC 7517), restricted to the
// fields this pipeline understands: EC and RSA public keys carrying an x5c
// certificate chain.
type JWK struct {
	Kty      string   `json:"kty"`
	Kid      string   `json:"kid"`
	X5T      string   `json:"x5t"`
	X5C      []string `json:"x5c"`
	KeyOps   []string `json:"key_ops"`
	Use      string   `json:"use,omitempty"`
	Alg      string   `json:"alg,omitempty"`
	X5TS256  string   `json:"x5t#S256,omitempty"`
	X5U      string   `json:"x5u,omitempty"`
	N        string   `json:"n,omitempty"`
	E        string   `json:"e,omitempty"`
	Crv      string   `json:"crv,omitempty"`
	X        string   `json:"x,omitempty"`
	Y        string   `json:"y,omitempty"`
}

// JWKS is a JSON Web Key Set document (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// DeclaredKey holds the per-kty algebraic parameters a JWK carries,
// independent of any certificate — this is "K_declared" in the spec, and is
// compared structurally against the leaf certificate's public key.
type DeclaredKey struct {
	Kty string
	// RSA
	N, E string
	// EC
	Crv, X, Y string
}

// Equal reports whether two DeclaredKeys carry identical algebraic
// parameters. Used to bind a JWKS-declared key to the key embedded in its
// own x5c leaf certificate (spec step 5, "key-consistency binding").
func (k DeclaredKey) Equal(o DeclaredKey) bool {
	if k.Kty != o.Kty {
		return false
	}
	switch k.Kty {
	case "RSA":
		return k.N == o.N && k.E == o.E
	case "EC":
		return k.Crv == o.Crv && k.X == o.X && k.Y == o.Y
	default:
		return false
	}
}

// ValidatedKey is the unit of storage in the keystore: a declared JWK bound
// to the leaf certificate that vouches for it, plus the raw JWK record for
// diagnostics.
type ValidatedKey struct {
	JWK         DeclaredKey
	Certificate *x509.Certificate
	Raw         JWK
}
