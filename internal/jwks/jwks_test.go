package jwks_test

import (
	"testing"

	"github.com/boddenberg/pix-br-code/internal/domain"
	"github.com/boddenberg/pix-br-code/internal/jwks"
)

func validRSAKey() map[string]any {
	return map[string]any{
		"kty":     "RSA",
		"kid":     "key-1",
		"x5t":     "abc123",
		"x5c":     []any{"cert-root", "cert-leaf"},
		"key_ops": []any{"verify"},
		"alg":     "RS256",
		"n":       "modulus",
		"e":       "AQAB",
	}
}

func TestValidate_RejectsEmptyKeys(t *testing.T) {
	_, err := jwks.Validate(map[string]any{"keys": []any{}})
	if err == nil {
		t.Fatal("expected error for empty keys array")
	}
}

func TestValidate_AcceptsValidRSAKey(t *testing.T) {
	doc, err := jwks.Validate(map[string]any{"keys": []any{validRSAKey()}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Keys) != 1 || doc.Keys[0].Kty != "RSA" {
		t.Fatalf("unexpected keys: %+v", doc.Keys)
	}
}

func TestValidate_RejectsUnknownKty(t *testing.T) {
	k := validRSAKey()
	k["kty"] = "oct"
	_, err := jwks.Validate(map[string]any{"keys": []any{k}})
	if err == nil {
		t.Fatal("expected error for unsupported kty")
	}
}

func TestValidate_RejectsMissingECParams(t *testing.T) {
	k := map[string]any{
		"kty":     "EC",
		"kid":     "key-2",
		"x5t":     "abc123",
		"x5c":     []any{"cert-root", "cert-leaf"},
		"key_ops": []any{"verify"},
	}
	_, err := jwks.Validate(map[string]any{"keys": []any{k}})
	if err == nil {
		t.Fatal("expected error for EC key missing crv/x/y")
	}
}

func TestValidate_RejectsHMACAlg(t *testing.T) {
	k := validRSAKey()
	k["alg"] = "HS256"
	_, err := jwks.Validate(map[string]any{"keys": []any{k}})
	if err == nil {
		t.Fatal("expected error for HS256 alg")
	}
}

func TestValidate_RejectsEmptyX5C(t *testing.T) {
	k := validRSAKey()
	k["x5c"] = []any{}
	_, err := jwks.Validate(map[string]any{"keys": []any{k}})
	if err == nil {
		t.Fatal("expected error for empty x5c")
	}
}

func TestDeclaredKeyOf_RSA(t *testing.T) {
	dk := jwks.DeclaredKeyOf(domain.JWK{Kty: "RSA", N: "n", E: "e"})
	if dk.Kty != "RSA" || dk.N != "n" || dk.E != "e" {
		t.Errorf("unexpected declared key: %+v", dk)
	}
}
