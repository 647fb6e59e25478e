// Package keystore holds the process-wide, read-mostly table of validated
// signing keys, keyed by (jku, x5t, kid). Keys only ever enter the table
// through ProcessKeys, after the full certificate-chain and binding pipeline
// below has run; there is no TTL-based eviction, matching the read-mostly,
// never-implicitly-removed lifecycle the payment-verification flow expects.
package keystore

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/url"
	"sync"

	"github.com/boddenberg/pix-br-code/internal/domain"
	"github.com/boddenberg/pix-br-code/internal/jwks"
)

// Store mirrors the teacher's generic in-memory cache idiom — a RWMutex
// guarding a plain map — keyed by the full (jku, x5t, kid) triple and with
// no expiry.
type Store struct {
	mu   sync.RWMutex
	data map[domain.KeyID]domain.ValidatedKey
}

func New() *Store {
	return &Store{data: make(map[domain.KeyID]domain.ValidatedKey)}
}

// Lookup finds the ValidatedKey addressed by a JWS header's (jku, x5t, kid).
func (s *Store) Lookup(header *domain.JWSHeader) (domain.ValidatedKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vk, ok := s.data[domain.KeyID{Jku: header.Jku, X5T: header.X5T, Kid: header.Kid}]
	return vk, ok
}

// ProcessKeys validates every key in a freshly fetched JWKS against its own
// x5c chain and the jku it was fetched from, then atomically replaces the
// store's entries for that jku. It aborts on the first failing key — the
// batch either installs completely or not at all.
func (s *Store) ProcessKeys(keys []domain.JWK, jku string) error {
	authority, err := jkuAuthority(jku)
	if err != nil {
		return err
	}

	fresh := make(map[domain.KeyID]domain.ValidatedKey, len(keys))
	for _, k := range keys {
		vk, err := processOne(k, authority)
		if err != nil {
			return err
		}
		fresh[domain.KeyID{Jku: jku, X5T: k.X5T, Kid: k.Kid}] = vk
	}

	s.mu.Lock()
	for id := range s.data {
		if id.Jku == jku {
			delete(s.data, id)
		}
	}
	for id, vk := range fresh {
		s.data[id] = vk
	}
	s.mu.Unlock()
	return nil
}

// jkuAuthority derives the binding authority from a jku URL: userinfo (if
// present), host, and port — the full authority component, not just Host,
// since Go's url.URL.Host excludes userinfo.
func jkuAuthority(jku string) (string, error) {
	u, err := url.Parse(jku)
	if err != nil {
		return "", &domain.ErrValidation{Field: "jku", Message: "must parse as a valid URL"}
	}
	if u.User != nil {
		return u.User.String() + "@" + u.Host, nil
	}
	return u.Host, nil
}

func processOne(k domain.JWK, authority string) (domain.ValidatedKey, error) {
	declared := jwks.DeclaredKeyOf(k)

	if len(k.X5C) < 2 {
		return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonX5CTooShort}
	}

	chain := make([]*x509.Certificate, len(k.X5C))
	for i, b64 := range k.X5C {
		der, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonInvalidCertEncoding}
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonInvalidCertEncoding}
		}
		chain[i] = cert
	}

	// x5c is leaf-first; reverse so the last element is the trust anchor.
	reversed := make([]*x509.Certificate, len(chain))
	for i, c := range chain {
		reversed[len(chain)-1-i] = c
	}
	root := reversed[0]
	leaf := reversed[len(reversed)-1]
	intermediates := x509.NewCertPool()
	for _, c := range reversed[1 : len(reversed)-1] {
		intermediates.AddCert(c)
	}
	roots := x509.NewCertPool()
	roots.AddCert(root)

	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonPathValidationFailed}
	}

	thumbprint := sha1Thumbprint(leaf.Raw)
	if thumbprint != k.X5T {
		return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonThumbprintMismatch}
	}

	if !subjectMatchesAuthority(leaf, authority) {
		return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonSubjectAuthorityMiss}
	}

	chainKey, err := declaredKeyFromCertificate(leaf)
	if err != nil {
		return domain.ValidatedKey{}, err
	}
	if !declared.Equal(chainKey) {
		return domain.ValidatedKey{}, &domain.ErrKeyTrust{Reason: domain.ReasonDeclaredKeyMismatch}
	}

	return domain.ValidatedKey{JWK: declared, Certificate: leaf, Raw: k}, nil
}

func sha1Thumbprint(der []byte) string {
	sum := sha1.Sum(der)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// subjectMatchesAuthority is a security boundary, not a convenience check:
// it must match the jku authority against the leaf certificate exactly, with
// no case-folding.
func subjectMatchesAuthority(cert *x509.Certificate, authority string) bool {
	if cert.Subject.CommonName == authority {
		return true
	}
	for _, dns := range cert.DNSNames {
		if dns == authority {
			return true
		}
	}
	return false
}

// declaredKeyFromCertificate extracts "K_chain": the algebraic key
// parameters embedded in the leaf certificate's own public key, in the same
// shape as a JWKS-declared key, so the two can be compared structurally.
func declaredKeyFromCertificate(cert *x509.Certificate) (domain.DeclaredKey, error) {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return domain.DeclaredKey{
			Kty: "RSA",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   encodeRSAExponent(pub.E),
		}, nil
	case *ecdsa.PublicKey:
		byteLen := (pub.Curve.Params().BitSize + 7) / 8
		return domain.DeclaredKey{
			Kty: "EC",
			Crv: pub.Curve.Params().Name,
			X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, byteLen))),
			Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, byteLen))),
		}, nil
	default:
		return domain.DeclaredKey{}, fmt.Errorf("unsupported certificate public key type %T", pub)
	}
}

// encodeRSAExponent renders an RSA public exponent as base64url, matching
// the JWK "e" member's encoding: big-endian, minimal length, no padding.
func encodeRSAExponent(e int) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(e))
	i := 0
	for i < len(buf)-1 && buf[i] == 0 {
		i++
	}
	return base64.RawURLEncoding.EncodeToString(buf[i:])
}
