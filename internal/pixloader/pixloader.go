// Package pixloader orchestrates the dynamic PIX payment fetch: GET the JWS,
// resolve its signing key (fetching and validating a JWKS on cache miss),
// verify the signature, and decode the resulting payment document.
package pixloader

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/boddenberg/pix-br-code/internal/domain"
	"github.com/boddenberg/pix-br-code/internal/infra/observability"
	"github.com/boddenberg/pix-br-code/internal/infra/resilience"
	"github.com/boddenberg/pix-br-code/internal/jwks"
	"github.com/boddenberg/pix-br-code/internal/jws"
	"github.com/boddenberg/pix-br-code/internal/keystore"
	"github.com/boddenberg/pix-br-code/internal/pixpayment"
)

var tracer = otel.Tracer("pixloader")

var ecPermittedAlgorithms = map[string]bool{"ES256": true, "ES384": true, "ES512": true}
var rsaPermittedAlgorithms = map[string]bool{
	"PS256": true, "PS384": true, "PS512": true,
	"RS256": true, "RS384": true, "RS512": true,
}

// Loader orchestrates fetch → key resolution → verify → decode.
type Loader struct {
	store         *keystore.Store
	resilienceCfg resilience.Config
	jwsBreaker    *gobreaker.CircuitBreaker
	jwksBreaker   *gobreaker.CircuitBreaker
	bulkhead      *resilience.Bulkhead
	fetchGroup    singleflight.Group
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// New builds a Loader. jwsBreaker and jwksBreaker are typically
// resilience.NewCircuitBreaker("jws-source") / ("jwks-source") respectively.
// cfg.MaxConcurrency bounds how many outbound GETs (JWS or JWKS fetches) the
// loader has in flight at once, regardless of how many payments are being
// loaded concurrently.
func New(store *keystore.Store, cfg resilience.Config, jwsBreaker, jwksBreaker *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *Loader {
	return &Loader{
		store:         store,
		resilienceCfg: cfg,
		jwsBreaker:    jwsBreaker,
		jwksBreaker:   jwksBreaker,
		bulkhead:      resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:       metrics,
		logger:        logger,
	}
}

// Load runs the full protocol described in the loader's docstring and
// returns the verified, decoded PIX payment.
func (l *Loader) Load(ctx context.Context, httpClient *http.Client, url string) (*domain.PixPayment, error) {
	ctx, span := tracer.Start(ctx, "Loader.Load")
	defer span.End()
	span.SetAttributes(attribute.String("pix.url", url))

	stageStart := time.Now()
	body, err := l.fetchGET(ctx, httpClient, l.jwsBreaker, url)
	l.recordStage("fetch_jws", stageStart)
	if err != nil {
		l.logger.Error("fetching jws failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}

	header, err := jws.PeekAndValidate(string(body))
	if err != nil {
		l.logger.Error("jws header validation failed", zap.Error(err))
		l.metrics.IncrDecodeError("invalid_jws_header")
		return nil, err
	}
	span.SetAttributes(attribute.String("pix.jku", header.Jku), attribute.String("pix.kid", header.Kid))

	vk, err := l.resolveKey(ctx, httpClient, header)
	if err != nil {
		return nil, err
	}

	if err := CheckValidityWindow(vk.Certificate.NotBefore, vk.Certificate.NotAfter); err != nil {
		return nil, err
	}

	if err := CheckAlgorithmCompatibility(header.Alg, vk.JWK.Kty); err != nil {
		return nil, err
	}

	payload, err := verifySignature(string(body), header.Alg, vk.JWK)
	if err != nil {
		l.metrics.IncrDecodeError("signature_invalid")
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &domain.ErrMalformedTLV{Reason: "payment_payload_not_json"}
	}

	payment, err := pixpayment.Validate(raw)
	if err != nil {
		l.metrics.IncrDecodeError("payment_validation_failed")
		return nil, err
	}
	return payment, nil
}

// resolveKey consults the store; on miss it fetches and validates the JWKS
// at header.Jku, deduplicating concurrent misses for the same jku via
// singleflight so N simultaneous callers trigger exactly one fetch.
func (l *Loader) resolveKey(ctx context.Context, httpClient *http.Client, header *domain.JWSHeader) (domain.ValidatedKey, error) {
	if vk, ok := l.store.Lookup(header); ok {
		l.metrics.IncrKeystoreHit()
		return vk, nil
	}
	l.metrics.IncrKeystoreMiss()

	stageStart := time.Now()
	_, err, _ := l.fetchGroup.Do(header.Jku, func() (any, error) {
		body, err := l.fetchGET(ctx, httpClient, l.jwksBreaker, header.Jku)
		if err != nil {
			return nil, err
		}
		var raw map[string]any
		if jsonErr := json.Unmarshal(body, &raw); jsonErr != nil {
			return nil, &domain.ErrInvalidJWKSContents{}
		}
		doc, err := jwks.Validate(raw)
		if err != nil {
			return nil, err
		}
		if err := l.store.ProcessKeys(doc.Keys, header.Jku); err != nil {
			return nil, err
		}
		return nil, nil
	})
	l.recordStage("fetch_jwks", stageStart)
	if err != nil {
		return domain.ValidatedKey{}, err
	}

	vk, ok := l.store.Lookup(header)
	if !ok {
		return domain.ValidatedKey{}, &domain.ErrKeyNotFound{Jku: header.Jku, Kid: header.Kid, X5T: header.X5T}
	}
	return vk, nil
}

func (l *Loader) fetchGET(ctx context.Context, httpClient *http.Client, breaker *gobreaker.CircuitBreaker, url string) ([]byte, error) {
	if err := l.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.bulkhead.Release()

	var body []byte
	err := resilience.RetryWithBackoff(ctx, l.resilienceCfg, func() error {
		result, breakerErr := breaker.Execute(func() (any, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return nil, &domain.ErrExternalService{Service: url, Err: err}
			}
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, &domain.ErrExternalService{Service: url, Err: err}
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, &domain.ErrHTTPStatus{URL: url, Status: resp.StatusCode}
			}
			return data, nil
		})
		if breakerErr != nil {
			return breakerErr
		}
		body = result.([]byte)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (l *Loader) recordStage(stage string, start time.Time) {
	l.metrics.RecordLoaderStageDuration(stage, time.Since(start))
}

// CheckValidityWindow reports whether now falls within [notBefore, notAfter].
func CheckValidityWindow(notBefore, notAfter time.Time) error {
	now := time.Now().UTC()
	if now.Before(notBefore.UTC()) {
		return &domain.ErrCertificateNotYetValid{}
	}
	if now.After(notAfter.UTC()) {
		return &domain.ErrCertificateExpired{}
	}
	return nil
}

// CheckAlgorithmCompatibility reports whether a JWS alg header is a
// permitted signing algorithm for a key of the given JWK key type.
func CheckAlgorithmCompatibility(alg, kty string) error {
	switch kty {
	case "EC":
		if !ecPermittedAlgorithms[alg] {
			return &domain.ErrInvalidSigningAlgorithm{Alg: alg, KeyType: kty}
		}
	case "RSA":
		if !rsaPermittedAlgorithms[alg] {
			return &domain.ErrInvalidSigningAlgorithm{Alg: alg, KeyType: kty}
		}
	default:
		return &domain.ErrInvalidSigningAlgorithm{Alg: alg, KeyType: kty}
	}
	return nil
}

// verifySignature constructs a public key from the declared JWK parameters
// and verifies the compact JWS, pinning the keyfunc's accepted method to
// exactly header.Alg so a token signed with a different algorithm than the
// one the caller resolved a key for is rejected outright.
func verifySignature(compact, alg string, declared domain.DeclaredKey) ([]byte, error) {
	pub, err := publicKeyFrom(declared)
	if err != nil {
		return nil, &domain.ErrSignatureInvalid{Err: err}
	}

	claims := jwt.MapClaims{}
	token, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseWithClaims(compact, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != alg {
			return nil, fmt.Errorf("algorithm confusion: token uses %s, expected %s", t.Method.Alg(), alg)
		}
		return pub, nil
	})
	if err != nil || !token.Valid {
		return nil, &domain.ErrSignatureInvalid{Err: err}
	}

	return json.Marshal(claims)
}

func publicKeyFrom(declared domain.DeclaredKey) (any, error) {
	switch declared.Kty {
	case "RSA":
		nBytes, err := base64.RawURLEncoding.DecodeString(declared.N)
		if err != nil {
			return nil, fmt.Errorf("decoding modulus: %w", err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(declared.E)
		if err != nil {
			return nil, fmt.Errorf("decoding exponent: %w", err)
		}
		e := new(big.Int).SetBytes(eBytes).Int64()
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e)}, nil
	case "EC":
		curve, err := curveFor(declared.Crv)
		if err != nil {
			return nil, err
		}
		xBytes, err := base64.RawURLEncoding.DecodeString(declared.X)
		if err != nil {
			return nil, fmt.Errorf("decoding x: %w", err)
		}
		yBytes, err := base64.RawURLEncoding.DecodeString(declared.Y)
		if err != nil {
			return nil, fmt.Errorf("decoding y: %w", err)
		}
		return &ecdsa.PublicKey{
			Curve: curve,
			X:     new(big.Int).SetBytes(xBytes),
			Y:     new(big.Int).SetBytes(yBytes),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported key type %q", declared.Kty)
	}
}

func curveFor(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported EC curve %q", crv)
	}
}
