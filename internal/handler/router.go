// Package handler exposes the BR Code decoder and PIX loader over HTTP: a
// small demo API plus the operational endpoints (healthz/readyz/metrics).
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pix-br-code/internal/brcode"
	"github.com/boddenberg/pix-br-code/internal/domain"
	"github.com/boddenberg/pix-br-code/internal/infra/observability"
	"github.com/boddenberg/pix-br-code/internal/pixloader"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(loader *pixloader.Loader, httpClient *http.Client, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Post("/brcode/decode", decodeBRCodeHandler(metrics, logger))
		r.Post("/pix/load", loadPixHandler(loader, httpClient, metrics, logger))
	})

	return r
}

// ============================================================
// BR Code decode
// ============================================================

type decodeResponse struct {
	BRCode *domain.BRCode `json:"brcode"`
}

func decodeBRCodeHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/brcode/decode")
		defer span.End()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}

		opts := brcode.Options{StrictValidation: r.URL.Query().Get("strict") == "true"}

		start := time.Now()
		code, err := brcode.DecodeTo(string(body), opts)
		metrics.RecordDecodeDuration("brcode", time.Since(start))
		if err != nil {
			metrics.IncrDecodeError(classifyDecodeError(err))
			metrics.IncrRequest("4xx")
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("brcode.type", string(code.Type)))
		metrics.IncrRequest("2xx")
		writeJSON(w, http.StatusOK, decodeResponse{BRCode: code})
	}
}

func classifyDecodeError(err error) string {
	var crc *domain.ErrCRC
	var tlv *domain.ErrMalformedTLV
	var unknown *domain.ErrUnknownKey
	var valset *domain.ErrValidationSet
	switch {
	case errors.As(err, &crc):
		return "invalid_crc"
	case errors.As(err, &tlv):
		return "malformed_tlv"
	case errors.As(err, &unknown):
		return "unknown_key"
	case errors.As(err, &valset):
		return "validation_failed"
	default:
		return "unknown"
	}
}

// ============================================================
// Dynamic PIX load
// ============================================================

type loadPixRequest struct {
	URL string `json:"url"`
}

type loadPixResponse struct {
	RequestID string             `json:"request_id"`
	Payment   *domain.PixPayment `json:"payment"`
}

// loadPixHandler assigns each call a request-scoped id before it ever
// touches the keystore: a cache miss inside loader.Load mutates shared
// state (it installs a fresh key batch for the jku), so every attempt that
// triggers one gets a correlation id carried through logs and the span,
// the same way the teacher stamps an IdempotencyKey on each outbound
// state-changing call.
func loadPixHandler(loader *pixloader.Loader, httpClient *http.Client, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pix/load")
		defer span.End()

		requestID := uuid.New().String()

		var req loadPixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}
		span.SetAttributes(attribute.String("pix.url", req.URL), attribute.String("pix.request_id", requestID))
		logger.Info("loading pix payment", zap.String("request_id", requestID), zap.String("url", req.URL))

		payment, err := loader.Load(ctx, httpClient, req.URL)
		if err != nil {
			metrics.IncrRequest("4xx")
			handleServiceError(w, err, logger)
			return
		}

		metrics.IncrRequest("2xx")
		writeJSON(w, http.StatusOK, loadPixResponse{RequestID: requestID, Payment: payment})
	}
}

// ============================================================
// Probes
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// ============================================================
// Helpers
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps this service's error taxonomy onto HTTP status
// codes, logging at a level appropriate to each failure's severity.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var valset *domain.ErrValidationSet
	var validation *domain.ErrValidation
	var crc *domain.ErrCRC
	var tlv *domain.ErrMalformedTLV
	var unknownKey *domain.ErrUnknownKey
	var documentChecksum *domain.ErrDocumentChecksum
	var keyTrust *domain.ErrKeyTrust
	var keyNotFound *domain.ErrKeyNotFound
	var notYetValid *domain.ErrCertificateNotYetValid
	var expired *domain.ErrCertificateExpired
	var invalidAlg *domain.ErrInvalidSigningAlgorithm
	var sigInvalid *domain.ErrSignatureInvalid
	var invalidJWKS *domain.ErrInvalidJWKSContents
	var httpStatus *domain.ErrHTTPStatus
	var externalService *domain.ErrExternalService
	var circuitOpen *domain.ErrCircuitOpen

	switch {
	case errors.As(err, &valset):
		logger.Debug("validation error", zap.String("schema", valset.Schema), zap.Int("errors", len(valset.Errors)))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &crc):
		logger.Debug("crc mismatch", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tlv):
		logger.Debug("malformed tlv", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unknownKey):
		logger.Debug("unknown key", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &documentChecksum):
		logger.Debug("document checksum mismatch", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidJWKS):
		logger.Warn("invalid jwks contents", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &keyTrust):
		logger.Warn("key trust validation failed", zap.String("reason", keyTrust.Reason))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &keyNotFound):
		logger.Warn("key not found", zap.String("jku", keyNotFound.Jku), zap.String("kid", keyNotFound.Kid))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &notYetValid):
		logger.Warn("certificate not yet valid")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &expired):
		logger.Warn("certificate expired")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &invalidAlg):
		logger.Warn("invalid signing algorithm", zap.String("alg", invalidAlg.Alg), zap.String("key_type", invalidAlg.KeyType))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &sigInvalid):
		logger.Warn("signature invalid", zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &httpStatus):
		logger.Error("upstream returned non-2xx", zap.Int("status", httpStatus.Status), zap.String("url", httpStatus.URL))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &externalService):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
