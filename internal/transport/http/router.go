// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the coordinator, and encode; business rules live in the domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"landledger/internal/platform/metrics"
	"landledger/internal/platform/middleware"
	"landledger/internal/registry"
)

// Handler carries the dependencies the route handlers need.
type Handler struct {
	logger      *slog.Logger
	coordinator *registry.Coordinator
	metrics     *metrics.Metrics
	validator   middleware.TokenValidator
}

func NewHandler(coordinator *registry.Coordinator, validator middleware.TokenValidator, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:      logger,
		coordinator: coordinator,
		metrics:     m,
		validator:   validator,
	}
}

// NewRouter wires all endpoints. Everything except health and metrics sits
// behind bearer authentication.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Latency(h.metrics))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/land", h.handleRegisterLand)
		r.Get("/land", h.handleListParcels)
		r.Get("/land/stats", h.handleStats)
		r.Get("/land/{landID}", h.handleGetParcel)
		r.Post("/land/{landID}/verification", h.handleRequestVerification)
		r.Post("/land/{landID}/proofs", h.handleSubmitProof)
		r.Post("/land/{landID}/certificate", h.handleCreateCertificate)

		r.Post("/verifications/{requestID}/approve", h.handleApproveVerification)
		r.Post("/verifications/{requestID}/reject", h.handleRejectVerification)

		r.Post("/proofs/{proofHash}/verify", h.handleVerifyProof)

		r.Post("/transfers", h.handleRequestTransfer)
		r.Get("/transfers/{transferID}", h.handleGetTransfer)
		r.Post("/transfers/{transferID}/fund", h.handleFundEscrow)
		r.Post("/transfers/{transferID}/approve", h.handleApproveTransfer)
		r.Post("/transfers/{transferID}/complete", h.handleCompleteTransfer)
		r.Post("/transfers/{transferID}/cancel", h.handleCancelTransfer)

		r.Post("/roles/grant", h.handleGrantRole)
		r.Post("/roles/revoke", h.handleRevokeRole)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
