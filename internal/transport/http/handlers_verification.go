package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"landledger/internal/transport/http/shared"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

type requestVerificationRequest struct {
	DocumentHash string `json:"document_hash"`
}

func (h *Handler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	landID := id.LandID(chi.URLParam(r, "landID"))
	var req requestVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	requestID, err := h.coordinator.RequestNotaryVerification(r.Context(), landID, id.DocumentHash(req.DocumentHash))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"request_id": requestID})
}

type approveVerificationRequest struct {
	Signature string `json:"signature"`
}

func (h *Handler) handleApproveVerification(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseRequestID(w, r)
	if !ok {
		return
	}
	var req approveVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.coordinator.ApproveVerification(r.Context(), requestID, req.Signature); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rejectVerificationRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRejectVerification(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseRequestID(w, r)
	if !ok {
		return
	}
	var req rejectVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.coordinator.RejectVerification(r.Context(), requestID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRequestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	raw := chi.URLParam(r, "requestID")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return 0, false
	}
	return id.RequestID(value), true
}
