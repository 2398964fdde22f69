package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landledger/internal/transport/http/shared"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

type submitProofRequest struct {
	ProofHash string `json:"proof_hash"`
}

func (h *Handler) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	landID := id.LandID(chi.URLParam(r, "landID"))
	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	hash, err := h.coordinator.SubmitProof(r.Context(), landID, id.ProofHash(req.ProofHash))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"proof_hash": hash})
}

type verifyProofRequest struct {
	Valid bool `json:"valid"`
}

func (h *Handler) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	hash := id.ProofHash(chi.URLParam(r, "proofHash"))
	var req verifyProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.coordinator.Proofs().VerifyProof(r.Context(), hash, req.Valid); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
