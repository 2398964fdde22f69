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

type requestTransferRequest struct {
	LandID string `json:"land_id"`
	Buyer  string `json:"buyer"`
	Price  uint64 `json:"price"`
	Notes  string `json:"notes"`
}

func (h *Handler) handleRequestTransfer(w http.ResponseWriter, r *http.Request) {
	var req requestTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	transferID, err := h.coordinator.RequestTransfer(r.Context(), id.LandID(req.LandID), id.Account(req.Buyer), req.Price, req.Notes)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"transfer_id": transferID})
}

func (h *Handler) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := parseTransferID(w, r)
	if !ok {
		return
	}
	transfer, err := h.coordinator.Escrow().Get(r.Context(), transferID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transfer)
}

type fundEscrowRequest struct {
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleFundEscrow(w http.ResponseWriter, r *http.Request) {
	transferID, ok := parseTransferID(w, r)
	if !ok {
		return
	}
	var req fundEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.coordinator.Escrow().FundEscrow(r.Context(), transferID, req.Amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := parseTransferID(w, r)
	if !ok {
		return
	}
	if err := h.coordinator.Escrow().ApproveTransfer(r.Context(), transferID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := parseTransferID(w, r)
	if !ok {
		return
	}
	if err := h.coordinator.CompleteTransfer(r.Context(), transferID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cancelTransferRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := parseTransferID(w, r)
	if !ok {
		return
	}
	var req cancelTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.coordinator.Escrow().CancelTransfer(r.Context(), transferID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTransferID(w http.ResponseWriter, r *http.Request) (id.TransferID, bool) {
	raw := chi.URLParam(r, "transferID")
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid transfer id"))
		return 0, false
	}
	return id.TransferID(value), true
}
