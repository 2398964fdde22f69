package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"landledger/internal/ledger"
	"landledger/internal/transport/http/shared"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

type registerLandRequest struct {
	LandID      string `json:"land_id"`
	Title       string `json:"title"`
	Area        uint64 `json:"area"`
	Address     string `json:"address"`
	Coordinates string `json:"coordinates"`
	Description string `json:"description"`
}

func (h *Handler) handleRegisterLand(w http.ResponseWriter, r *http.Request) {
	var req registerLandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	parcel, err := h.coordinator.RegisterLand(r.Context(), ledger.Metadata{
		LandID:      id.LandID(req.LandID),
		Title:       req.Title,
		Area:        req.Area,
		Address:     req.Address,
		Coordinates: req.Coordinates,
		Description: req.Description,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, parcel)
}

func (h *Handler) handleGetParcel(w http.ResponseWriter, r *http.Request) {
	landID := id.LandID(chi.URLParam(r, "landID"))
	parcel, err := h.coordinator.GetParcel(r.Context(), landID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, parcel)
}

func (h *Handler) handleListParcels(w http.ResponseWriter, r *http.Request) {
	owner := id.Account(r.URL.Query().Get("owner"))
	if owner.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "owner query parameter is required"))
		return
	}
	parcels, err := h.coordinator.ParcelsByOwner(r.Context(), owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"parcels": parcels})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := h.coordinator.TotalParcels(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"total_parcels": total,
		"held_balance":  h.coordinator.Escrow().HeldBalance(),
	})
}

type createCertificateRequest struct {
	URI string `json:"uri"`
}

func (h *Handler) handleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	landID := id.LandID(chi.URLParam(r, "landID"))
	var req createCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	certificateID, err := h.coordinator.CreateCertificate(r.Context(), landID, req.URI)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"certificate_id": certificateID})
}
