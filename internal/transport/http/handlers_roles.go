package httptransport

import (
	"encoding/json"
	"net/http"

	"landledger/internal/transport/http/shared"
	id "landledger/pkg/domain"
	dErrors "landledger/pkg/domain-errors"
)

type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

func (r roleRequest) parse() (id.Role, id.Account, error) {
	role := id.Role(r.Role)
	switch role {
	case id.RoleAdmin, id.RoleNotary, id.RoleVerifier:
	default:
		return "", "", dErrors.New(dErrors.CodeBadRequest, "unknown role")
	}
	if r.Account == "" {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "account is required")
	}
	return role, id.Account(r.Account), nil
}

func (h *Handler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, account, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.coordinator.Access().Grant(r.Context(), role, account); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, account, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.coordinator.Access().Revoke(r.Context(), role, account); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
