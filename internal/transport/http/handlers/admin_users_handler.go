package handlers

import (
	"net/http"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	userssvc "github.com/kirosamy12/otrade-backend/internal/services/users"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

type AdminUsersHandler struct {
	users *userssvc.Service
}

func NewAdminUsersHandler(users *userssvc.Service) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

func (h *AdminUsersHandler) Entitlements(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	userID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "user not found")
		return
	}

	ent, err := h.users.Entitlements(r.Context(), userID)
	if err != nil {
		handleUsersError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementsResponseFrom(ent))
}

// AssignSubscription grants a subscription directly, bypassing payment.
func (h *AdminUsersHandler) AssignSubscription(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	userID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "user not found")
		return
	}

	var req dto.AssignSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	planID, ok := parseBodyUUID(req.PlanID)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid plan id")
		return
	}

	duration, ok := enums.ParseSubscriptionDuration(req.SubscriptionType)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown subscription type")
		return
	}

	ent, err := h.users.AssignSubscription(r.Context(), userID, planID, duration)
	if err != nil {
		handleUsersError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementsResponseFrom(ent))
}
