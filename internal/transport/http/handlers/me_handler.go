package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	userssvc "github.com/kirosamy12/otrade-backend/internal/services/users"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

type MeHandler struct {
	users *userssvc.Service
}

func NewMeHandler(users *userssvc.Service) *MeHandler {
	return &MeHandler{users: users}
}

func (h *MeHandler) Entitlements(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeInternal(w, "USERS_SERVICE_UNAVAILABLE", "users service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	subjectID, err := uuid.Parse(identity.SubjectID)
	if err != nil {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	ent, err := h.users.Entitlements(r.Context(), subjectID)
	if err != nil {
		handleUsersError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementsResponseFrom(ent))
}

func handleUsersError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userssvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "user not found")
	case errors.Is(err, userssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, userssvc.ErrPlanGone):
		writeBadRequest(w, "PLAN_UNAVAILABLE", "referenced plan no longer exists")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
