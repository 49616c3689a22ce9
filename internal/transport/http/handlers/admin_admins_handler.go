package handlers

import (
	"errors"
	"net/http"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	authsvc "github.com/kirosamy12/otrade-backend/internal/services/auth"
	"github.com/kirosamy12/otrade-backend/internal/services/permissions"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

// AdminAdminsHandler manages administrator accounts and their grants.
// Every operation here is super-admin only; the service enforces that
// even if routing changes.
type AdminAdminsHandler struct {
	permissions *permissions.Service
}

func NewAdminAdminsHandler(perms *permissions.Service) *AdminAdminsHandler {
	return &AdminAdminsHandler{permissions: perms}
}

func (h *AdminAdminsHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	modules := make(map[string][]string)
	for _, entry := range permissions.Catalog() {
		actions := make([]string, 0, len(entry.Actions))
		for _, action := range entry.Actions {
			actions = append(actions, string(action))
		}
		modules[entry.Module] = actions
	}

	httperrors.Write(w, http.StatusOK, dto.PermissionCatalogResponse{Modules: modules})
}

func (h *AdminAdminsHandler) List(w http.ResponseWriter, r *http.Request) {
	role, ok := h.actorRole(w, r)
	if !ok {
		return
	}

	views, err := h.permissions.ListAdmins(r.Context(), role)
	if err != nil {
		handlePermissionsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminListFromViews(views))
}

func (h *AdminAdminsHandler) Create(w http.ResponseWriter, r *http.Request) {
	role, ok := h.actorRole(w, r)
	if !ok {
		return
	}

	var req dto.CreateAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	view, err := h.permissions.CreateAdmin(r.Context(), role, req.Email, req.Password, req.Name, req.Grants)
	if err != nil {
		handlePermissionsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AdminResponseFrom(view))
}

func (h *AdminAdminsHandler) UpdateGrants(w http.ResponseWriter, r *http.Request) {
	role, ok := h.actorRole(w, r)
	if !ok {
		return
	}

	adminID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "admin not found")
		return
	}

	var req dto.UpdateGrantsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	view, err := h.permissions.UpdateAdminGrants(r.Context(), role, adminID, req.Grants)
	if err != nil {
		handlePermissionsError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminResponseFrom(view))
}

func (h *AdminAdminsHandler) actorRole(w http.ResponseWriter, r *http.Request) (enums.Role, bool) {
	if h.permissions == nil {
		writeInternal(w, "PERMISSIONS_SERVICE_UNAVAILABLE", "permissions service is unavailable")
		return "", false
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return "", false
	}
	return enums.Role(identity.Role), true
}

func handlePermissionsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, permissions.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "super admin role required")
	case errors.Is(err, permissions.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, permissions.ErrAdminNotFound):
		writeNotFound(w, "NOT_FOUND", "admin not found")
	case errors.Is(err, permissions.ErrEmailTaken):
		writeConflict(w, "EMAIL_TAKEN", "email is already registered")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
