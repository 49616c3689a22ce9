package handlers

import (
	"errors"
	"net/http"

	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

// PlansHandler serves the public pricing catalog.
type PlansHandler struct {
	plans *planssvc.Service
}

func NewPlansHandler(plans *planssvc.Service) *PlansHandler {
	return &PlansHandler{plans: plans}
}

func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	plansList, err := h.plans.List(r.Context())
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PublicPlanListFromModels(plansList, localeFrom(r)))
}

func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	planID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "plan not found")
		return
	}

	plan, err := h.plans.ResolveByID(r.Context(), planID)
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PublicPlanFromModel(plan, localeFrom(r)))
}

func handlePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planssvc.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", "plan not found")
	case errors.Is(err, planssvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, planssvc.ErrKeyTaken):
		writeConflict(w, "PLAN_KEY_TAKEN", "plan key is already in use")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
