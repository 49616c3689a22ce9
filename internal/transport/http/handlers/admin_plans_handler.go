package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
	"github.com/kirosamy12/otrade-backend/internal/transport/http/dto"
	httperrors "github.com/kirosamy12/otrade-backend/internal/transport/http/errors"
)

type AdminPlansHandler struct {
	plans *planssvc.Service
}

func NewAdminPlansHandler(plans *planssvc.Service) *AdminPlansHandler {
	return &AdminPlansHandler{plans: plans}
}

func (h *AdminPlansHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	plansList, err := h.plans.List(r.Context())
	if err != nil {
		handlePlanError(w, err)
		return
	}

	out := make([]dto.AdminPlanResponse, 0, len(plansList))
	for _, plan := range plansList {
		out = append(out, dto.AdminPlanFromModel(plan))
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *AdminPlansHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	httperrors.Write(w, http.StatusOK, dto.AdminPlanFromModel(plan))
}

func (h *AdminPlansHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	var req dto.PlanUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	in, ok := planInputFrom(req)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid content id reference")
		return
	}

	plan, err := h.plans.Create(r.Context(), in)
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AdminPlanFromModel(plan))
}

func (h *AdminPlansHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	planID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "plan not found")
		return
	}

	var req dto.PlanUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	in, ok := planInputFrom(req)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid content id reference")
		return
	}

	plan, err := h.plans.Update(r.Context(), planID, in)
	if err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminPlanFromModel(plan))
}

func (h *AdminPlansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.plans == nil {
		writeInternal(w, "PLANS_SERVICE_UNAVAILABLE", "plans service is unavailable")
		return
	}

	planID, ok := pathUUID(r, "id")
	if !ok {
		writeNotFound(w, "NOT_FOUND", "plan not found")
		return
	}

	if err := h.plans.Delete(r.Context(), planID); err != nil {
		handlePlanError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]any{"ok": true})
}

func planInputFrom(req dto.PlanUpsertRequest) (planssvc.Input, bool) {
	prices := make(map[string]model.DurationPrice, len(req.DurationPrices))
	for duration, dp := range req.DurationPrices {
		prices[duration] = model.DurationPrice{AmountCents: dp.AmountCents, Enabled: dp.Enabled}
	}

	courses, ok := parseUUIDList(req.AllowedContent.Courses)
	if !ok {
		return planssvc.Input{}, false
	}
	webinars, ok := parseUUIDList(req.AllowedContent.Webinars)
	if !ok {
		return planssvc.Input{}, false
	}
	psychology, ok := parseUUIDList(req.AllowedContent.Psychology)
	if !ok {
		return planssvc.Input{}, false
	}
	analyses, ok := parseUUIDList(req.AllowedContent.Analyses)
	if !ok {
		return planssvc.Input{}, false
	}

	return planssvc.Input{
		Key:            req.Key,
		Tier:           req.Tier,
		NameEN:         req.NameEN,
		NameAR:         req.NameAR,
		DescriptionEN:  req.DescriptionEN,
		DescriptionAR:  req.DescriptionAR,
		PriceCents:     req.PriceCents,
		Currency:       req.Currency,
		DurationPrices: prices,
		Allowed: model.AllowedContent{
			Courses:    courses,
			Webinars:   webinars,
			Psychology: psychology,
			Analyses:   analyses,
		},
	}, true
}

func parseUUIDList(raw []string) ([]uuid.UUID, bool) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}
