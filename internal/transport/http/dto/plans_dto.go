package dto

import (
	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
)

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

type DurationPricePayload struct {
	AmountCents int  `json:"amount_cents"`
	Enabled     bool `json:"enabled"`
}

type AllowedContentPayload struct {
	Courses    []string `json:"courses"`
	Webinars   []string `json:"webinars"`
	Psychology []string `json:"psychology"`
	Analyses   []string `json:"analyses"`
}

type PlanUpsertRequest struct {
	Key            string                          `json:"key"`
	Tier           string                          `json:"tier"`
	NameEN         string                          `json:"name_en"`
	NameAR         string                          `json:"name_ar"`
	DescriptionEN  string                          `json:"description_en"`
	DescriptionAR  string                          `json:"description_ar"`
	PriceCents     *int                            `json:"price_cents"`
	Currency       string                          `json:"currency"`
	DurationPrices map[string]DurationPricePayload `json:"duration_prices"`
	AllowedContent AllowedContentPayload           `json:"allowed_content"`
}

// PublicPlanResponse is the locale-shaped catalog entry.
type PublicPlanResponse struct {
	ID             string                          `json:"id"`
	Key            string                          `json:"key"`
	Tier           string                          `json:"tier"`
	Name           string                          `json:"name"`
	Description    string                          `json:"description"`
	PriceCents     *int                            `json:"price_cents,omitempty"`
	Currency       string                          `json:"currency"`
	DurationPrices map[string]DurationPricePayload `json:"duration_prices,omitempty"`
}

func PublicPlanFromModel(plan model.Plan, locale enums.Language) PublicPlanResponse {
	name, description := plan.NameEN, plan.DescriptionEN
	if locale == enums.LanguageArabic && plan.NameAR != "" {
		name, description = plan.NameAR, plan.DescriptionAR
	}

	var prices map[string]DurationPricePayload
	if len(plan.DurationPrices) > 0 {
		prices = make(map[string]DurationPricePayload, len(plan.DurationPrices))
		for duration, dp := range plan.DurationPrices {
			if dp.Enabled {
				prices[string(duration)] = DurationPricePayload{AmountCents: dp.AmountCents, Enabled: true}
			}
		}
	}

	return PublicPlanResponse{
		ID:             plan.ID.String(),
		Key:            plan.Key,
		Tier:           string(plan.Tier),
		Name:           name,
		Description:    description,
		PriceCents:     plan.PriceCents,
		Currency:       plan.Currency,
		DurationPrices: prices,
	}
}

func PublicPlanListFromModels(plansList []model.Plan, locale enums.Language) []PublicPlanResponse {
	out := make([]PublicPlanResponse, 0, len(plansList))
	for _, plan := range plansList {
		out = append(out, PublicPlanFromModel(plan, locale))
	}
	return out
}

// AdminPlanResponse carries both locales and the allowed-content references.
type AdminPlanResponse struct {
	ID             string                          `json:"id"`
	Key            string                          `json:"key"`
	Tier           string                          `json:"tier"`
	NameEN         string                          `json:"name_en"`
	NameAR         string                          `json:"name_ar"`
	DescriptionEN  string                          `json:"description_en"`
	DescriptionAR  string                          `json:"description_ar"`
	PriceCents     *int                            `json:"price_cents"`
	Currency       string                          `json:"currency"`
	DurationPrices map[string]DurationPricePayload `json:"duration_prices"`
	AllowedContent AllowedContentPayload           `json:"allowed_content"`
}

func AdminPlanFromModel(plan model.Plan) AdminPlanResponse {
	prices := make(map[string]DurationPricePayload, len(plan.DurationPrices))
	for duration, dp := range plan.DurationPrices {
		prices[string(duration)] = DurationPricePayload{AmountCents: dp.AmountCents, Enabled: dp.Enabled}
	}

	return AdminPlanResponse{
		ID:             plan.ID.String(),
		Key:            plan.Key,
		Tier:           string(plan.Tier),
		NameEN:         plan.NameEN,
		NameAR:         plan.NameAR,
		DescriptionEN:  plan.DescriptionEN,
		DescriptionAR:  plan.DescriptionAR,
		PriceCents:     plan.PriceCents,
		Currency:       plan.Currency,
		DurationPrices: prices,
		AllowedContent: AllowedContentPayload{
			Courses:    uuidStrings(plan.Allowed.Courses),
			Webinars:   uuidStrings(plan.Allowed.Webinars),
			Psychology: uuidStrings(plan.Allowed.Psychology),
			Analyses:   uuidStrings(plan.Allowed.Analyses),
		},
	}
}
