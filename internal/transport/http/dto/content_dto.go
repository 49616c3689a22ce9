package dto

import (
	"time"

	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	"github.com/kirosamy12/otrade-backend/internal/services/access"
)

type ContentUpsertRequest struct {
	Unrestricted     bool              `json:"unrestricted"`
	RequiredPlanKeys []string          `json:"required_plan_keys"`
	RequiredPlanIDs  []string          `json:"required_plan_ids"`
	ContentURL       *string           `json:"content_url"`
	CoverImageURL    *string           `json:"cover_image_url"`
	Market           *string           `json:"market"`
	Level            *string           `json:"level"`
	EventAt          *time.Time        `json:"event_at"`
	Translations     TranslationsField `json:"translations"`
}

// ContentItemResponse is the viewer-shaped item. Locked items carry only
// title/description and the locked marker; content_url and content are
// never present on them.
type ContentItemResponse struct {
	ID            string     `json:"id"`
	Category      string     `json:"category"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Content       string     `json:"content,omitempty"`
	ContentURL    *string    `json:"content_url,omitempty"`
	CoverImageURL *string    `json:"cover_image_url,omitempty"`
	Market        *string    `json:"market,omitempty"`
	Level         *string    `json:"level,omitempty"`
	EventAt       *time.Time `json:"event_at,omitempty"`
	Locked        bool       `json:"locked"`
}

func ContentItemFromDecision(d access.Decision) ContentItemResponse {
	resp := ContentItemResponse{
		ID:            d.ID.String(),
		Category:      string(d.Category),
		Title:         d.Title,
		Description:   d.Description,
		CoverImageURL: d.CoverImageURL,
		Locked:        d.Locked,
	}
	if d.Status == access.StatusFull {
		resp.Content = d.Body
		resp.ContentURL = d.ContentURL
		resp.Market = d.Market
		resp.Level = d.Level
		resp.EventAt = d.EventAt
	}
	return resp
}

func ContentListFromDecisions(decisions []access.Decision) []ContentItemResponse {
	out := make([]ContentItemResponse, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, ContentItemFromDecision(d))
	}
	return out
}

// AdminContentResponse is the ungated admin view with every translation.
type AdminContentResponse struct {
	ID               string               `json:"id"`
	Category         string               `json:"category"`
	Unrestricted     bool                 `json:"unrestricted"`
	RequiredPlanKeys []string             `json:"required_plan_keys"`
	RequiredPlanIDs  []string             `json:"required_plan_ids"`
	ContentURL       *string              `json:"content_url"`
	CoverImageURL    *string              `json:"cover_image_url"`
	Market           *string              `json:"market,omitempty"`
	Level            *string              `json:"level,omitempty"`
	EventAt          *time.Time           `json:"event_at,omitempty"`
	Translations     []TranslationPayload `json:"translations"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func AdminContentFromModel(item model.ContentItem) AdminContentResponse {
	translations := make([]TranslationPayload, 0, len(item.Translations))
	for _, tr := range item.Translations {
		translations = append(translations, TranslationPayload{
			Language:    string(tr.Language),
			Title:       tr.Title,
			Description: tr.Description,
			Content:     tr.Body,
		})
	}

	planIDs := make([]string, 0, len(item.RequiredPlanIDs))
	for _, id := range item.RequiredPlanIDs {
		planIDs = append(planIDs, id.String())
	}

	return AdminContentResponse{
		ID:               item.ID.String(),
		Category:         string(item.Category),
		Unrestricted:     item.Unrestricted,
		RequiredPlanKeys: item.RequiredPlanKeys,
		RequiredPlanIDs:  planIDs,
		ContentURL:       item.ContentURL,
		CoverImageURL:    item.CoverImageURL,
		Market:           item.Market,
		Level:            item.Level,
		EventAt:          item.EventAt,
		Translations:     translations,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

func AdminContentListFromModels(items []model.ContentItem) []AdminContentResponse {
	out := make([]AdminContentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, AdminContentFromModel(item))
	}
	return out
}
