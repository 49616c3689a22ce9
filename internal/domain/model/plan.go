package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
)

type DurationPrice struct {
	AmountCents int  `json:"amount_cents"`
	Enabled     bool `json:"enabled"`
}

type AllowedContent struct {
	Courses    []uuid.UUID `json:"courses"`
	Webinars   []uuid.UUID `json:"webinars"`
	Psychology []uuid.UUID `json:"psychology"`
	Analyses   []uuid.UUID `json:"analyses"`
}

func (a AllowedContent) For(category enums.ContentCategory) []uuid.UUID {
	switch category {
	case enums.CategoryCourses:
		return a.Courses
	case enums.CategoryWebinars:
		return a.Webinars
	case enums.CategoryPsychology:
		return a.Psychology
	case enums.CategoryAnalyses:
		return a.Analyses
	default:
		return nil
	}
}

type Plan struct {
	ID             uuid.UUID                                    `json:"id"`
	Key            string                                       `json:"key"`
	Tier           enums.PlanTier                               `json:"tier"`
	NameEN         string                                       `json:"name_en"`
	NameAR         string                                       `json:"name_ar"`
	DescriptionEN  string                                       `json:"description_en"`
	DescriptionAR  string                                       `json:"description_ar"`
	PriceCents     *int                                         `json:"price_cents"`
	Currency       string                                       `json:"currency"`
	DurationPrices map[enums.SubscriptionDuration]DurationPrice `json:"duration_prices"`
	Allowed        AllowedContent                               `json:"allowed_content"`
	CreatedAt      time.Time                                    `json:"created_at"`
	UpdatedAt      time.Time                                    `json:"updated_at"`
}

// Purchasable reports whether at least one pricing path is set: a flat price
// or one enabled duration price.
func (p Plan) Purchasable() bool {
	if p.PriceCents != nil && *p.PriceCents > 0 {
		return true
	}
	for _, dp := range p.DurationPrices {
		if dp.Enabled && dp.AmountCents > 0 {
			return true
		}
	}
	return false
}
