package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
)

type Translation struct {
	Language    enums.Language `json:"language"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Body        string         `json:"body"`
}

type ContentItem struct {
	ID       uuid.UUID             `json:"id"`
	Category enums.ContentCategory `json:"category"`

	// Unrestricted is the only state in which an item is universally
	// viewable. False with empty requirement lists means restricted to
	// nothing (admins only).
	Unrestricted     bool        `json:"unrestricted"`
	RequiredPlanKeys []string    `json:"required_plan_keys"`
	RequiredPlanIDs  []uuid.UUID `json:"required_plan_ids"`

	ContentURL    *string    `json:"content_url"`
	CoverImageURL *string    `json:"cover_image_url"`
	Market        *string    `json:"market"`
	Level         *string    `json:"level"`
	EventAt       *time.Time `json:"event_at"`

	Translations []Translation `json:"translations"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TranslationFor picks the exact locale match, falls back to English, and
// returns false only when neither exists.
func (c ContentItem) TranslationFor(lang enums.Language) (Translation, bool) {
	var english Translation
	hasEnglish := false
	for _, tr := range c.Translations {
		if tr.Language == lang {
			return tr, true
		}
		if tr.Language == enums.LanguageEnglish {
			english = tr
			hasEnglish = true
		}
	}
	if hasEnglish {
		return english, true
	}
	return Translation{}, false
}
