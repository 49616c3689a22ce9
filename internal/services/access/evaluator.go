package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
)

type Status string

const (
	StatusFull   Status = "FULL"
	StatusLocked Status = "LOCKED"
)

// Viewer is the entitlement slice of an actor relevant to content gating:
// the resolved plan keys and the per-item unlock references. Admins bypass
// gating entirely.
type Viewer struct {
	IsAdmin     bool
	PlanKeys    []string
	UnlockedIDs []uuid.UUID
}

// Decision is the shaped view of one content item. Locked decisions carry
// title, description and the cover image only; the body and content URL are
// withheld.
type Decision struct {
	Status        Status
	ID            uuid.UUID
	Category      enums.ContentCategory
	Title         string
	Description   string
	Body          string
	ContentURL    *string
	CoverImageURL *string
	Market        *string
	Level         *string
	EventAt       *time.Time
	HasTranslated bool
	Locked        bool
}

// Evaluate is pure: no I/O, no errors. Missing or malformed data degrades to
// a locked decision, and a missing translation yields an empty shell rather
// than failing the listing that contains it.
func Evaluate(item model.ContentItem, viewer Viewer, locale enums.Language) Decision {
	if viewer.IsAdmin || hasAccess(item, viewer) {
		return fullDecision(item, locale)
	}
	return lockedDecision(item, locale)
}

func hasAccess(item model.ContentItem, viewer Viewer) bool {
	if item.Unrestricted {
		return true
	}

	for _, unlocked := range viewer.UnlockedIDs {
		if unlocked == item.ID {
			return true
		}
	}

	planKeys := viewer.PlanKeys
	if len(planKeys) == 0 {
		planKeys = []string{string(enums.TierFree)}
	}
	for _, required := range item.RequiredPlanKeys {
		for _, held := range planKeys {
			if required == held {
				return true
			}
		}
	}
	return false
}

func fullDecision(item model.ContentItem, locale enums.Language) Decision {
	d := Decision{
		Status:        StatusFull,
		ID:            item.ID,
		Category:      item.Category,
		ContentURL:    item.ContentURL,
		CoverImageURL: item.CoverImageURL,
		Market:        item.Market,
		Level:         item.Level,
		EventAt:       item.EventAt,
	}
	if tr, ok := item.TranslationFor(locale); ok {
		d.Title = tr.Title
		d.Description = tr.Description
		d.Body = tr.Body
		d.HasTranslated = true
	}
	return d
}

func lockedDecision(item model.ContentItem, locale enums.Language) Decision {
	d := Decision{
		Status:        StatusLocked,
		ID:            item.ID,
		Category:      item.Category,
		CoverImageURL: item.CoverImageURL,
		Locked:        true,
	}
	if tr, ok := item.TranslationFor(locale); ok {
		d.Title = tr.Title
		d.Description = tr.Description
		d.HasTranslated = true
	}
	return d
}
