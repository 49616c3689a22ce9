package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	"github.com/kirosamy12/otrade-backend/internal/services/access"
	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("content item not found")
)

type ContentStore interface {
	Create(ctx context.Context, rec pgrepo.ContentRecord) (pgrepo.ContentRecord, error)
	Update(ctx context.Context, rec pgrepo.ContentRecord) (pgrepo.ContentRecord, error)
	Delete(ctx context.Context, contentID uuid.UUID) error
	FindByID(ctx context.Context, contentID uuid.UUID) (pgrepo.ContentRecord, error)
	ListByCategory(ctx context.Context, category string) ([]pgrepo.ContentRecord, error)
}

type PlanResolver interface {
	ResolveByKey(ctx context.Context, key string) (model.Plan, error)
	KeysForIDs(ctx context.Context, planIDs []uuid.UUID) ([]string, error)
}

// Input is the already-normalized write payload: the multi-shape translation
// parsing lives in the transport layer, never here.
type Input struct {
	Category         enums.ContentCategory
	Unrestricted     bool
	RequiredPlanKeys []string
	RequiredPlanIDs  []uuid.UUID
	ContentURL       *string
	CoverImageURL    *string
	Market           *string
	Level            *string
	EventAt          *time.Time
	Translations     []model.Translation
}

type Service struct {
	store ContentStore
	plans PlanResolver
}

func NewService(store ContentStore, plans PlanResolver) *Service {
	return &Service{store: store, plans: plans}
}

func (s *Service) Create(ctx context.Context, in Input) (model.ContentItem, error) {
	rec, err := s.buildRecord(ctx, uuid.Nil, in)
	if err != nil {
		return model.ContentItem{}, err
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		return model.ContentItem{}, fmt.Errorf("create content: %w", err)
	}
	return mapItem(created), nil
}

func (s *Service) Update(ctx context.Context, contentID uuid.UUID, in Input) (model.ContentItem, error) {
	if contentID == uuid.Nil {
		return model.ContentItem{}, fmt.Errorf("%w: content id is required", ErrValidation)
	}
	rec, err := s.buildRecord(ctx, contentID, in)
	if err != nil {
		return model.ContentItem{}, err
	}

	updated, err := s.store.Update(ctx, rec)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return model.ContentItem{}, ErrNotFound
		}
		return model.ContentItem{}, fmt.Errorf("update content: %w", err)
	}
	return mapItem(updated), nil
}

func (s *Service) Delete(ctx context.Context, contentID uuid.UUID) error {
	if contentID == uuid.Nil {
		return fmt.Errorf("%w: content id is required", ErrValidation)
	}
	if err := s.store.Delete(ctx, contentID); err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

// FindByID returns the unshaped item for admin reads; gating happens only on
// the viewer paths.
func (s *Service) FindByID(ctx context.Context, contentID uuid.UUID) (model.ContentItem, error) {
	if contentID == uuid.Nil {
		return model.ContentItem{}, ErrNotFound
	}
	rec, err := s.store.FindByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return model.ContentItem{}, ErrNotFound
		}
		return model.ContentItem{}, fmt.Errorf("find content: %w", err)
	}
	return mapItem(rec), nil
}

func (s *Service) ListByCategory(ctx context.Context, category enums.ContentCategory) ([]model.ContentItem, error) {
	recs, err := s.store.ListByCategory(ctx, string(category))
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	items := make([]model.ContentItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, mapItem(rec))
	}
	return items, nil
}

// ListForViewer shapes a whole category listing for one viewer. One item's
// bad data never fails the listing; it degrades per item.
func (s *Service) ListForViewer(ctx context.Context, category enums.ContentCategory, viewer access.Viewer, locale enums.Language) ([]access.Decision, error) {
	items, err := s.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	decisions := make([]access.Decision, 0, len(items))
	for _, item := range items {
		resolved, err := s.resolveRequirement(ctx, item)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, access.Evaluate(resolved, viewer, locale))
	}
	return decisions, nil
}

func (s *Service) GetForViewer(ctx context.Context, category enums.ContentCategory, contentID uuid.UUID, viewer access.Viewer, locale enums.Language) (access.Decision, error) {
	item, err := s.FindByID(ctx, contentID)
	if err != nil {
		return access.Decision{}, err
	}
	if item.Category != category {
		return access.Decision{}, ErrNotFound
	}

	resolved, err := s.resolveRequirement(ctx, item)
	if err != nil {
		return access.Decision{}, err
	}
	return access.Evaluate(resolved, viewer, locale), nil
}

// resolveRequirement folds both requirement representations into plan keys so
// the evaluator compares one identity space.
func (s *Service) resolveRequirement(ctx context.Context, item model.ContentItem) (model.ContentItem, error) {
	if len(item.RequiredPlanIDs) == 0 {
		return item, nil
	}

	keys, err := s.plans.KeysForIDs(ctx, item.RequiredPlanIDs)
	if err != nil {
		return model.ContentItem{}, fmt.Errorf("resolve requirement plans: %w", err)
	}

	merged := append([]string{}, item.RequiredPlanKeys...)
	for _, key := range keys {
		exists := false
		for _, have := range merged {
			if have == key {
				exists = true
				break
			}
		}
		if !exists {
			merged = append(merged, key)
		}
	}
	item.RequiredPlanKeys = merged
	return item, nil
}

func (s *Service) buildRecord(ctx context.Context, contentID uuid.UUID, in Input) (pgrepo.ContentRecord, error) {
	category, ok := enums.ParseContentCategory(string(in.Category))
	if !ok {
		return pgrepo.ContentRecord{}, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}

	keys := make([]string, 0, len(in.RequiredPlanKeys))
	for _, raw := range in.RequiredPlanKeys {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if _, err := s.plans.ResolveByKey(ctx, key); err != nil {
			if errors.Is(err, planssvc.ErrNotFound) {
				return pgrepo.ContentRecord{}, fmt.Errorf("%w: unknown plan key %q", ErrValidation, key)
			}
			return pgrepo.ContentRecord{}, fmt.Errorf("resolve plan key: %w", err)
		}
		keys = append(keys, key)
	}

	// The requirement must be explicit: unrestricted, or at least one plan
	// reference. Empty-by-accident never reaches storage.
	if !in.Unrestricted && len(keys) == 0 && len(in.RequiredPlanIDs) == 0 {
		return pgrepo.ContentRecord{}, fmt.Errorf("%w: plan requirement is empty; set unrestricted or name plans", ErrValidation)
	}

	translations := make([]pgrepo.TranslationRecord, 0, len(in.Translations))
	seen := map[enums.Language]struct{}{}
	for _, tr := range in.Translations {
		lang := enums.ParseLanguage(string(tr.Language))
		if _, dup := seen[lang]; dup {
			return pgrepo.ContentRecord{}, fmt.Errorf("%w: duplicate translation for %s", ErrValidation, lang)
		}
		seen[lang] = struct{}{}
		if strings.TrimSpace(tr.Title) == "" {
			return pgrepo.ContentRecord{}, fmt.Errorf("%w: translation title is required", ErrValidation)
		}
		translations = append(translations, pgrepo.TranslationRecord{
			Language:    string(lang),
			Title:       strings.TrimSpace(tr.Title),
			Description: tr.Description,
			Body:        tr.Body,
		})
	}

	return pgrepo.ContentRecord{
		ID:               contentID,
		Category:         string(category),
		Unrestricted:     in.Unrestricted,
		RequiredPlanKeys: keys,
		RequiredPlanIDs:  in.RequiredPlanIDs,
		ContentURL:       in.ContentURL,
		CoverImageURL:    in.CoverImageURL,
		Market:           in.Market,
		Level:            in.Level,
		EventAt:          in.EventAt,
		Translations:     translations,
	}, nil
}

func mapItem(rec pgrepo.ContentRecord) model.ContentItem {
	translations := make([]model.Translation, 0, len(rec.Translations))
	for _, tr := range rec.Translations {
		translations = append(translations, model.Translation{
			Language:    enums.ParseLanguage(tr.Language),
			Title:       tr.Title,
			Description: tr.Description,
			Body:        tr.Body,
		})
	}

	return model.ContentItem{
		ID:               rec.ID,
		Category:         enums.ContentCategory(rec.Category),
		Unrestricted:     rec.Unrestricted,
		RequiredPlanKeys: rec.RequiredPlanKeys,
		RequiredPlanIDs:  rec.RequiredPlanIDs,
		ContentURL:       rec.ContentURL,
		CoverImageURL:    rec.CoverImageURL,
		Market:           rec.Market,
		Level:            rec.Level,
		EventAt:          rec.EventAt,
		Translations:     translations,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}
