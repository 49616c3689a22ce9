package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("plan not found")
	ErrKeyTaken            = errors.New("plan key already taken")
	ErrDurationUnavailable = errors.New("duration not available for plan")
)

type PlanStore interface {
	Create(ctx context.Context, rec pgrepo.PlanRecord) (pgrepo.PlanRecord, error)
	Update(ctx context.Context, rec pgrepo.PlanRecord) (pgrepo.PlanRecord, error)
	Delete(ctx context.Context, planID uuid.UUID) error
	FindByID(ctx context.Context, planID uuid.UUID) (pgrepo.PlanRecord, error)
	FindByKey(ctx context.Context, key string) (pgrepo.PlanRecord, error)
	List(ctx context.Context) ([]pgrepo.PlanRecord, error)
}

// PlanCache is best effort: a failing cache never fails a read, it only
// forces the store lookup.
type PlanCache interface {
	GetByID(ctx context.Context, planID string) ([]byte, error)
	GetByKey(ctx context.Context, key string) ([]byte, error)
	GetList(ctx context.Context) ([]byte, error)
	SetByID(ctx context.Context, planID string, payload []byte, ttl time.Duration) error
	SetByKey(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	SetList(ctx context.Context, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type Input struct {
	Key            string
	Tier           string
	NameEN         string
	NameAR         string
	DescriptionEN  string
	DescriptionAR  string
	PriceCents     *int
	Currency       string
	DurationPrices map[string]model.DurationPrice
	Allowed        model.AllowedContent
}

type Service struct {
	store    PlanStore
	cache    PlanCache
	cacheTTL time.Duration
}

func NewService(store PlanStore, cache PlanCache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{store: store, cache: cache, cacheTTL: cacheTTL}
}

func (s *Service) Create(ctx context.Context, in Input) (model.Plan, error) {
	rec, err := buildRecord(uuid.Nil, in)
	if err != nil {
		return model.Plan{}, err
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanKeyTaken) {
			return model.Plan{}, ErrKeyTaken
		}
		return model.Plan{}, fmt.Errorf("create plan: %w", err)
	}

	s.dropCache(ctx)
	return mapPlan(created), nil
}

func (s *Service) Update(ctx context.Context, planID uuid.UUID, in Input) (model.Plan, error) {
	if planID == uuid.Nil {
		return model.Plan{}, fmt.Errorf("%w: plan id is required", ErrValidation)
	}
	rec, err := buildRecord(planID, in)
	if err != nil {
		return model.Plan{}, err
	}

	updated, err := s.store.Update(ctx, rec)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return model.Plan{}, ErrNotFound
		}
		if errors.Is(err, pgrepo.ErrPlanKeyTaken) {
			return model.Plan{}, ErrKeyTaken
		}
		return model.Plan{}, fmt.Errorf("update plan: %w", err)
	}

	s.dropCache(ctx)
	return mapPlan(updated), nil
}

func (s *Service) Delete(ctx context.Context, planID uuid.UUID) error {
	if planID == uuid.Nil {
		return fmt.Errorf("%w: plan id is required", ErrValidation)
	}
	if err := s.store.Delete(ctx, planID); err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete plan: %w", err)
	}
	s.dropCache(ctx)
	return nil
}

func (s *Service) ResolveByID(ctx context.Context, planID uuid.UUID) (model.Plan, error) {
	if planID == uuid.Nil {
		return model.Plan{}, ErrNotFound
	}

	if s.cache != nil {
		if payload, err := s.cache.GetByID(ctx, planID.String()); err == nil {
			var plan model.Plan
			if json.Unmarshal(payload, &plan) == nil {
				return plan, nil
			}
		}
	}

	rec, err := s.store.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return model.Plan{}, ErrNotFound
		}
		return model.Plan{}, fmt.Errorf("find plan by id: %w", err)
	}

	plan := mapPlan(rec)
	s.cachePlan(ctx, plan)
	return plan, nil
}

func (s *Service) ResolveByKey(ctx context.Context, key string) (model.Plan, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return model.Plan{}, ErrNotFound
	}

	if s.cache != nil {
		if payload, err := s.cache.GetByKey(ctx, key); err == nil {
			var plan model.Plan
			if json.Unmarshal(payload, &plan) == nil {
				return plan, nil
			}
		}
	}

	rec, err := s.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return model.Plan{}, ErrNotFound
		}
		return model.Plan{}, fmt.Errorf("find plan by key: %w", err)
	}

	plan := mapPlan(rec)
	s.cachePlan(ctx, plan)
	return plan, nil
}

func (s *Service) List(ctx context.Context) ([]model.Plan, error) {
	if s.cache != nil {
		if payload, err := s.cache.GetList(ctx); err == nil {
			var out []model.Plan
			if json.Unmarshal(payload, &out) == nil {
				return out, nil
			}
		}
	}

	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	out := make([]model.Plan, 0, len(recs))
	for _, rec := range recs {
		out = append(out, mapPlan(rec))
	}

	if s.cache != nil {
		if payload, err := json.Marshal(out); err == nil {
			_ = s.cache.SetList(ctx, payload, s.cacheTTL)
		}
	}
	return out, nil
}

// KeysForIDs maps plan references to their canonical keys. Unknown ids are
// skipped, not errors: a viewer holding a deleted plan reference simply loses
// that plan from the comparison set.
func (s *Service) KeysForIDs(ctx context.Context, planIDs []uuid.UUID) ([]string, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]string, len(all))
	for _, plan := range all {
		byID[plan.ID] = plan.Key
	}

	keys := make([]string, 0, len(planIDs))
	for _, id := range planIDs {
		if key, ok := byID[id]; ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// PriceFor resolves checkout pricing: the duration price wins when present
// and enabled, otherwise the flat price covers every duration, otherwise the
// plan is not purchasable for that duration.
func (s *Service) PriceFor(plan model.Plan, duration enums.SubscriptionDuration) (int, error) {
	if dp, ok := plan.DurationPrices[duration]; ok && dp.Enabled {
		if dp.AmountCents <= 0 {
			return 0, fmt.Errorf("%w: %s price is not set", ErrDurationUnavailable, duration)
		}
		return dp.AmountCents, nil
	}
	if plan.PriceCents != nil && *plan.PriceCents > 0 {
		return *plan.PriceCents, nil
	}
	return 0, fmt.Errorf("%w: plan %s has no price for %s", ErrDurationUnavailable, plan.Key, duration)
}

func (s *Service) cachePlan(ctx context.Context, plan model.Plan) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(plan)
	if err != nil {
		return
	}
	_ = s.cache.SetByID(ctx, plan.ID.String(), payload, s.cacheTTL)
	_ = s.cache.SetByKey(ctx, plan.Key, payload, s.cacheTTL)
}

func (s *Service) dropCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx)
	}
}

func buildRecord(planID uuid.UUID, in Input) (pgrepo.PlanRecord, error) {
	key := strings.ToLower(strings.TrimSpace(in.Key))
	if key == "" {
		return pgrepo.PlanRecord{}, fmt.Errorf("%w: plan key is required", ErrValidation)
	}
	tier, ok := enums.ParsePlanTier(strings.ToLower(strings.TrimSpace(in.Tier)))
	if !ok {
		return pgrepo.PlanRecord{}, fmt.Errorf("%w: unknown tier %q", ErrValidation, in.Tier)
	}
	if strings.TrimSpace(in.NameEN) == "" {
		return pgrepo.PlanRecord{}, fmt.Errorf("%w: english name is required", ErrValidation)
	}
	if in.PriceCents != nil && *in.PriceCents <= 0 {
		return pgrepo.PlanRecord{}, fmt.Errorf("%w: flat price must be positive", ErrValidation)
	}

	prices := make(map[string]pgrepo.DurationPriceRecord, len(in.DurationPrices))
	hasEnabledDuration := false
	for rawDuration, dp := range in.DurationPrices {
		duration, ok := enums.ParseSubscriptionDuration(strings.ToLower(strings.TrimSpace(rawDuration)))
		if !ok {
			return pgrepo.PlanRecord{}, fmt.Errorf("%w: unknown duration %q", ErrValidation, rawDuration)
		}
		if dp.Enabled {
			if dp.AmountCents <= 0 {
				return pgrepo.PlanRecord{}, fmt.Errorf("%w: enabled %s price must be positive", ErrValidation, duration)
			}
			hasEnabledDuration = true
		}
		prices[string(duration)] = pgrepo.DurationPriceRecord{AmountCents: dp.AmountCents, Enabled: dp.Enabled}
	}

	if in.PriceCents == nil && !hasEnabledDuration {
		return pgrepo.PlanRecord{}, fmt.Errorf("%w: plan needs a flat price or one enabled duration price", ErrValidation)
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	return pgrepo.PlanRecord{
		ID:                planID,
		Key:               key,
		Tier:              string(tier),
		NameEN:            strings.TrimSpace(in.NameEN),
		NameAR:            strings.TrimSpace(in.NameAR),
		DescriptionEN:     in.DescriptionEN,
		DescriptionAR:     in.DescriptionAR,
		PriceCents:        in.PriceCents,
		Currency:          currency,
		DurationPrices:    prices,
		AllowedCourses:    in.Allowed.Courses,
		AllowedWebinars:   in.Allowed.Webinars,
		AllowedPsychology: in.Allowed.Psychology,
		AllowedAnalyses:   in.Allowed.Analyses,
	}, nil
}

func mapPlan(rec pgrepo.PlanRecord) model.Plan {
	prices := make(map[enums.SubscriptionDuration]model.DurationPrice, len(rec.DurationPrices))
	for raw, dp := range rec.DurationPrices {
		if duration, ok := enums.ParseSubscriptionDuration(raw); ok {
			prices[duration] = model.DurationPrice{AmountCents: dp.AmountCents, Enabled: dp.Enabled}
		}
	}

	return model.Plan{
		ID:             rec.ID,
		Key:            rec.Key,
		Tier:           enums.PlanTier(rec.Tier),
		NameEN:         rec.NameEN,
		NameAR:         rec.NameAR,
		DescriptionEN:  rec.DescriptionEN,
		DescriptionAR:  rec.DescriptionAR,
		PriceCents:     rec.PriceCents,
		Currency:       rec.Currency,
		DurationPrices: prices,
		Allowed: model.AllowedContent{
			Courses:    rec.AllowedCourses,
			Webinars:   rec.AllowedWebinars,
			Psychology: rec.AllowedPsychology,
			Analyses:   rec.AllowedAnalyses,
		},
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
