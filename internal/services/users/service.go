package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	"github.com/kirosamy12/otrade-backend/internal/services/access"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("user not found")
	ErrPlanGone   = errors.New("plan not found")
)

type UserStore interface {
	FindByID(ctx context.Context, userID uuid.UUID) (pgrepo.UserRecord, error)
	ApplyPlanGrant(ctx context.Context, userID uuid.UUID, grant pgrepo.PlanGrant) (pgrepo.UserRecord, error)
}

type PlanResolver interface {
	ResolveByID(ctx context.Context, planID uuid.UUID) (model.Plan, error)
	KeysForIDs(ctx context.Context, planIDs []uuid.UUID) ([]string, error)
}

// Entitlements is the unified snapshot both the API and the access evaluator
// read. Status is derived from the expiry at read time; an expired
// subscription collapses to the free tier without touching storage.
type Entitlements struct {
	UserID             uuid.UUID
	Email              string
	Name               string
	PlanTier           enums.PlanTier
	SubscriptionActive bool
	ExpiresAt          *time.Time
	ActivePlanKeys     []string
	UnlockedCourses    []uuid.UUID
	UnlockedWebinars   []uuid.UUID
	UnlockedPsychology []uuid.UUID
	UnlockedAnalyses   []uuid.UUID
}

func (e Entitlements) UnlockedFor(category enums.ContentCategory) []uuid.UUID {
	switch category {
	case enums.CategoryCourses:
		return e.UnlockedCourses
	case enums.CategoryWebinars:
		return e.UnlockedWebinars
	case enums.CategoryPsychology:
		return e.UnlockedPsychology
	case enums.CategoryAnalyses:
		return e.UnlockedAnalyses
	default:
		return nil
	}
}

type Service struct {
	store UserStore
	plans PlanResolver
	now   func() time.Time
}

func NewService(store UserStore, plans PlanResolver) *Service {
	return &Service{store: store, plans: plans, now: time.Now}
}

func (s *Service) Entitlements(ctx context.Context, userID uuid.UUID) (Entitlements, error) {
	if userID == uuid.Nil {
		return Entitlements{}, ErrValidation
	}

	rec, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Entitlements{}, ErrNotFound
		}
		return Entitlements{}, fmt.Errorf("find user: %w", err)
	}

	return s.snapshot(ctx, rec)
}

// ViewerFor shapes the entitlement snapshot into the evaluator's viewer for
// one content category. A nil user id is an anonymous viewer.
func (s *Service) ViewerFor(ctx context.Context, userID uuid.UUID, category enums.ContentCategory) (access.Viewer, error) {
	if userID == uuid.Nil {
		return access.Viewer{}, nil
	}

	ent, err := s.Entitlements(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return access.Viewer{}, nil
		}
		return access.Viewer{}, err
	}

	return access.Viewer{
		PlanKeys:    ent.ActivePlanKeys,
		UnlockedIDs: ent.UnlockedFor(category),
	}, nil
}

// AssignSubscription is the explicit admin path: it applies the same
// entitlement union as payment activation, without a payment row. Permission
// gating happens at the transport layer.
func (s *Service) AssignSubscription(ctx context.Context, userID, planID uuid.UUID, duration enums.SubscriptionDuration) (Entitlements, error) {
	if userID == uuid.Nil || planID == uuid.Nil {
		return Entitlements{}, fmt.Errorf("%w: user id and plan id are required", ErrValidation)
	}
	if _, ok := enums.ParseSubscriptionDuration(string(duration)); !ok {
		return Entitlements{}, fmt.Errorf("%w: unknown duration %q", ErrValidation, duration)
	}

	plan, err := s.plans.ResolveByID(ctx, planID)
	if err != nil {
		return Entitlements{}, ErrPlanGone
	}

	endsAt := s.now().UTC().Add(duration.Length())
	rec, err := s.store.ApplyPlanGrant(ctx, userID, pgrepo.PlanGrant{
		PlanID:             plan.ID,
		Tier:               string(plan.Tier),
		UnlockedCourses:    plan.Allowed.Courses,
		UnlockedWebinars:   plan.Allowed.Webinars,
		UnlockedPsychology: plan.Allowed.Psychology,
		UnlockedAnalyses:   plan.Allowed.Analyses,
		EndsAt:             endsAt,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Entitlements{}, ErrNotFound
		}
		return Entitlements{}, fmt.Errorf("apply plan grant: %w", err)
	}

	return s.snapshot(ctx, rec)
}

func (s *Service) snapshot(ctx context.Context, rec pgrepo.UserRecord) (Entitlements, error) {
	ent := Entitlements{
		UserID:             rec.ID,
		Email:              rec.Email,
		Name:               rec.Name,
		PlanTier:           enums.PlanTier(rec.PlanTier),
		ExpiresAt:          rec.SubscriptionExpiresAt,
		UnlockedCourses:    rec.UnlockedCourses,
		UnlockedWebinars:   rec.UnlockedWebinars,
		UnlockedPsychology: rec.UnlockedPsychology,
		UnlockedAnalyses:   rec.UnlockedAnalyses,
	}

	active := rec.SubscriptionExpiresAt != nil && rec.SubscriptionExpiresAt.After(s.now())
	if !active {
		ent.PlanTier = enums.TierFree
		ent.ActivePlanKeys = []string{string(enums.TierFree)}
		return ent, nil
	}

	keys, err := s.plans.KeysForIDs(ctx, rec.ActivePlanIDs)
	if err != nil {
		return Entitlements{}, fmt.Errorf("resolve plan keys: %w", err)
	}
	if len(keys) == 0 {
		keys = []string{string(enums.TierFree)}
	}

	ent.SubscriptionActive = true
	ent.ActivePlanKeys = keys
	return ent, nil
}
