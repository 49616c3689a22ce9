package plans_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	redrepo "github.com/kirosamy12/otrade-backend/internal/repo/redis"
	plansvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
)

type stubPlanStore struct {
	byID      map[uuid.UUID]pgrepo.PlanRecord
	listCalls int
}

func newStubPlanStore() *stubPlanStore {
	return &stubPlanStore{byID: map[uuid.UUID]pgrepo.PlanRecord{}}
}

func (s *stubPlanStore) Create(_ context.Context, rec pgrepo.PlanRecord) (pgrepo.PlanRecord, error) {
	for _, existing := range s.byID {
		if existing.Key == rec.Key {
			return pgrepo.PlanRecord{}, pgrepo.ErrPlanKeyTaken
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *stubPlanStore) Update(_ context.Context, rec pgrepo.PlanRecord) (pgrepo.PlanRecord, error) {
	if _, ok := s.byID[rec.ID]; !ok {
		return pgrepo.PlanRecord{}, pgrepo.ErrPlanNotFound
	}
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *stubPlanStore) Delete(_ context.Context, planID uuid.UUID) error {
	if _, ok := s.byID[planID]; !ok {
		return pgrepo.ErrPlanNotFound
	}
	delete(s.byID, planID)
	return nil
}

func (s *stubPlanStore) FindByID(_ context.Context, planID uuid.UUID) (pgrepo.PlanRecord, error) {
	rec, ok := s.byID[planID]
	if !ok {
		return pgrepo.PlanRecord{}, pgrepo.ErrPlanNotFound
	}
	return rec, nil
}

func (s *stubPlanStore) FindByKey(_ context.Context, key string) (pgrepo.PlanRecord, error) {
	for _, rec := range s.byID {
		if rec.Key == key {
			return rec, nil
		}
	}
	return pgrepo.PlanRecord{}, pgrepo.ErrPlanNotFound
}

func (s *stubPlanStore) List(_ context.Context) ([]pgrepo.PlanRecord, error) {
	s.listCalls++
	out := make([]pgrepo.PlanRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	return out, nil
}

func newPlanServiceForTest(t *testing.T) (*plansvc.Service, *stubPlanStore) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newStubPlanStore()
	return plansvc.NewService(store, redrepo.NewPlanCacheRepo(client), time.Minute), store
}

func monthlyProInput() plansvc.Input {
	return plansvc.Input{
		Key:    "pro",
		Tier:   "pro",
		NameEN: "Pro",
		NameAR: "برو",
		DurationPrices: map[string]model.DurationPrice{
			"monthly": {AmountCents: 4900, Enabled: true},
			"yearly":  {AmountCents: 49000, Enabled: false},
		},
	}
}

func TestCreateRequiresPricingPath(t *testing.T) {
	svc, _ := newPlanServiceForTest(t)
	ctx := context.Background()

	in := monthlyProInput()
	in.DurationPrices = map[string]model.DurationPrice{
		"monthly": {AmountCents: 4900, Enabled: false},
	}
	if _, err := svc.Create(ctx, in); !errors.Is(err, plansvc.ErrValidation) {
		t.Fatalf("no pricing path err = %v, want ErrValidation", err)
	}

	flat := 9900
	in.PriceCents = &flat
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("flat price should satisfy the invariant: %v", err)
	}
}

func TestCreateRejectsUnknownTierAndDuration(t *testing.T) {
	svc, _ := newPlanServiceForTest(t)
	ctx := context.Background()

	in := monthlyProInput()
	in.Tier = "platinum"
	if _, err := svc.Create(ctx, in); !errors.Is(err, plansvc.ErrValidation) {
		t.Fatalf("unknown tier err = %v, want ErrValidation", err)
	}

	in = monthlyProInput()
	in.DurationPrices["weekly"] = model.DurationPrice{AmountCents: 100, Enabled: true}
	if _, err := svc.Create(ctx, in); !errors.Is(err, plansvc.ErrValidation) {
		t.Fatalf("unknown duration err = %v, want ErrValidation", err)
	}
}

func TestResolveByKeyAndDuplicateKey(t *testing.T) {
	svc, _ := newPlanServiceForTest(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, monthlyProInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Create(ctx, monthlyProInput()); !errors.Is(err, plansvc.ErrKeyTaken) {
		t.Fatalf("duplicate key err = %v, want ErrKeyTaken", err)
	}

	plan, err := svc.ResolveByKey(ctx, "PRO")
	if err != nil {
		t.Fatalf("resolve by key: %v", err)
	}
	if plan.ID != created.ID {
		t.Fatalf("resolved %s, want %s", plan.ID, created.ID)
	}
	if plan.Tier != enums.TierPro {
		t.Fatalf("tier = %s, want pro", plan.Tier)
	}

	if _, err := svc.ResolveByKey(ctx, "ghost"); !errors.Is(err, plansvc.ErrNotFound) {
		t.Fatalf("missing key err = %v, want ErrNotFound", err)
	}
}

func TestListUsesCacheUntilMutation(t *testing.T) {
	svc, store := newPlanServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, monthlyProInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("second list: %v", err)
	}
	if store.listCalls != 1 {
		t.Fatalf("store list calls = %d, want 1 (second read cached)", store.listCalls)
	}

	in := monthlyProInput()
	in.Key = "master"
	in.Tier = "master"
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("second create: %v", err)
	}

	out, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list after mutation: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("plans after mutation = %d, want 2 (cache invalidated)", len(out))
	}
}

func TestPriceForDurationFallback(t *testing.T) {
	svc, _ := newPlanServiceForTest(t)

	flat := 9900
	plan := model.Plan{
		Key:        "pro",
		PriceCents: &flat,
		DurationPrices: map[enums.SubscriptionDuration]model.DurationPrice{
			enums.DurationMonthly: {AmountCents: 4900, Enabled: true},
			enums.DurationYearly:  {AmountCents: 49000, Enabled: false},
		},
	}

	if amount, err := svc.PriceFor(plan, enums.DurationMonthly); err != nil || amount != 4900 {
		t.Fatalf("monthly = %d/%v, want 4900", amount, err)
	}
	// Disabled duration falls back to the flat price.
	if amount, err := svc.PriceFor(plan, enums.DurationYearly); err != nil || amount != 9900 {
		t.Fatalf("yearly = %d/%v, want flat 9900", amount, err)
	}

	plan.PriceCents = nil
	if _, err := svc.PriceFor(plan, enums.DurationYearly); !errors.Is(err, plansvc.ErrDurationUnavailable) {
		t.Fatalf("no price err = %v, want ErrDurationUnavailable", err)
	}
}

func TestKeysForIDsSkipsUnknownReferences(t *testing.T) {
	svc, _ := newPlanServiceForTest(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, monthlyProInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	keys, err := svc.KeysForIDs(ctx, []uuid.UUID{created.ID, uuid.New()})
	if err != nil {
		t.Fatalf("keys for ids: %v", err)
	}
	if len(keys) != 1 || keys[0] != "pro" {
		t.Fatalf("keys = %v, want [pro]", keys)
	}
}
