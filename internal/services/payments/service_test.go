package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	"github.com/kirosamy12/otrade-backend/internal/infra/expresspay"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
)

type stubPaymentStore struct {
	byID      map[uuid.UUID]pgrepo.PaymentRecord
	lockCalls int
}

func (s *stubPaymentStore) CreatePending(_ context.Context, userID, planID uuid.UUID, duration string, amountCents int, currency string) (pgrepo.PaymentRecord, error) {
	rec := pgrepo.PaymentRecord{
		ID:          uuid.New(),
		UserID:      userID,
		PlanID:      planID,
		Duration:    duration,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *stubPaymentStore) FindByID(_ context.Context, paymentID uuid.UUID) (pgrepo.PaymentRecord, error) {
	rec, ok := s.byID[paymentID]
	if !ok {
		return pgrepo.PaymentRecord{}, pgrepo.ErrPaymentNotFound
	}
	return rec, nil
}

func (s *stubPaymentStore) LockForActivationTx(_ context.Context, _ pgx.Tx, paymentID uuid.UUID) (pgrepo.PaymentRecord, error) {
	s.lockCalls++
	rec, ok := s.byID[paymentID]
	if !ok {
		return pgrepo.PaymentRecord{}, pgrepo.ErrPaymentNotFound
	}
	return rec, nil
}

func (s *stubPaymentStore) MarkCompletedTx(_ context.Context, _ pgx.Tx, paymentID uuid.UUID, processorTxID string, isTest bool, startsAt, endsAt time.Time) (pgrepo.PaymentRecord, error) {
	rec := s.byID[paymentID]
	rec.Status = StatusCompleted
	rec.ProcessorTxID = &processorTxID
	rec.IsTest = isTest
	rec.StartsAt = &startsAt
	rec.EndsAt = &endsAt
	s.byID[paymentID] = rec
	return rec, nil
}

func (s *stubPaymentStore) MarkFailedTx(_ context.Context, _ pgx.Tx, paymentID uuid.UUID, processorTxID string) (pgrepo.PaymentRecord, error) {
	rec := s.byID[paymentID]
	rec.Status = StatusFailed
	if processorTxID != "" {
		rec.ProcessorTxID = &processorTxID
	}
	s.byID[paymentID] = rec
	return rec, nil
}

func (s *stubPaymentStore) ListRecent(_ context.Context, limit int) ([]pgrepo.PaymentRecord, error) {
	out := make([]pgrepo.PaymentRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubUserStore struct {
	byID map[uuid.UUID]pgrepo.UserRecord
}

func (s *stubUserStore) FindByID(_ context.Context, userID uuid.UUID) (pgrepo.UserRecord, error) {
	rec, ok := s.byID[userID]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return rec, nil
}

type stubEntitlementStore struct {
	users  *stubUserStore
	grants []pgrepo.PlanGrant
	fail   error
}

func (s *stubEntitlementStore) ApplyPlanGrantTx(_ context.Context, _ pgx.Tx, userID uuid.UUID, grant pgrepo.PlanGrant) (pgrepo.UserRecord, error) {
	if s.fail != nil {
		return pgrepo.UserRecord{}, s.fail
	}
	rec, ok := s.users.byID[userID]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}

	s.grants = append(s.grants, grant)
	rec.PlanTier = grant.Tier
	rec.ActivePlanIDs = unionIDs(rec.ActivePlanIDs, []uuid.UUID{grant.PlanID})
	rec.UnlockedCourses = unionIDs(rec.UnlockedCourses, grant.UnlockedCourses)
	rec.UnlockedWebinars = unionIDs(rec.UnlockedWebinars, grant.UnlockedWebinars)
	rec.UnlockedPsychology = unionIDs(rec.UnlockedPsychology, grant.UnlockedPsychology)
	rec.UnlockedAnalyses = unionIDs(rec.UnlockedAnalyses, grant.UnlockedAnalyses)
	if rec.SubscriptionExpiresAt == nil || grant.EndsAt.After(*rec.SubscriptionExpiresAt) {
		endsAt := grant.EndsAt
		rec.SubscriptionExpiresAt = &endsAt
	}
	s.users.byID[userID] = rec
	return rec, nil
}

func unionIDs(current, add []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := make([]uuid.UUID, 0, len(current)+len(add))
	for _, id := range append(append([]uuid.UUID{}, current...), add...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type stubPlanResolver struct {
	byID map[uuid.UUID]model.Plan
}

func (s *stubPlanResolver) ResolveByID(_ context.Context, planID uuid.UUID) (model.Plan, error) {
	plan, ok := s.byID[planID]
	if !ok {
		return model.Plan{}, errors.New("plan not found")
	}
	return plan, nil
}

func (s *stubPlanResolver) PriceFor(plan model.Plan, duration enums.SubscriptionDuration) (int, error) {
	if dp, ok := plan.DurationPrices[duration]; ok && dp.Enabled {
		return dp.AmountCents, nil
	}
	if plan.PriceCents != nil {
		return *plan.PriceCents, nil
	}
	return 0, errors.New("no price")
}

type stubProcessor struct {
	verification expresspay.Verification
	err          error
}

func (s *stubProcessor) VerifyTransaction(_ context.Context, _ string) (expresspay.Verification, error) {
	return s.verification, s.err
}

type fixture struct {
	svc          *Service
	payments     *stubPaymentStore
	users        *stubUserStore
	entitlements *stubEntitlementStore
	plans        *stubPlanResolver
	processor    *stubProcessor
	userID       uuid.UUID
	planID       uuid.UUID
	courses      []uuid.UUID
}

// newFixture wires the service against in-memory stores. The transaction
// seam snapshots store state before each unit and restores it on error, so
// rollback behaves like the real WithTx.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		payments:  &stubPaymentStore{byID: map[uuid.UUID]pgrepo.PaymentRecord{}},
		users:     &stubUserStore{byID: map[uuid.UUID]pgrepo.UserRecord{}},
		plans:     &stubPlanResolver{byID: map[uuid.UUID]model.Plan{}},
		processor: &stubProcessor{},
		userID:    uuid.New(),
		planID:    uuid.New(),
		courses:   []uuid.UUID{uuid.New(), uuid.New()},
	}
	f.entitlements = &stubEntitlementStore{users: f.users}

	f.users.byID[f.userID] = pgrepo.UserRecord{ID: f.userID, PlanTier: "free"}
	f.plans.byID[f.planID] = model.Plan{
		ID:   f.planID,
		Key:  "pro",
		Tier: enums.TierPro,
		DurationPrices: map[enums.SubscriptionDuration]model.DurationPrice{
			enums.DurationMonthly: {AmountCents: 4900, Enabled: true},
		},
		Allowed: model.AllowedContent{Courses: f.courses},
	}

	f.svc = NewService(Dependencies{
		Payments:     f.payments,
		Users:        f.users,
		Entitlements: f.entitlements,
		Plans:        f.plans,
		Processor:    f.processor,
		AcceptedTags: []string{"APPROVED", "CAPTURED"},
	})
	f.svc.runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
		paymentsBefore := map[uuid.UUID]pgrepo.PaymentRecord{}
		for id, rec := range f.payments.byID {
			paymentsBefore[id] = rec
		}
		usersBefore := map[uuid.UUID]pgrepo.UserRecord{}
		for id, rec := range f.users.byID {
			usersBefore[id] = rec
		}

		if err := fn(ctx, nil); err != nil {
			f.payments.byID = paymentsBefore
			f.users.byID = usersBefore
			return err
		}
		return nil
	}
	return f
}

func (f *fixture) initPayment(t *testing.T) InitResult {
	t.Helper()
	res, err := f.svc.Init(context.Background(), f.userID, f.planID, "monthly")
	if err != nil {
		t.Fatalf("init payment: %v", err)
	}
	return res
}

func TestInitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.initPayment(t)
	if res.AmountCents != 4900 || res.Currency != "USD" {
		t.Fatalf("init = %+v, want 4900 USD", res)
	}
	window := res.EndsAt.Sub(res.StartsAt)
	if window != 30*24*time.Hour {
		t.Fatalf("projected window = %v, want 30 days", window)
	}

	if _, err := f.svc.Init(ctx, f.userID, f.planID, "weekly"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad duration err = %v, want ErrValidation", err)
	}
	if _, err := f.svc.Init(ctx, f.userID, uuid.New(), "monthly"); err == nil {
		t.Fatal("missing plan accepted")
	}
	if _, err := f.svc.Init(ctx, uuid.New(), f.planID, "monthly"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user err = %v, want ErrUserNotFound", err)
	}
}

func TestActivateAppliesEntitlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	init := f.initPayment(t)

	res, err := f.svc.Activate(ctx, init.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-1"})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if res.Status != StatusCompleted || !res.Unlocked || res.Idempotent {
		t.Fatalf("result = %+v, want completed/unlocked/first-run", res)
	}

	user := f.users.byID[f.userID]
	if user.PlanTier != "pro" {
		t.Fatalf("tier = %q, want pro", user.PlanTier)
	}
	if len(user.ActivePlanIDs) != 1 || user.ActivePlanIDs[0] != f.planID {
		t.Fatalf("active plans = %v, want [%s]", user.ActivePlanIDs, f.planID)
	}
	if len(user.UnlockedCourses) != len(f.courses) {
		t.Fatalf("unlocked courses = %v, want %v", user.UnlockedCourses, f.courses)
	}
	if user.SubscriptionExpiresAt == nil || time.Until(*user.SubscriptionExpiresAt) < 29*24*time.Hour {
		t.Fatalf("expiry = %v, want ~30 days out", user.SubscriptionExpiresAt)
	}

	payment := f.payments.byID[init.PaymentID]
	if payment.ProcessorTxID == nil || *payment.ProcessorTxID != "tx-1" {
		t.Fatalf("processor tx id = %v, want tx-1", payment.ProcessorTxID)
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	init := f.initPayment(t)

	if _, err := f.svc.Activate(ctx, init.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-1"}); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	userAfterFirst := f.users.byID[f.userID]

	res, err := f.svc.Activate(ctx, init.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-1"})
	if err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if !res.Idempotent || res.Status != StatusCompleted {
		t.Fatalf("second result = %+v, want idempotent completed", res)
	}
	if len(f.entitlements.grants) != 1 {
		t.Fatalf("grants applied %d times, want 1", len(f.entitlements.grants))
	}

	userAfterSecond := f.users.byID[f.userID]
	if len(userAfterSecond.ActivePlanIDs) != len(userAfterFirst.ActivePlanIDs) ||
		len(userAfterSecond.UnlockedCourses) != len(userAfterFirst.UnlockedCourses) ||
		!userAfterSecond.SubscriptionExpiresAt.Equal(*userAfterFirst.SubscriptionExpiresAt) {
		t.Fatalf("entitlements changed on replay: %+v vs %+v", userAfterSecond, userAfterFirst)
	}
}

func TestActivateRejectedTagFailsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	init := f.initPayment(t)

	res, err := f.svc.HandleCallback(ctx, CallbackInput{
		PaymentID:      init.PaymentID,
		ResponseStatus: "success",
		StatusTag:      "DECLINED",
		TransactionID:  "tx-2",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if res.Status != StatusFailed || res.Unlocked {
		t.Fatalf("result = %+v, want failed without unlock", res)
	}
	if len(f.entitlements.grants) != 0 {
		t.Fatal("failed payment applied a grant")
	}
	if f.users.byID[f.userID].PlanTier != "free" {
		t.Fatal("failed payment changed the user's tier")
	}
}

func TestActivateRollsBackOnGrantFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	init := f.initPayment(t)

	f.entitlements.fail = errors.New("users table gone")
	if _, err := f.svc.Activate(ctx, init.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-3"}); err == nil {
		t.Fatal("expected activation error")
	}

	// Whole unit rolled back: payment must still be pending.
	if status := f.payments.byID[init.PaymentID].Status; status != StatusPending {
		t.Fatalf("payment status = %q after rollback, want pending", status)
	}

	f.entitlements.fail = nil
	if _, err := f.svc.Activate(ctx, init.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-3"}); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestCallbackReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	init := f.initPayment(t)

	in := CallbackInput{
		PaymentID:      init.PaymentID,
		ResponseStatus: "success",
		StatusTag:      "APPROVED",
		TransactionID:  "tx-4",
	}
	first, err := f.svc.HandleCallback(ctx, in)
	if err != nil {
		t.Fatalf("first callback: %v", err)
	}
	second, err := f.svc.HandleCallback(ctx, in)
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}

	if first.Idempotent || !second.Idempotent {
		t.Fatalf("idempotent flags = %v/%v, want false/true", first.Idempotent, second.Idempotent)
	}
	if second.Status != StatusCompleted {
		t.Fatalf("replay status = %q, want completed", second.Status)
	}
	if len(f.entitlements.grants) != 1 {
		t.Fatalf("grants applied %d times, want 1", len(f.entitlements.grants))
	}
}

func TestVerifyPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	init := f.initPayment(t)

	if _, err := f.svc.Verify(ctx, f.userID, uuid.New(), "code"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("unknown payment err = %v, want ErrPaymentNotFound", err)
	}
	// Another user's payment is indistinguishable from a missing one.
	if _, err := f.svc.Verify(ctx, uuid.New(), init.PaymentID, "code"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("foreign payment err = %v, want ErrPaymentNotFound", err)
	}

	f.processor.err = expresspay.ErrUnreachable
	if _, err := f.svc.Verify(ctx, f.userID, init.PaymentID, "code"); !errors.Is(err, ErrProcessorFailure) {
		t.Fatalf("unreachable processor err = %v, want ErrProcessorFailure", err)
	}

	f.processor.err = nil
	f.processor.verification = expresspay.Verification{
		Status:        "success",
		StatusTag:     "CAPTURED",
		TransactionID: "tx-5",
	}
	res, err := f.svc.Verify(ctx, f.userID, init.PaymentID, "code")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Status != StatusCompleted || !res.Unlocked {
		t.Fatalf("verify result = %+v, want completed", res)
	}

	if _, err := f.svc.Verify(ctx, f.userID, init.PaymentID, "code"); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("terminal payment err = %v, want ErrAlreadyFinalized", err)
	}
}

func TestCallbackUnknownPaymentReturnsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleCallback(context.Background(), CallbackInput{
		PaymentID:      uuid.New(),
		ResponseStatus: "success",
		StatusTag:      "APPROVED",
		TransactionID:  "tx-6",
	})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("unknown payment err = %v, want ErrPaymentNotFound", err)
	}
	if len(f.entitlements.grants) != 0 {
		t.Fatal("unknown payment applied a grant")
	}
}

func TestActivateShorterGrantKeepsLaterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.plans.byID[f.planID].DurationPrices[enums.DurationYearly] = model.DurationPrice{AmountCents: 39900, Enabled: true}

	yearly, err := f.svc.Init(ctx, f.userID, f.planID, "yearly")
	if err != nil {
		t.Fatalf("init yearly: %v", err)
	}
	if _, err := f.svc.Activate(ctx, yearly.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-7"}); err != nil {
		t.Fatalf("activate yearly: %v", err)
	}
	expiryAfterYearly := f.users.byID[f.userID].SubscriptionExpiresAt
	if expiryAfterYearly == nil {
		t.Fatal("yearly activation left no expiry")
	}

	monthly, err := f.svc.Init(ctx, f.userID, f.planID, "monthly")
	if err != nil {
		t.Fatalf("init monthly: %v", err)
	}
	if _, err := f.svc.Activate(ctx, monthly.PaymentID, Outcome{Success: true, ProcessorTxID: "tx-8"}); err != nil {
		t.Fatalf("activate monthly: %v", err)
	}

	// The shorter grant widens entitlements but must never pull the
	// subscription window backward.
	expiryAfterMonthly := f.users.byID[f.userID].SubscriptionExpiresAt
	if expiryAfterMonthly == nil || !expiryAfterMonthly.Equal(*expiryAfterYearly) {
		t.Fatalf("expiry moved from %v to %v after shorter grant", expiryAfterYearly, expiryAfterMonthly)
	}
}
