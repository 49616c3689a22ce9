package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirosamy12/otrade-backend/internal/domain/enums"
	"github.com/kirosamy12/otrade-backend/internal/domain/model"
	"github.com/kirosamy12/otrade-backend/internal/infra/expresspay"
	pgrepo "github.com/kirosamy12/otrade-backend/internal/repo/postgres"
	planssvc "github.com/kirosamy12/otrade-backend/internal/services/plans"
)

const (
	StatusPending   = string(enums.PaymentStatusPending)
	StatusCompleted = string(enums.PaymentStatusCompleted)
	StatusFailed    = string(enums.PaymentStatusFailed)
)

var (
	ErrValidation       = errors.New("validation error")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAlreadyFinalized = errors.New("payment already finalized")
	ErrProcessorFailure = errors.New("payment processor failure")
)

type PaymentStore interface {
	CreatePending(ctx context.Context, userID, planID uuid.UUID, duration string, amountCents int, currency string) (pgrepo.PaymentRecord, error)
	FindByID(ctx context.Context, paymentID uuid.UUID) (pgrepo.PaymentRecord, error)
	LockForActivationTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (pgrepo.PaymentRecord, error)
	MarkCompletedTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, processorTxID string, isTest bool, startsAt, endsAt time.Time) (pgrepo.PaymentRecord, error)
	MarkFailedTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, processorTxID string) (pgrepo.PaymentRecord, error)
	ListRecent(ctx context.Context, limit int) ([]pgrepo.PaymentRecord, error)
}

type EntitlementStore interface {
	ApplyPlanGrantTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, grant pgrepo.PlanGrant) (pgrepo.UserRecord, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID uuid.UUID) (pgrepo.UserRecord, error)
}

type PlanResolver interface {
	ResolveByID(ctx context.Context, planID uuid.UUID) (model.Plan, error)
	PriceFor(plan model.Plan, duration enums.SubscriptionDuration) (int, error)
}

type ProcessorClient interface {
	VerifyTransaction(ctx context.Context, token string) (expresspay.Verification, error)
}

type InitResult struct {
	PaymentID   uuid.UUID
	AmountCents int
	Currency    string
	StartsAt    time.Time
	EndsAt      time.Time
}

// Outcome is the processor's verdict as seen by the activation engine,
// whether it arrived through a verify call or a callback.
type Outcome struct {
	Success       bool
	ProcessorTxID string
	IsTest        bool
}

type ActivationResult struct {
	PaymentID  uuid.UUID
	UserID     uuid.UUID
	PlanID     uuid.UUID
	Status     string
	StartsAt   *time.Time
	EndsAt     *time.Time
	Unlocked   bool
	Idempotent bool
}

type CallbackInput struct {
	PaymentID      uuid.UUID
	ResponseStatus string
	StatusTag      string
	TransactionID  string
	IsTest         bool
}

type Service struct {
	payments     PaymentStore
	users        UserStore
	entitlements EntitlementStore
	plans        PlanResolver
	processor    ProcessorClient
	acceptedTags map[string]struct{}
	currency     string
	now          func() time.Time
	runTx        func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type Dependencies struct {
	Pool         *pgxpool.Pool
	Payments     PaymentStore
	Users        UserStore
	Entitlements EntitlementStore
	Plans        PlanResolver
	Processor    ProcessorClient
	AcceptedTags []string
	Currency     string
}

func NewService(deps Dependencies) *Service {
	tags := map[string]struct{}{}
	for _, tag := range deps.AcceptedTags {
		tag = strings.ToUpper(strings.TrimSpace(tag))
		if tag != "" {
			tags[tag] = struct{}{}
		}
	}
	if len(tags) == 0 {
		tags["APPROVED"] = struct{}{}
		tags["CAPTURED"] = struct{}{}
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "USD"
	}

	svc := &Service{
		payments:     deps.Payments,
		users:        deps.Users,
		entitlements: deps.Entitlements,
		plans:        deps.Plans,
		processor:    deps.Processor,
		acceptedTags: tags,
		currency:     currency,
		now:          time.Now,
	}
	svc.runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, deps.Pool, fn)
	}
	return svc
}

// Init creates a pending payment for a plan/duration checkout and projects
// the validity window the payment would cover if settled now.
func (s *Service) Init(ctx context.Context, userID, planID uuid.UUID, duration string) (InitResult, error) {
	if userID == uuid.Nil {
		return InitResult{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if planID == uuid.Nil {
		return InitResult{}, ErrPlanNotFound
	}
	dur, ok := enums.ParseSubscriptionDuration(strings.ToLower(strings.TrimSpace(duration)))
	if !ok {
		return InitResult{}, fmt.Errorf("%w: unknown subscription type %q", ErrValidation, duration)
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return InitResult{}, ErrUserNotFound
		}
		return InitResult{}, fmt.Errorf("find user: %w", err)
	}

	plan, err := s.plans.ResolveByID(ctx, planID)
	if err != nil {
		if errors.Is(err, planssvc.ErrNotFound) {
			return InitResult{}, ErrPlanNotFound
		}
		return InitResult{}, fmt.Errorf("resolve plan: %w", err)
	}

	amount, err := s.plans.PriceFor(plan, dur)
	if err != nil {
		if errors.Is(err, planssvc.ErrDurationUnavailable) {
			return InitResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return InitResult{}, fmt.Errorf("resolve price: %w", err)
	}

	currency := plan.Currency
	if currency == "" {
		currency = s.currency
	}

	rec, err := s.payments.CreatePending(ctx, userID, planID, string(dur), amount, currency)
	if err != nil {
		return InitResult{}, fmt.Errorf("create pending payment: %w", err)
	}

	startsAt := s.now().UTC()
	return InitResult{
		PaymentID:   rec.ID,
		AmountCents: rec.AmountCents,
		Currency:    rec.Currency,
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(dur.Length()),
	}, nil
}

// Verify is the user-initiated synchronous path: ask the processor for the
// checkout token's final state, then run activation with that outcome.
func (s *Service) Verify(ctx context.Context, userID, paymentID uuid.UUID, processorCode string) (ActivationResult, error) {
	if paymentID == uuid.Nil || strings.TrimSpace(processorCode) == "" {
		return ActivationResult{}, fmt.Errorf("%w: payment id and processor code are required", ErrValidation)
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentNotFound) {
			return ActivationResult{}, ErrPaymentNotFound
		}
		return ActivationResult{}, fmt.Errorf("find payment: %w", err)
	}
	if userID != uuid.Nil && payment.UserID != userID {
		return ActivationResult{}, ErrPaymentNotFound
	}
	if enums.PaymentStatus(payment.Status).IsTerminal() {
		return ActivationResult{}, fmt.Errorf("%w: payment is %s", ErrAlreadyFinalized, payment.Status)
	}

	verification, err := s.processor.VerifyTransaction(ctx, processorCode)
	if err != nil {
		if errors.Is(err, expresspay.ErrUnreachable) {
			return ActivationResult{}, fmt.Errorf("%w: %v", ErrProcessorFailure, err)
		}
		return ActivationResult{}, fmt.Errorf("%w: %v", ErrProcessorFailure, err)
	}

	return s.Activate(ctx, paymentID, s.outcomeFrom(verification.Status, verification.StatusTag, verification.TransactionID, verification.IsTest))
}

// HandleCallback is the server-to-server path. It never trusts the caller's
// success markers beyond the processor status/tag pair and is safe to retry.
func (s *Service) HandleCallback(ctx context.Context, in CallbackInput) (ActivationResult, error) {
	if in.PaymentID == uuid.Nil {
		return ActivationResult{}, fmt.Errorf("%w: payment_id is required", ErrValidation)
	}
	return s.Activate(ctx, in.PaymentID, s.outcomeFrom(in.ResponseStatus, in.StatusTag, in.TransactionID, in.IsTest))
}

// Activate settles a payment and applies its entitlement delta as one atomic
// unit. An already-terminal payment short-circuits inside the row lock, so
// two interleaved attempts can never both apply the unlock.
func (s *Service) Activate(ctx context.Context, paymentID uuid.UUID, outcome Outcome) (ActivationResult, error) {
	var result ActivationResult

	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		payment, err := s.payments.LockForActivationTx(txCtx, tx, paymentID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPaymentNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("lock payment: %w", err)
		}

		if enums.PaymentStatus(payment.Status).IsTerminal() {
			result = mapResult(payment)
			result.Idempotent = true
			return nil
		}

		if !outcome.Success {
			failed, err := s.payments.MarkFailedTx(txCtx, tx, payment.ID, outcome.ProcessorTxID)
			if err != nil {
				return fmt.Errorf("mark payment failed: %w", err)
			}
			result = mapResult(failed)
			return nil
		}

		plan, err := s.plans.ResolveByID(txCtx, payment.PlanID)
		if err != nil {
			return fmt.Errorf("resolve plan %s: %w", payment.PlanID, err)
		}

		duration, ok := enums.ParseSubscriptionDuration(payment.Duration)
		if !ok {
			return fmt.Errorf("payment %s has unknown duration %q", payment.ID, payment.Duration)
		}

		startsAt := s.now().UTC()
		if payment.StartsAt != nil {
			startsAt = *payment.StartsAt
		}
		endsAt := startsAt.Add(duration.Length())
		if payment.EndsAt != nil {
			endsAt = *payment.EndsAt
		}

		completed, err := s.payments.MarkCompletedTx(txCtx, tx, payment.ID, outcome.ProcessorTxID, outcome.IsTest, startsAt, endsAt)
		if err != nil {
			return fmt.Errorf("mark payment completed: %w", err)
		}

		if _, err := s.entitlements.ApplyPlanGrantTx(txCtx, tx, payment.UserID, pgrepo.PlanGrant{
			PlanID:             plan.ID,
			Tier:               string(plan.Tier),
			UnlockedCourses:    plan.Allowed.Courses,
			UnlockedWebinars:   plan.Allowed.Webinars,
			UnlockedPsychology: plan.Allowed.Psychology,
			UnlockedAnalyses:   plan.Allowed.Analyses,
			EndsAt:             endsAt,
		}); err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("apply plan grant: %w", err)
		}

		result = mapResult(completed)
		result.Unlocked = true
		return nil
	})
	if err != nil {
		return ActivationResult{}, err
	}
	return result, nil
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]pgrepo.PaymentRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	recs, err := s.payments.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return recs, nil
}

// outcomeFrom applies the double check the processor contract requires: the
// overall status must indicate success AND the status tag must be in the
// accepted set. Anything else is a failed outcome, never ignored.
func (s *Service) outcomeFrom(status, tag, txID string, isTest bool) Outcome {
	success := strings.EqualFold(strings.TrimSpace(status), "success")
	if success {
		_, accepted := s.acceptedTags[strings.ToUpper(strings.TrimSpace(tag))]
		success = accepted
	}
	return Outcome{
		Success:       success,
		ProcessorTxID: strings.TrimSpace(txID),
		IsTest:        isTest,
	}
}

func mapResult(rec pgrepo.PaymentRecord) ActivationResult {
	return ActivationResult{
		PaymentID: rec.ID,
		UserID:    rec.UserID,
		PlanID:    rec.PlanID,
		Status:    rec.Status,
		StartsAt:  rec.StartsAt,
		EndsAt:    rec.EndsAt,
		Unlocked:  rec.Status == StatusCompleted,
	}
}
