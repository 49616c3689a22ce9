package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserEmailTaken = errors.New("user email already taken")
)

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID                    uuid.UUID
	Email                 string
	PasswordHash          string
	Name                  string
	PlanTier              string
	SubscriptionExpiresAt *time.Time
	ActivePlanIDs         []uuid.UUID
	UnlockedCourses       []uuid.UUID
	UnlockedWebinars      []uuid.UUID
	UnlockedPsychology    []uuid.UUID
	UnlockedAnalyses      []uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PlanGrant is the entitlement delta activation applies: the plan reference,
// its denormalized tier label, per-category unlock references, and the new
// validity end.
type PlanGrant struct {
	PlanID             uuid.UUID
	Tier               string
	UnlockedCourses    []uuid.UUID
	UnlockedWebinars   []uuid.UUID
	UnlockedPsychology []uuid.UUID
	UnlockedAnalyses   []uuid.UUID
	EndsAt             time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, rec UserRecord) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if email == "" || rec.PasswordHash == "" {
		return UserRecord{}, fmt.Errorf("invalid user payload")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.PlanTier == "" {
		rec.PlanTier = "free"
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, password_hash, name, plan_tier, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING `+userColumns+`
`, rec.ID, email, rec.PasswordHash, rec.Name, rec.PlanTier)

	out, err := scanUserRow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return UserRecord{}, ErrUserEmailTaken
		}
		return UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	return out, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE email = $1
LIMIT 1
`, strings.ToLower(strings.TrimSpace(email)))

	rec, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by email: %w", err)
	}
	return rec, nil
}

func (r *UserRepo) FindByID(ctx context.Context, userID uuid.UUID) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
LIMIT 1
`, userID)

	rec, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by id: %w", err)
	}
	return rec, nil
}

// ApplyPlanGrantTx unions the grant into the user's entitlement sets and
// extends the subscription expiry, never shrinking it. Must run inside the
// activation transaction.
func (r *UserRepo) ApplyPlanGrantTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, grant PlanGrant) (UserRecord, error) {
	if tx == nil {
		return UserRecord{}, fmt.Errorf("transaction is required")
	}
	if userID == uuid.Nil || grant.PlanID == uuid.Nil {
		return UserRecord{}, fmt.Errorf("invalid plan grant payload")
	}

	row := tx.QueryRow(ctx, `
UPDATE users
SET
	plan_tier = $2,
	active_plan_ids = ARRAY(SELECT DISTINCT x FROM unnest(active_plan_ids || $3::uuid[]) AS x),
	unlocked_courses = ARRAY(SELECT DISTINCT x FROM unnest(unlocked_courses || $4::uuid[]) AS x),
	unlocked_webinars = ARRAY(SELECT DISTINCT x FROM unnest(unlocked_webinars || $5::uuid[]) AS x),
	unlocked_psychology = ARRAY(SELECT DISTINCT x FROM unnest(unlocked_psychology || $6::uuid[]) AS x),
	unlocked_analyses = ARRAY(SELECT DISTINCT x FROM unnest(unlocked_analyses || $7::uuid[]) AS x),
	subscription_expires_at = GREATEST(COALESCE(subscription_expires_at, $8::timestamptz), $8::timestamptz),
	updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns+`
`,
		userID,
		grant.Tier,
		[]uuid.UUID{grant.PlanID},
		emptyIfNil(grant.UnlockedCourses),
		emptyIfNil(grant.UnlockedWebinars),
		emptyIfNil(grant.UnlockedPsychology),
		emptyIfNil(grant.UnlockedAnalyses),
		grant.EndsAt.UTC(),
	)

	rec, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("apply plan grant: %w", err)
	}
	return rec, nil
}

// ApplyPlanGrant is the non-payment path (explicit admin assignment); it
// wraps the tx variant in its own transaction.
func (r *UserRepo) ApplyPlanGrant(ctx context.Context, userID uuid.UUID, grant PlanGrant) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var out UserRecord
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := r.ApplyPlanGrantTx(txCtx, tx, userID, grant)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return UserRecord{}, err
	}
	return out, nil
}

const userColumns = `
	id,
	email,
	password_hash,
	name,
	plan_tier,
	subscription_expires_at,
	active_plan_ids,
	unlocked_courses,
	unlocked_webinars,
	unlocked_psychology,
	unlocked_analyses,
	created_at,
	updated_at`

func scanUserRow(row pgx.Row) (UserRecord, error) {
	var rec UserRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.PasswordHash,
		&rec.Name,
		&rec.PlanTier,
		&rec.SubscriptionExpiresAt,
		&rec.ActivePlanIDs,
		&rec.UnlockedCourses,
		&rec.UnlockedWebinars,
		&rec.UnlockedPsychology,
		&rec.UnlockedAnalyses,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return UserRecord{}, err
	}
	return rec, nil
}

func emptyIfNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
