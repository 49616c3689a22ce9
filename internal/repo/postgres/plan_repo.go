package postgres

import (
	"context"
	"encoding/json"
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
	ErrPlanNotFound = errors.New("plan not found")
	ErrPlanKeyTaken = errors.New("plan key already taken")
)

type PlanRepo struct {
	pool *pgxpool.Pool
}

type DurationPriceRecord struct {
	AmountCents int  `json:"amount_cents"`
	Enabled     bool `json:"enabled"`
}

type PlanRecord struct {
	ID                uuid.UUID
	Key               string
	Tier              string
	NameEN            string
	NameAR            string
	DescriptionEN     string
	DescriptionAR     string
	PriceCents        *int
	Currency          string
	DurationPrices    map[string]DurationPriceRecord
	AllowedCourses    []uuid.UUID
	AllowedWebinars   []uuid.UUID
	AllowedPsychology []uuid.UUID
	AllowedAnalyses   []uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

func (r *PlanRepo) Create(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}

	key := strings.ToLower(strings.TrimSpace(rec.Key))
	if key == "" {
		return PlanRecord{}, fmt.Errorf("plan key is required")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	pricesJSON, err := marshalDurationPrices(rec.DurationPrices)
	if err != nil {
		return PlanRecord{}, err
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO plans (
	id, key, tier, name_en, name_ar, description_en, description_ar,
	price_cents, currency, duration_prices,
	allowed_courses, allowed_webinars, allowed_psychology, allowed_analyses,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14, NOW(), NOW())
RETURNING `+planColumns+`
`,
		rec.ID, key, rec.Tier, rec.NameEN, rec.NameAR, rec.DescriptionEN, rec.DescriptionAR,
		rec.PriceCents, rec.Currency, pricesJSON,
		emptyIfNil(rec.AllowedCourses), emptyIfNil(rec.AllowedWebinars),
		emptyIfNil(rec.AllowedPsychology), emptyIfNil(rec.AllowedAnalyses),
	)

	out, err := scanPlanRow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PlanRecord{}, ErrPlanKeyTaken
		}
		return PlanRecord{}, fmt.Errorf("create plan: %w", err)
	}
	return out, nil
}

func (r *PlanRepo) Update(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == uuid.Nil {
		return PlanRecord{}, fmt.Errorf("plan id is required")
	}

	pricesJSON, err := marshalDurationPrices(rec.DurationPrices)
	if err != nil {
		return PlanRecord{}, err
	}

	row := r.pool.QueryRow(ctx, `
UPDATE plans
SET
	key = $2,
	tier = $3,
	name_en = $4,
	name_ar = $5,
	description_en = $6,
	description_ar = $7,
	price_cents = $8,
	currency = $9,
	duration_prices = $10::jsonb,
	allowed_courses = $11,
	allowed_webinars = $12,
	allowed_psychology = $13,
	allowed_analyses = $14,
	updated_at = NOW()
WHERE id = $1
RETURNING `+planColumns+`
`,
		rec.ID, strings.ToLower(strings.TrimSpace(rec.Key)), rec.Tier,
		rec.NameEN, rec.NameAR, rec.DescriptionEN, rec.DescriptionAR,
		rec.PriceCents, rec.Currency, pricesJSON,
		emptyIfNil(rec.AllowedCourses), emptyIfNil(rec.AllowedWebinars),
		emptyIfNil(rec.AllowedPsychology), emptyIfNil(rec.AllowedAnalyses),
	)

	out, err := scanPlanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("update plan: %w", err)
	}
	return out, nil
}

func (r *PlanRepo) Delete(ctx context.Context, planID uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, planID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, planID uuid.UUID) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+planColumns+`
FROM plans
WHERE id = $1
LIMIT 1
`, planID)

	rec, err := scanPlanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("find plan by id: %w", err)
	}
	return rec, nil
}

func (r *PlanRepo) FindByKey(ctx context.Context, key string) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+planColumns+`
FROM plans
WHERE key = $1
LIMIT 1
`, strings.ToLower(strings.TrimSpace(key)))

	rec, err := scanPlanRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("find plan by key: %w", err)
	}
	return rec, nil
}

func (r *PlanRepo) List(ctx context.Context) ([]PlanRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+planColumns+`
FROM plans
ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		rec, err := scanPlanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const planColumns = `
	id,
	key,
	tier,
	name_en,
	name_ar,
	description_en,
	description_ar,
	price_cents,
	currency,
	duration_prices,
	allowed_courses,
	allowed_webinars,
	allowed_psychology,
	allowed_analyses,
	created_at,
	updated_at`

func scanPlanRow(row pgx.Row) (PlanRecord, error) {
	var rec PlanRecord
	var pricesRaw []byte
	if err := row.Scan(
		&rec.ID,
		&rec.Key,
		&rec.Tier,
		&rec.NameEN,
		&rec.NameAR,
		&rec.DescriptionEN,
		&rec.DescriptionAR,
		&rec.PriceCents,
		&rec.Currency,
		&pricesRaw,
		&rec.AllowedCourses,
		&rec.AllowedWebinars,
		&rec.AllowedPsychology,
		&rec.AllowedAnalyses,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return PlanRecord{}, err
	}
	rec.DurationPrices = decodeDurationPrices(pricesRaw)
	return rec, nil
}

func marshalDurationPrices(prices map[string]DurationPriceRecord) (string, error) {
	if len(prices) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(prices)
	if err != nil {
		return "", fmt.Errorf("marshal duration prices: %w", err)
	}
	return string(raw), nil
}

func decodeDurationPrices(raw []byte) map[string]DurationPriceRecord {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var prices map[string]DurationPriceRecord
	if err := json.Unmarshal(raw, &prices); err != nil {
		return nil
	}
	return prices
}
