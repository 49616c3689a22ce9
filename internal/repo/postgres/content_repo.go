package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrContentNotFound = errors.New("content item not found")

type ContentRepo struct {
	pool *pgxpool.Pool
}

type TranslationRecord struct {
	Language    string
	Title       string
	Description string
	Body        string
}

type ContentRecord struct {
	ID               uuid.UUID
	Category         string
	Unrestricted     bool
	RequiredPlanKeys []string
	RequiredPlanIDs  []uuid.UUID
	ContentURL       *string
	CoverImageURL    *string
	Market           *string
	Level            *string
	EventAt          *time.Time
	Translations     []TranslationRecord
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewContentRepo(pool *pgxpool.Pool) *ContentRepo {
	return &ContentRepo{pool: pool}
}

func (r *ContentRepo) Create(ctx context.Context, rec ContentRecord) (ContentRecord, error) {
	if r.pool == nil {
		return ContentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if rec.Category == "" {
		return ContentRecord{}, fmt.Errorf("content category is required")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	var out ContentRecord
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(txCtx, `
INSERT INTO content_items (
	id, category, unrestricted, required_plan_keys, required_plan_ids,
	content_url, cover_image_url, market, level, event_at,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING `+contentColumns+`
`,
			rec.ID, rec.Category, rec.Unrestricted,
			emptyStringsIfNil(rec.RequiredPlanKeys), emptyIfNil(rec.RequiredPlanIDs),
			rec.ContentURL, rec.CoverImageURL, rec.Market, rec.Level, rec.EventAt,
		)

		created, err := scanContentRow(row)
		if err != nil {
			return fmt.Errorf("create content item: %w", err)
		}

		if err := replaceTranslationsTx(txCtx, tx, created.ID, rec.Translations); err != nil {
			return err
		}
		created.Translations = rec.Translations
		out = created
		return nil
	})
	if err != nil {
		return ContentRecord{}, err
	}
	return out, nil
}

func (r *ContentRepo) Update(ctx context.Context, rec ContentRecord) (ContentRecord, error) {
	if r.pool == nil {
		return ContentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == uuid.Nil {
		return ContentRecord{}, fmt.Errorf("content id is required")
	}

	var out ContentRecord
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(txCtx, `
UPDATE content_items
SET
	unrestricted = $2,
	required_plan_keys = $3,
	required_plan_ids = $4,
	content_url = $5,
	cover_image_url = $6,
	market = $7,
	level = $8,
	event_at = $9,
	updated_at = NOW()
WHERE id = $1
RETURNING `+contentColumns+`
`,
			rec.ID, rec.Unrestricted,
			emptyStringsIfNil(rec.RequiredPlanKeys), emptyIfNil(rec.RequiredPlanIDs),
			rec.ContentURL, rec.CoverImageURL, rec.Market, rec.Level, rec.EventAt,
		)

		updated, err := scanContentRow(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrContentNotFound
			}
			return fmt.Errorf("update content item: %w", err)
		}

		if err := replaceTranslationsTx(txCtx, tx, updated.ID, rec.Translations); err != nil {
			return err
		}
		updated.Translations = rec.Translations
		out = updated
		return nil
	})
	if err != nil {
		return ContentRecord{}, err
	}
	return out, nil
}

func (r *ContentRepo) Delete(ctx context.Context, contentID uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, contentID)
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *ContentRepo) FindByID(ctx context.Context, contentID uuid.UUID) (ContentRecord, error) {
	if r.pool == nil {
		return ContentRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+contentColumns+`
FROM content_items
WHERE id = $1
LIMIT 1
`, contentID)

	rec, err := scanContentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContentRecord{}, ErrContentNotFound
		}
		return ContentRecord{}, fmt.Errorf("find content by id: %w", err)
	}

	translations, err := r.loadTranslations(ctx, []uuid.UUID{rec.ID})
	if err != nil {
		return ContentRecord{}, err
	}
	rec.Translations = translations[rec.ID]
	return rec, nil
}

func (r *ContentRepo) ListByCategory(ctx context.Context, category string) ([]ContentRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+contentColumns+`
FROM content_items
WHERE category = $1
ORDER BY created_at DESC
`, category)
	if err != nil {
		return nil, fmt.Errorf("list content by category: %w", err)
	}
	defer rows.Close()

	var out []ContentRecord
	var ids []uuid.UUID
	for rows.Next() {
		rec, err := scanContentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		out = append(out, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	translations, err := r.loadTranslations(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Translations = translations[out[i].ID]
	}
	return out, nil
}

func (r *ContentRepo) loadTranslations(ctx context.Context, contentIDs []uuid.UUID) (map[uuid.UUID][]TranslationRecord, error) {
	if len(contentIDs) == 0 {
		return map[uuid.UUID][]TranslationRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT content_id, language, title, description, body
FROM content_translations
WHERE content_id = ANY($1)
ORDER BY content_id, language
`, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("load content translations: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]TranslationRecord, len(contentIDs))
	for rows.Next() {
		var contentID uuid.UUID
		var tr TranslationRecord
		if err := rows.Scan(&contentID, &tr.Language, &tr.Title, &tr.Description, &tr.Body); err != nil {
			return nil, fmt.Errorf("scan translation row: %w", err)
		}
		out[contentID] = append(out[contentID], tr)
	}
	return out, rows.Err()
}

func replaceTranslationsTx(ctx context.Context, tx pgx.Tx, contentID uuid.UUID, translations []TranslationRecord) error {
	if _, err := tx.Exec(ctx, `DELETE FROM content_translations WHERE content_id = $1`, contentID); err != nil {
		return fmt.Errorf("clear content translations: %w", err)
	}

	for _, tr := range translations {
		if tr.Language == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO content_translations (content_id, language, title, description, body)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_id, language) DO UPDATE
SET title = EXCLUDED.title, description = EXCLUDED.description, body = EXCLUDED.body
`, contentID, tr.Language, tr.Title, tr.Description, tr.Body); err != nil {
			return fmt.Errorf("upsert content translation: %w", err)
		}
	}
	return nil
}

const contentColumns = `
	id,
	category,
	unrestricted,
	required_plan_keys,
	required_plan_ids,
	content_url,
	cover_image_url,
	market,
	level,
	event_at,
	created_at,
	updated_at`

func scanContentRow(row pgx.Row) (ContentRecord, error) {
	var rec ContentRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Category,
		&rec.Unrestricted,
		&rec.RequiredPlanKeys,
		&rec.RequiredPlanIDs,
		&rec.ContentURL,
		&rec.CoverImageURL,
		&rec.Market,
		&rec.Level,
		&rec.EventAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return ContentRecord{}, err
	}
	return rec, nil
}

func emptyStringsIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
