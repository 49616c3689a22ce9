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
	ErrAdminNotFound   = errors.New("admin not found")
	ErrAdminEmailTaken = errors.New("admin email already taken")
)

type AdminRepo struct {
	pool *pgxpool.Pool
}

// AdminRecord carries the grant set as raw JSONB. Both accepted wire shapes
// (list of partial maps, single map) are preserved as stored; normalization
// is the permissions service's concern.
type AdminRecord struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	RawGrants    []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

func (r *AdminRepo) Create(ctx context.Context, rec AdminRecord) (AdminRecord, error) {
	if r.pool == nil {
		return AdminRecord{}, fmt.Errorf("postgres pool is nil")
	}

	email := strings.ToLower(strings.TrimSpace(rec.Email))
	if email == "" || rec.PasswordHash == "" {
		return AdminRecord{}, fmt.Errorf("invalid admin payload")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	grants := rec.RawGrants
	if len(grants) == 0 {
		grants = []byte("[]")
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO admins (id, email, password_hash, name, role, grants, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, NOW(), NOW())
RETURNING id, email, password_hash, name, role, grants, created_at, updated_at
`, rec.ID, email, rec.PasswordHash, rec.Name, rec.Role, string(grants))

	out, err := scanAdminRow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return AdminRecord{}, ErrAdminEmailTaken
		}
		return AdminRecord{}, fmt.Errorf("create admin: %w", err)
	}
	return out, nil
}

func (r *AdminRepo) FindByEmail(ctx context.Context, email string) (AdminRecord, error) {
	if r.pool == nil {
		return AdminRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, name, role, grants, created_at, updated_at
FROM admins
WHERE email = $1
LIMIT 1
`, strings.ToLower(strings.TrimSpace(email)))

	rec, err := scanAdminRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminRecord{}, ErrAdminNotFound
		}
		return AdminRecord{}, fmt.Errorf("find admin by email: %w", err)
	}
	return rec, nil
}

func (r *AdminRepo) FindByID(ctx context.Context, adminID uuid.UUID) (AdminRecord, error) {
	if r.pool == nil {
		return AdminRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, email, password_hash, name, role, grants, created_at, updated_at
FROM admins
WHERE id = $1
LIMIT 1
`, adminID)

	rec, err := scanAdminRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminRecord{}, ErrAdminNotFound
		}
		return AdminRecord{}, fmt.Errorf("find admin by id: %w", err)
	}
	return rec, nil
}

func (r *AdminRepo) UpdateGrants(ctx context.Context, adminID uuid.UUID, rawGrants []byte) (AdminRecord, error) {
	if r.pool == nil {
		return AdminRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if len(rawGrants) == 0 {
		rawGrants = []byte("[]")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE admins
SET grants = $2::jsonb, updated_at = NOW()
WHERE id = $1
RETURNING id, email, password_hash, name, role, grants, created_at, updated_at
`, adminID, string(rawGrants))

	rec, err := scanAdminRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AdminRecord{}, ErrAdminNotFound
		}
		return AdminRecord{}, fmt.Errorf("update admin grants: %w", err)
	}
	return rec, nil
}

func (r *AdminRepo) List(ctx context.Context) ([]AdminRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, email, password_hash, name, role, grants, created_at, updated_at
FROM admins
ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []AdminRecord
	for rows.Next() {
		rec, err := scanAdminRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanAdminRow(row pgx.Row) (AdminRecord, error) {
	var rec AdminRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.PasswordHash,
		&rec.Name,
		&rec.Role,
		&rec.RawGrants,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return AdminRecord{}, err
	}
	return rec, nil
}
