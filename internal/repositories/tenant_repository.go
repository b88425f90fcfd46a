package repositories

import (
	"context"
	"errors"
	"fmt"

	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantRepository struct {
	DB *pgxpool.Pool
}

func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{DB: db}
}

func (r *TenantRepository) Get(ctx context.Context, id string) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, slug, timezone, currency, is_active, created_at
		FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Timezone, &t.Currency, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListActiveIDs returns every active tenant id
func (r *TenantRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT id FROM tenants WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Provision creates a tenant, its first admin and its default installment policy
// in one transaction
func (r *TenantRepository) Provision(ctx context.Context, t *models.Tenant, admin *models.User, cfg *models.InstallmentConfig) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	t.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO tenants (id, name, slug, timezone, currency, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING is_active, created_at`,
		t.ID, t.Name, t.Slug, t.Timezone, t.Currency,
	).Scan(&t.IsActive, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	admin.TenantID = &t.ID
	if err := insertUser(ctx, tx, admin); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create tenant admin: %w", err)
	}

	cfg.TenantID = t.ID
	if err := upsertConfig(ctx, tx, cfg); err != nil {
		return fmt.Errorf("failed to create installment config: %w", err)
	}

	return tx.Commit(ctx)
}
