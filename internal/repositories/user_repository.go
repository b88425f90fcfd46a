package repositories

import (
	"context"
	"errors"

	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, tenant_id, name, email, password_hash, role, is_active,
	totp_secret, totp_enabled, totp_enabled_at, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.TenantID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.TOTPSecret, &u.TOTPEnabled, &u.TOTPEnabledAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func insertUser(ctx context.Context, q querier, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return q.QueryRow(ctx, `
		INSERT INTO users (id, tenant_id, name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, TRUE)
		RETURNING is_active, created_at, updated_at`,
		u.ID, u.TenantID, u.Name, u.Email, u.PasswordHash, u.Role,
	).Scan(&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return insertUser(ctx, r.DB, u)
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email))
}

// SetTOTPSecret stores a pending secret; it is not enforced until EnableTOTP
func (r *UserRepository) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = FALSE, updated_at = NOW() WHERE id = $2`,
		secret, userID)
	return err
}

func (r *UserRepository) EnableTOTP(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_enabled = TRUE, totp_enabled_at = NOW(), updated_at = NOW() WHERE id = $1`,
		userID)
	return err
}
