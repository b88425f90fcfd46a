package repositories

import (
	"context"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TOTPRepository keeps the 2FA verification attempt log used for lockouts
type TOTPRepository struct {
	DB *pgxpool.Pool
}

func NewTOTPRepository(db *pgxpool.Pool) *TOTPRepository {
	return &TOTPRepository{DB: db}
}

func (r *TOTPRepository) RecordAttempt(ctx context.Context, a *models.TOTPAttempt) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO totp_verification_attempts (user_id, tenant_id, ip_address, success)
		VALUES ($1, $2, $3, $4)`,
		a.UserID, a.TenantID, a.IPAddress, a.Success)
	return err
}

// FailedAttemptsSince counts failures after since, once for the user and once
// for the address, in a single scan
func (r *TOTPRepository) FailedAttemptsSince(ctx context.Context, userID, ipAddress string, since time.Time) (models.TOTPFailureCounts, error) {
	var c models.TOTPFailureCounts
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE user_id = $1),
		       COUNT(*) FILTER (WHERE $2 <> '' AND ip_address = $2)
		FROM totp_verification_attempts
		WHERE success = false AND created_at > $3
		  AND (user_id = $1 OR ($2 <> '' AND ip_address = $2))`,
		userID, ipAddress, since).Scan(&c.ByUser, &c.ByIP)
	return c, err
}

// PurgeAttemptsBefore deletes log rows older than cutoff and reports how many went
func (r *TOTPRepository) PurgeAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM totp_verification_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
