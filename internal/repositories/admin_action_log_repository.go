package repositories

import (
	"context"

	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminActionLogRepository struct {
	DB *pgxpool.Pool
}

func NewAdminActionLogRepository(db *pgxpool.Pool) *AdminActionLogRepository {
	return &AdminActionLogRepository{DB: db}
}

// CreateActionLog records an operator action
func (r *AdminActionLogRepository) CreateActionLog(ctx context.Context, entry *models.AdminActionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
		INSERT INTO admin_action_logs (
			id, tenant_id, actor_id, action_type, target_type, target_id,
			description, ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	return r.DB.QueryRow(ctx, query,
		entry.ID, entry.TenantID, entry.ActorID, entry.ActionType, entry.TargetType,
		entry.TargetID, entry.Description, entry.IPAddress,
	).Scan(&entry.CreatedAt)
}

// ListByTenant returns the most recent audit rows for a tenant
func (r *AdminActionLogRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*models.AdminActionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, tenant_id, actor_id, action_type, target_type, target_id,
		       description, ip_address, created_at
		FROM admin_action_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AdminActionLog
	for rows.Next() {
		l := &models.AdminActionLog{}
		if err := rows.Scan(&l.ID, &l.TenantID, &l.ActorID, &l.ActionType, &l.TargetType,
			&l.TargetID, &l.Description, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
