package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InstallmentRepository struct {
	DB *pgxpool.Pool
}

func NewInstallmentRepository(db *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{DB: db}
}

// GetConfig returns the tenant's installment policy, or the defaults when none is saved
func (r *InstallmentRepository) GetConfig(ctx context.Context, tenantID string) (*models.InstallmentConfig, error) {
	c := &models.InstallmentConfig{}
	err := r.DB.QueryRow(ctx, `
		SELECT tenant_id, enabled, min_days_for_weekly, min_days_for_monthly,
		       max_installments_weekly, max_installments_monthly, charge_first_upfront,
		       what_gets_split, grace_period_days, max_retry_attempts, retry_interval_days, updated_at
		FROM installment_configs WHERE tenant_id = $1`, tenantID,
	).Scan(&c.TenantID, &c.Enabled, &c.MinDaysForWeekly, &c.MinDaysForMonthly,
		&c.MaxInstallmentsWeekly, &c.MaxInstallmentsMonthly, &c.ChargeFirstUpfront,
		&c.WhatGetsSplit, &c.GracePeriodDays, &c.MaxRetryAttempts, &c.RetryIntervalDays, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultInstallmentConfig(tenantID), nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func upsertConfig(ctx context.Context, q querier, c *models.InstallmentConfig) error {
	return q.QueryRow(ctx, `
		INSERT INTO installment_configs (
			tenant_id, enabled, min_days_for_weekly, min_days_for_monthly,
			max_installments_weekly, max_installments_monthly, charge_first_upfront,
			what_gets_split, grace_period_days, max_retry_attempts, retry_interval_days, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			min_days_for_weekly = EXCLUDED.min_days_for_weekly,
			min_days_for_monthly = EXCLUDED.min_days_for_monthly,
			max_installments_weekly = EXCLUDED.max_installments_weekly,
			max_installments_monthly = EXCLUDED.max_installments_monthly,
			charge_first_upfront = EXCLUDED.charge_first_upfront,
			what_gets_split = EXCLUDED.what_gets_split,
			grace_period_days = EXCLUDED.grace_period_days,
			max_retry_attempts = EXCLUDED.max_retry_attempts,
			retry_interval_days = EXCLUDED.retry_interval_days,
			updated_at = NOW()
		RETURNING updated_at`,
		c.TenantID, c.Enabled, c.MinDaysForWeekly, c.MinDaysForMonthly,
		c.MaxInstallmentsWeekly, c.MaxInstallmentsMonthly, c.ChargeFirstUpfront,
		c.WhatGetsSplit, c.GracePeriodDays, c.MaxRetryAttempts, c.RetryIntervalDays,
	).Scan(&c.UpdatedAt)
}

func (r *InstallmentRepository) SaveConfig(ctx context.Context, c *models.InstallmentConfig) error {
	return upsertConfig(ctx, r.DB, c)
}

// CreatePlan writes the ledger charges of a schedule and the installment rows
// that track their collection, all or nothing
func (r *InstallmentRepository) CreatePlan(ctx context.Context, rental *models.Rental, sched *models.InstallmentSchedule) ([]*models.InstallmentCharge, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rentalID := rental.ID
	for _, u := range sched.Upfront {
		due := u.DueDate
		_, err := insertCharge(ctx, tx, &models.CreateChargeRequest{
			TenantID:    rental.TenantID,
			CustomerID:  rental.CustomerID,
			RentalID:    &rentalID,
			Category:    u.Category,
			Description: u.Description,
			Amount:      u.Amount,
			DueDate:     &due,
		})
		if err != nil {
			return nil, err
		}
	}

	var out []*models.InstallmentCharge
	for _, inst := range sched.Installments {
		due := inst.DueDate
		entry, err := insertCharge(ctx, tx, &models.CreateChargeRequest{
			TenantID:    rental.TenantID,
			CustomerID:  rental.CustomerID,
			RentalID:    &rentalID,
			Category:    inst.Category,
			Description: inst.Description,
			Amount:      inst.Amount,
			DueDate:     &due,
		})
		if err != nil {
			return nil, err
		}

		ic := &models.InstallmentCharge{
			ID:            uuid.NewString(),
			TenantID:      rental.TenantID,
			RentalID:      rental.ID,
			CustomerID:    rental.CustomerID,
			ChargeEntryID: entry.ID,
			Sequence:      inst.Sequence,
			Amount:        inst.Amount,
			DueDate:       inst.DueDate,
			Status:        models.InstallmentScheduled,
			NextAttemptAt: &due,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO installment_charges (
				id, tenant_id, rental_id, customer_id, charge_entry_id, sequence,
				amount, due_date, status, attempts, next_attempt_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
			RETURNING created_at`,
			ic.ID, ic.TenantID, ic.RentalID, ic.CustomerID, ic.ChargeEntryID, ic.Sequence,
			ic.Amount, ic.DueDate, ic.Status, ic.NextAttemptAt,
		).Scan(&ic.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create installment %d: %w", inst.Sequence, err)
		}
		out = append(out, ic)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

const installmentColumns = `id, tenant_id, rental_id, customer_id, charge_entry_id, sequence,
	amount, due_date, status, attempts, last_attempt_at, next_attempt_at,
	COALESCE(last_error, ''), created_at`

func scanInstallment(row pgx.Row) (*models.InstallmentCharge, error) {
	c := &models.InstallmentCharge{}
	err := row.Scan(&c.ID, &c.TenantID, &c.RentalID, &c.CustomerID, &c.ChargeEntryID, &c.Sequence,
		&c.Amount, &c.DueDate, &c.Status, &c.Attempts, &c.LastAttemptAt, &c.NextAttemptAt,
		&c.LastError, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *InstallmentRepository) Get(ctx context.Context, tenantID, id string) (*models.InstallmentCharge, error) {
	return scanInstallment(r.DB.QueryRow(ctx,
		`SELECT `+installmentColumns+` FROM installment_charges WHERE tenant_id = $1 AND id = $2`,
		tenantID, id))
}

// ListDue returns unpaid installments whose next attempt time has passed, across tenants
func (r *InstallmentRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.InstallmentCharge, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT `+installmentColumns+`
		FROM installment_charges
		WHERE status <> 'paid' AND next_attempt_at IS NOT NULL AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.InstallmentCharge
	for rows.Next() {
		c, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordAttempt stores the result of a charge attempt
func (r *InstallmentRepository) RecordAttempt(ctx context.Context, c *models.InstallmentCharge) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE installment_charges
		SET status = $1, attempts = $2, last_attempt_at = $3, next_attempt_at = $4, last_error = $5
		WHERE tenant_id = $6 AND id = $7`,
		c.Status, c.Attempts, c.LastAttemptAt, c.NextAttemptAt, c.LastError, c.TenantID, c.ID)
	return err
}

// CountOverdue counts a tenant's overdue installments
func (r *InstallmentRepository) CountOverdue(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM installment_charges WHERE tenant_id = $1 AND status = 'overdue'`,
		tenantID).Scan(&n)
	return n, err
}

// SavedMethod returns the processor reference stored for a rental's recurring charges
func (r *InstallmentRepository) SavedMethod(ctx context.Context, tenantID, rentalID string) (string, error) {
	var ref string
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(saved_method_ref, '') FROM rentals WHERE tenant_id = $1 AND id = $2`,
		tenantID, rentalID).Scan(&ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrNotFound
	}
	return ref, err
}

func (r *InstallmentRepository) SetSavedMethod(ctx context.Context, tenantID, rentalID, ref string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE rentals SET saved_method_ref = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3`, ref, tenantID, rentalID)
	return err
}

// MarkOverdue relabels a tenant's unpaid installments due before the cutoff
func (r *InstallmentRepository) MarkOverdue(ctx context.Context, tenantID string, dueBefore time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE installment_charges SET status = 'overdue'
		WHERE tenant_id = $1 AND status IN ('scheduled', 'failed') AND due_date < $2`,
		tenantID, dueBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
