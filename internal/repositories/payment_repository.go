package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetrent-backend/internal/billing"
	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

const paymentColumns = `id, tenant_id, customer_id, rental_id, ledger_entry_id, amount,
	remaining_amount, refunded_amount, status, capture_status, COALESCE(processor_payment_id, ''),
	COALESCE(processor_refund_id, ''), COALESCE(method, ''), paid_at, created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.TenantID, &p.CustomerID, &p.RentalID, &p.LedgerEntryID, &p.Amount,
		&p.RemainingAmount, &p.RefundedAmount, &p.Status, &p.CaptureStatus, &p.ProcessorPaymentID,
		&p.ProcessorRefundID, &p.Method, &p.PaidAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create records a payment and its ledger entry together. A captured payment's
// entry carries the negated amount and the full amount as unapplied credit; a
// pre-authorization hold is recorded at zero until the money is collected.
func (r *PaymentRepository) Create(ctx context.Context, req *models.RecordPaymentRequest) (*models.Payment, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	signed, credit := billing.PaymentCredit(req.Amount, req.CaptureStatus)
	description := fmt.Sprintf("Payment %s", req.Method)
	if !models.CountsAsCollected(req.CaptureStatus) {
		description = fmt.Sprintf("Pre-authorization %s", req.Method)
	}

	entryID := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (
			id, tenant_id, customer_id, rental_id, entry_type, category,
			description, amount, remaining_amount, entry_date
		) VALUES ($1, $2, $3, $4, 'Payment', 'Payment', $5, $6, $7, NOW())`,
		entryID, req.TenantID, req.CustomerID, req.RentalID,
		description, signed, credit)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment ledger entry: %w", err)
	}

	var processorID *string
	if req.ProcessorPaymentID != "" {
		processorID = &req.ProcessorPaymentID
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO payments (
			id, tenant_id, customer_id, rental_id, ledger_entry_id, amount, remaining_amount,
			status, capture_status, processor_payment_id, method, paid_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'Applied', $8, $9, $10, NOW())
		RETURNING `+paymentColumns,
		uuid.NewString(), req.TenantID, req.CustomerID, req.RentalID, entryID, req.Amount, credit,
		req.CaptureStatus, processorID, req.Method)
	p, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) Get(ctx context.Context, tenantID, id string) (*models.Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// LatestForRental returns the most recent payment on a rental that reached the processor
func (r *PaymentRepository) LatestForRental(ctx context.Context, tenantID, rentalID string) (*models.Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE tenant_id = $1 AND rental_id = $2
		  AND processor_payment_id IS NOT NULL AND processor_payment_id <> ''
		ORDER BY created_at DESC
		LIMIT 1`, tenantID, rentalID))
}

// SumCollected totals captured money received by a tenant in [from, to)
func (r *PaymentRepository) SumCollected(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE tenant_id = $1 AND paid_at >= $2 AND paid_at < $3
		  AND (capture_status IS NULL OR capture_status = 'captured')
		  AND status <> 'Cancelled'`, tenantID, from, to).Scan(&total)
	return total, err
}

// updatePaymentStatus writes a cancellation's effect on a payment. Releasing a
// hold also zeroes the payment's ledger entry so it stops counting as credit.
func updatePaymentStatus(ctx context.Context, q querier, tenantID string, u *models.PaymentUpdate) error {
	var refundID *string
	if u.ProcessorRefundID != "" {
		refundID = &u.ProcessorRefundID
	}
	tag, err := q.Exec(ctx, `
		UPDATE payments
		SET status = $1,
		    capture_status = COALESCE($2, capture_status),
		    processor_refund_id = COALESCE($3, processor_refund_id),
		    refunded_amount = refunded_amount + $4,
		    remaining_amount = CASE WHEN $5 THEN 0 ELSE remaining_amount END
		WHERE tenant_id = $6 AND id = $7`,
		u.Status, u.CaptureStatus, refundID, u.Refunded, u.ReleaseCredit, tenantID, u.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if u.ReleaseCredit {
		_, err = q.Exec(ctx, `
			UPDATE ledger_entries
			SET amount = 0, remaining_amount = 0
			WHERE tenant_id = $1
			  AND id = (SELECT ledger_entry_id FROM payments WHERE tenant_id = $1 AND id = $2)`,
			tenantID, u.PaymentID)
		if err != nil {
			return fmt.Errorf("failed to release payment credit: %w", err)
		}
	}
	return nil
}
