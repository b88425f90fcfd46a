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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrAllocationConflict means a guarded remaining_amount update matched no row:
// another writer changed the charge or payment since it was read.
var ErrAllocationConflict = errors.New("allocation conflict: balance changed concurrently")

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type LedgerRepository struct {
	DB *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

const ledgerColumns = `id, tenant_id, customer_id, rental_id, entry_type, category,
	COALESCE(description, ''), amount, remaining_amount, due_date, entry_date, created_at`

func scanLedgerEntry(row pgx.Row) (*models.LedgerEntry, error) {
	e := &models.LedgerEntry{}
	err := row.Scan(&e.ID, &e.TenantID, &e.CustomerID, &e.RentalID, &e.Type, &e.Category,
		&e.Description, &e.Amount, &e.RemainingAmount, &e.DueDate, &e.EntryDate, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func insertCharge(ctx context.Context, q querier, req *models.CreateChargeRequest) (*models.LedgerEntry, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO ledger_entries (
			id, tenant_id, customer_id, rental_id, entry_type, category,
			description, amount, remaining_amount, due_date, entry_date
		) VALUES ($1, $2, $3, $4, 'Charge', $5, $6, $7, $7, $8, NOW())
		RETURNING `+ledgerColumns,
		uuid.NewString(), req.TenantID, req.CustomerID, req.RentalID, req.Category,
		req.Description, req.Amount, req.DueDate,
	)
	e, err := scanLedgerEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}
	return e, nil
}

// CreateCharge bills a customer
func (r *LedgerRepository) CreateCharge(ctx context.Context, req *models.CreateChargeRequest) (*models.LedgerEntry, error) {
	return insertCharge(ctx, r.DB, req)
}

// ListByCustomer returns every ledger row of a customer, oldest first
func (r *LedgerRepository) ListByCustomer(ctx context.Context, tenantID, customerID string) ([]models.LedgerEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE tenant_id = $1 AND customer_id = $2
		ORDER BY entry_date, id`, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListOpenCharges returns charges of a customer that still have something left to pay
func (r *LedgerRepository) ListOpenCharges(ctx context.Context, tenantID, customerID string) ([]models.LedgerEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE tenant_id = $1 AND customer_id = $2
		  AND entry_type = 'Charge' AND remaining_amount > 0
		ORDER BY due_date NULLS LAST, entry_date, id`, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ApplyAllocations writes an allocation plan in one transaction. Every decrement
// is guarded on the remaining amount the plan was computed from; if any guard
// misses the whole plan is rolled back with ErrAllocationConflict.
func (r *LedgerRepository) ApplyAllocations(ctx context.Context, payment *models.Payment, plan []billing.Allocation) ([]models.PaymentApplication, error) {
	if len(plan) == 0 {
		return nil, nil
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	total := decimal.Zero
	apps := make([]models.PaymentApplication, 0, len(plan))
	for _, a := range plan {
		tag, err := tx.Exec(ctx, `
			UPDATE ledger_entries
			SET remaining_amount = remaining_amount - $1
			WHERE id = $2 AND tenant_id = $3 AND entry_type = 'Charge'
			  AND remaining_amount = $4 AND remaining_amount >= $1`,
			a.Amount, a.ChargeEntryID, payment.TenantID, a.ExpectedRemaining)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement charge %s: %w", a.ChargeEntryID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrAllocationConflict
		}

		app := models.PaymentApplication{
			ID:            uuid.NewString(),
			TenantID:      payment.TenantID,
			PaymentID:     payment.ID,
			ChargeEntryID: a.ChargeEntryID,
			AmountApplied: a.Amount,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO payment_applications (id, tenant_id, payment_id, charge_entry_id, amount_applied)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			app.ID, app.TenantID, app.PaymentID, app.ChargeEntryID, app.AmountApplied,
		).Scan(&app.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to record application: %w", err)
		}
		apps = append(apps, app)
		total = total.Add(a.Amount)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE payments SET remaining_amount = remaining_amount - $1
		WHERE id = $2 AND tenant_id = $3 AND remaining_amount >= $1`,
		total, payment.ID, payment.TenantID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAllocationConflict
	}

	if payment.LedgerEntryID != nil {
		tag, err = tx.Exec(ctx, `
			UPDATE ledger_entries SET remaining_amount = remaining_amount - $1
			WHERE id = $2 AND tenant_id = $3 AND entry_type = 'Payment' AND remaining_amount >= $1`,
			total, *payment.LedgerEntryID, payment.TenantID)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrAllocationConflict
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return apps, nil
}

// AppliedPaymentsForRental lists applications made by payments linked to a rental,
// with each payment's capture state
func (r *LedgerRepository) AppliedPaymentsForRental(ctx context.Context, tenantID, rentalID string) ([]models.AppliedPayment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT pa.payment_id, pa.amount_applied, p.capture_status
		FROM payment_applications pa
		JOIN payments p ON p.id = pa.payment_id
		WHERE pa.tenant_id = $1 AND p.rental_id = $2`, tenantID, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AppliedPayment
	for rows.Next() {
		var a models.AppliedPayment
		if err := rows.Scan(&a.PaymentID, &a.AmountApplied, &a.CaptureStatus); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SumOutstanding is the tenant-wide currently due balance, used by the dashboard
func (r *LedgerRepository) SumOutstanding(ctx context.Context, tenantID string, today time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining_amount), 0)
		FROM ledger_entries
		WHERE tenant_id = $1 AND entry_type = 'Charge' AND remaining_amount > 0
		  AND NOT (category = 'Rental' AND due_date IS NOT NULL AND due_date > $2::date)`,
		tenantID, today).Scan(&total)
	return total, err
}
