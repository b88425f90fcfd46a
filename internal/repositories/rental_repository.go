package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RentalRepository struct {
	DB *pgxpool.Pool
}

func NewRentalRepository(db *pgxpool.Pool) *RentalRepository {
	return &RentalRepository{DB: db}
}

const rentalColumns = `id, tenant_id, customer_id, vehicle_id, status, start_date, end_date,
	document_status, COALESCE(envelope_id, ''), signed_document_id, envelope_completed_at,
	monthly_amount, COALESCE(notes, ''), created_at, updated_at`

func scanRental(row pgx.Row) (*models.Rental, error) {
	r := &models.Rental{}
	err := row.Scan(&r.ID, &r.TenantID, &r.CustomerID, &r.VehicleID, &r.Status, &r.StartDate,
		&r.EndDate, &r.DocumentStatus, &r.EnvelopeID, &r.SignedDocumentID, &r.EnvelopeCompletedAt,
		&r.MonthlyAmount, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RentalRepository) Get(ctx context.Context, tenantID, id string) (*models.Rental, error) {
	return scanRental(r.DB.QueryRow(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE tenant_id = $1 AND id = $2`, tenantID, id))
}

// GetByEnvelope finds the rental an e-signature envelope belongs to. Webhooks do
// not carry a tenant so this lookup is global.
func (r *RentalRepository) GetByEnvelope(ctx context.Context, envelopeID string) (*models.Rental, error) {
	return scanRental(r.DB.QueryRow(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE envelope_id = $1`, envelopeID))
}

func (r *RentalRepository) GetVehicle(ctx context.Context, tenantID, id string) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, tenant_id, make, model, plate, status, updated_at
		FROM vehicles WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&v.ID, &v.TenantID, &v.Make, &v.Model, &v.Plate, &v.Status, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// lockStatus reads a rental's status under a row lock for the rest of tx
func lockStatus(ctx context.Context, tx pgx.Tx, tenantID, rentalID string) (models.RentalStatus, error) {
	var current models.RentalStatus
	err := tx.QueryRow(ctx,
		`SELECT status FROM rentals WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, rentalID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock rental: %w", err)
	}
	return current, nil
}

// ClaimCancellation moves a rental to Cancelling and returns the status it had.
// Only one caller can hold the claim; the rest get ErrConflict.
func (r *RentalRepository) ClaimCancellation(ctx context.Context, tenantID, rentalID string) (models.RentalStatus, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	current, err := lockStatus(ctx, tx, tenantID, rentalID)
	if err != nil {
		return "", err
	}
	if current == models.RentalStatusCancelled || current == models.RentalStatusCancelling {
		return "", fmt.Errorf("rental %s is %s: %w", rentalID, current, models.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE rentals SET status = 'Cancelling', updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`, tenantID, rentalID)
	if err != nil {
		return "", fmt.Errorf("failed to claim rental: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return current, nil
}

// ReleaseCancellation puts a claimed rental back to the status it had before
func (r *RentalRepository) ReleaseCancellation(ctx context.Context, tenantID, rentalID string, previous models.RentalStatus) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE rentals SET status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND status = 'Cancelling'`, previous, tenantID, rentalID)
	return err
}

// ApplyCancellation commits the rental, vehicle and payment side of a cancellation
// in one transaction. The rental row is locked first so a concurrent activation
// or second cancellation waits for this one.
func (r *RentalRepository) ApplyCancellation(ctx context.Context, w *models.CancellationWrite) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockStatus(ctx, tx, w.TenantID, w.RentalID)
	if err != nil {
		return err
	}
	if current == models.RentalStatusCancelled {
		return fmt.Errorf("rental %s already cancelled: %w", w.RentalID, models.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE rentals
		SET status = 'Cancelled',
		    notes = CASE WHEN COALESCE(notes, '') = '' THEN $1 ELSE notes || E'\n' || $1 END,
		    updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3`,
		w.NotesAppend, w.TenantID, w.RentalID)
	if err != nil {
		return fmt.Errorf("failed to cancel rental: %w", err)
	}

	if w.VehicleID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE vehicles SET status = 'Available', updated_at = NOW()
			WHERE tenant_id = $1 AND id = $2`, w.TenantID, *w.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to release vehicle: %w", err)
		}
	}

	if w.PaymentUpdate != nil {
		if err := updatePaymentStatus(ctx, tx, w.TenantID, w.PaymentUpdate); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ActivateRental marks a Pending rental Active and its vehicle Rented together.
// An Active rental only has its completion recorded; any other status is
// ErrConflict and nothing changes.
func (r *RentalRepository) ActivateRental(ctx context.Context, w *models.ActivationWrite) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	current, err := lockStatus(ctx, tx, w.TenantID, w.RentalID)
	if err != nil {
		return err
	}
	switch {
	case current == models.RentalStatusActive:
		_, err = tx.Exec(ctx, `
			UPDATE rentals
			SET document_status = 'completed',
			    envelope_completed_at = COALESCE(envelope_completed_at, $1), updated_at = NOW()
			WHERE tenant_id = $2 AND id = $3`,
			w.CompletedAt, w.TenantID, w.RentalID)
		if err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}
		return tx.Commit(ctx)
	case !current.CanActivate():
		return fmt.Errorf("rental %s is %s: %w", w.RentalID, current, models.ErrConflict)
	}

	_, err = tx.Exec(ctx, `
		UPDATE rentals
		SET status = 'Active', document_status = 'completed',
		    envelope_completed_at = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3`,
		w.CompletedAt, w.TenantID, w.RentalID)
	if err != nil {
		return fmt.Errorf("failed to activate rental: %w", err)
	}

	if w.VehicleID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE vehicles SET status = 'Rented', updated_at = NOW()
			WHERE tenant_id = $1 AND id = $2`, w.TenantID, *w.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to mark vehicle rented: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *RentalRepository) UpdateDocumentStatus(ctx context.Context, tenantID, rentalID string, status models.DocumentStatus) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE rentals SET document_status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3`, status, tenantID, rentalID)
	return err
}

func (r *RentalRepository) SetEnvelope(ctx context.Context, tenantID, rentalID, envelopeID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE rentals SET envelope_id = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3`, envelopeID, tenantID, rentalID)
	return err
}

func (r *RentalRepository) SetSignedDocument(ctx context.Context, tenantID, rentalID, documentID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE rentals SET signed_document_id = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3`, documentID, tenantID, rentalID)
	return err
}

// CountByStatus counts rentals currently in a status
func (r *RentalRepository) CountByStatus(ctx context.Context, tenantID string, status models.RentalStatus) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM rentals WHERE tenant_id = $1 AND status = $2`, tenantID, status).Scan(&n)
	return n, err
}

// CountCreatedBetween counts bookings made in [from, to)
func (r *RentalRepository) CountCreatedBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM rentals
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3`, tenantID, from, to).Scan(&n)
	return n, err
}

// CountCancelledBetween counts rentals cancelled in [from, to)
func (r *RentalRepository) CountCancelledBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM rentals
		WHERE tenant_id = $1 AND status = 'Cancelled' AND updated_at >= $2 AND updated_at < $3`,
		tenantID, from, to).Scan(&n)
	return n, err
}

// FleetCounts returns total vehicles and how many are rented
func (r *RentalRepository) FleetCounts(ctx context.Context, tenantID string) (total, rented int, err error) {
	err = r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'Rented')
		FROM vehicles WHERE tenant_id = $1`, tenantID).Scan(&total, &rented)
	return total, rented, err
}
