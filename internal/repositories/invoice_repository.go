package repositories

import (
	"context"
	"errors"
	"fmt"

	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceRepository struct {
	DB *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

// GenerateInvoiceNumber takes the next value of the invoice sequence
func (r *InvoiceRepository) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	var nextNum int
	err := r.DB.QueryRow(ctx, "SELECT nextval('invoice_number_sequence')").Scan(&nextNum)
	if err != nil {
		return "", fmt.Errorf("failed to get next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%06d", nextNum), nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	if inv.InvoiceNumber == "" {
		num, err := r.GenerateInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = num
	}
	inv.ID = uuid.NewString()
	return r.DB.QueryRow(ctx, `
		INSERT INTO invoices (id, tenant_id, rental_id, customer_id, invoice_number, total_amount, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'issued')
		RETURNING status, created_at`,
		inv.ID, inv.TenantID, inv.RentalID, inv.CustomerID, inv.InvoiceNumber, inv.TotalAmount, inv.DueDate,
	).Scan(&inv.Status, &inv.CreatedAt)
}

func (r *InvoiceRepository) Get(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	inv := &models.Invoice{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, tenant_id, rental_id, customer_id, invoice_number, total_amount, due_date, status, created_at
		FROM invoices WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&inv.ID, &inv.TenantID, &inv.RentalID, &inv.CustomerID, &inv.InvoiceNumber,
		&inv.TotalAmount, &inv.DueDate, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}
