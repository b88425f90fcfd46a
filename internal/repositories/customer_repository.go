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

type CustomerRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

func (r *CustomerRepository) Get(ctx context.Context, tenantID, id string) (*models.Customer, error) {
	c := &models.Customer{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, tenant_id, name, COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address, ''), created_at, updated_at
		FROM customers WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateSignup creates the login, the customer (unless customer.ID is already
// set, meaning an existing record is being claimed) and the link between them
// in one transaction. A duplicate email surfaces as models.ErrConflict.
func (r *CustomerRepository) CreateSignup(ctx context.Context, user *models.User, customer *models.Customer) (*models.CustomerUser, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if customer.ID == "" {
		customer.ID = uuid.NewString()
		err = tx.QueryRow(ctx, `
			INSERT INTO customers (id, tenant_id, name, email, phone)
			VALUES ($1, $2, $3, LOWER($4), $5)
			RETURNING created_at, updated_at`,
			customer.ID, customer.TenantID, customer.Name, customer.Email, customer.Phone,
		).Scan(&customer.CreatedAt, &customer.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
	} else {
		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM customers WHERE tenant_id = $1 AND id = $2)`,
			customer.TenantID, customer.ID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, models.ErrNotFound
		}
	}

	link := &models.CustomerUser{
		ID:         uuid.NewString(),
		TenantID:   customer.TenantID,
		CustomerID: customer.ID,
		UserID:     user.ID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO customer_users (id, tenant_id, customer_id, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		link.ID, link.TenantID, link.CustomerID, link.UserID,
	).Scan(&link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to link customer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return link, nil
}

// CustomerIDForUser returns the customer a portal login is linked to
func (r *CustomerRepository) CustomerIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.DB.QueryRow(ctx,
		`SELECT customer_id FROM customer_users WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrNotFound
	}
	return id, err
}
