package repositories

import (
	"context"

	"fleetrent-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	DB *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.CustomerDocument) error {
	doc.ID = uuid.NewString()
	return r.DB.QueryRow(ctx, `
		INSERT INTO customer_documents (
			id, tenant_id, customer_id, rental_id, document_type, file_name, storage_key, public_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		doc.ID, doc.TenantID, doc.CustomerID, doc.RentalID, doc.DocumentType,
		doc.FileName, doc.StorageKey, doc.PublicURL,
	).Scan(&doc.CreatedAt)
}
