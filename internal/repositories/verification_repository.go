package repositories

import (
	"context"
	"errors"

	"fleetrent-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerificationRepository struct {
	DB *pgxpool.Pool
}

func NewVerificationRepository(db *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{DB: db}
}

func (r *VerificationRepository) Get(ctx context.Context, tenantID, id string) (*models.IdentityVerification, error) {
	v := &models.IdentityVerification{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, tenant_id, customer_id, session_id, status,
		       document_front_url, document_back_url, face_url, updated_at
		FROM identity_verifications WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&v.ID, &v.TenantID, &v.CustomerID, &v.SessionID, &v.Status,
		&v.DocumentFrontURL, &v.DocumentBackURL, &v.FaceURL, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateMediaURLs writes back the stored media URLs; nil leaves a column unchanged
func (r *VerificationRepository) UpdateMediaURLs(ctx context.Context, v *models.IdentityVerification) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE identity_verifications
		SET document_front_url = COALESCE($1, document_front_url),
		    document_back_url = COALESCE($2, document_back_url),
		    face_url = COALESCE($3, face_url),
		    status = $4,
		    updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6`,
		v.DocumentFrontURL, v.DocumentBackURL, v.FaceURL, v.Status, v.TenantID, v.ID)
	return err
}
