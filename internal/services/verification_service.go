package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/storage"
)

type mediaProvider interface {
	ListMedia(ctx context.Context, sessionID string) ([]models.VerificationMedia, error)
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

type verificationStore interface {
	Get(ctx context.Context, tenantID, id string) (*models.IdentityVerification, error)
	UpdateMediaURLs(ctx context.Context, v *models.IdentityVerification) error
}

type VerificationService struct {
	provider mediaProvider
	store    verificationStore
	objects  storage.ObjectStore
}

func NewVerificationService(provider mediaProvider, store verificationStore, objects storage.ObjectStore) *VerificationService {
	return &VerificationService{provider: provider, store: store, objects: objects}
}

// IngestMedia copies a verification session's images from the provider into
// object storage and records their URLs. One failed image does not stop the rest.
func (s *VerificationService) IngestMedia(ctx context.Context, tenantID, verificationID string) (*models.MediaIngestResult, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if s.provider == nil || s.objects == nil {
		return nil, fmt.Errorf("identity verification is not configured")
	}

	v, err := s.store.Get(ctx, tenantID, verificationID)
	if err != nil {
		return nil, err
	}
	if v.SessionID == "" {
		return nil, models.Invalid("verification_id", "verification has no provider session")
	}

	media, err := s.provider.ListMedia(ctx, v.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification media: %w", err)
	}

	result := &models.MediaIngestResult{Verification: v}
	seen := map[string]bool{}
	for _, m := range media {
		target := mediaField(v, m.Context)
		if target == nil || seen[m.Context] {
			continue
		}
		seen[m.Context] = true

		url, err := s.persist(ctx, v, m)
		if err != nil {
			log.Printf("[Verification] %s media %s for %s not stored: %v", m.Context, m.ID, v.ID, err)
			result.Failed = append(result.Failed, m.Context)
			continue
		}
		*target = &url
		result.Stored = append(result.Stored, m.Context)
	}

	if len(result.Stored) == 0 {
		return result, nil
	}
	v.Status = models.VerificationStatusMediaSaved
	if err := s.store.UpdateMediaURLs(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save media urls: %w", err)
	}
	log.Printf("[Verification] Stored %d media for verification %s", len(result.Stored), v.ID)
	return result, nil
}

func (s *VerificationService) persist(ctx context.Context, v *models.IdentityVerification, m models.VerificationMedia) (string, error) {
	data, contentType, err := s.provider.DownloadMedia(ctx, m.ID)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty media body")
	}
	if contentType == "" {
		contentType = m.MimeType
	}
	key := storage.VerificationKey(v.TenantID, v.ID, m.Context, extensionFor(contentType))
	return s.objects.Put(ctx, key, data, contentType)
}

func mediaField(v *models.IdentityVerification, context string) **string {
	switch context {
	case models.MediaDocumentFront:
		return &v.DocumentFrontURL
	case models.MediaDocumentBack:
		return &v.DocumentBackURL
	case models.MediaFace:
		return &v.FaceURL
	}
	return nil
}

func extensionFor(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(strings.ToLower(ct)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	return ".bin"
}
