package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fleetrent-backend/internal/cache"
	"fleetrent-backend/internal/esign"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/realtime"
	"fleetrent-backend/internal/storage"
)

// webhookDedupeTTL covers provider redelivery windows
const webhookDedupeTTL = 24 * time.Hour

type esignRentals interface {
	Get(ctx context.Context, tenantID, id string) (*models.Rental, error)
	GetByEnvelope(ctx context.Context, envelopeID string) (*models.Rental, error)
	ActivateRental(ctx context.Context, w *models.ActivationWrite) error
	UpdateDocumentStatus(ctx context.Context, tenantID, rentalID string, status models.DocumentStatus) error
	SetSignedDocument(ctx context.Context, tenantID, rentalID, documentID string) error
}

type documentStore interface {
	Create(ctx context.Context, doc *models.CustomerDocument) error
}

type ESignService struct {
	provider      esign.Provider
	rentals       esignRentals
	documents     documentStore
	store         storage.ObjectStore
	events        EventPublisher
	webhookSecret string
	now           func() time.Time
}

func NewESignService(provider esign.Provider, rentals esignRentals, documents documentStore, store storage.ObjectStore, events EventPublisher, webhookSecret string) *ESignService {
	return &ESignService{
		provider:      provider,
		rentals:       rentals,
		documents:     documents,
		store:         store,
		events:        events,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// CheckStatus polls the provider for an envelope and applies the result to the
// rental. The provider token is acquired before anything is read or written so
// an auth failure leaves no trace.
func (s *ESignService) CheckStatus(ctx context.Context, tenantID string, req *models.ESignStatusRequest) (*models.ESignStatusResult, error) {
	if strings.TrimSpace(req.RentalID) == "" {
		return nil, models.Invalid("rental_id", "is required")
	}

	session, err := s.provider.Authenticate(ctx)
	if err != nil {
		log.Printf("[ESign] Provider authentication failed: %v", err)
		return nil, err
	}

	rental, err := s.rentals.Get(ctx, tenantID, req.RentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rental: %w", err)
	}
	envelopeID := req.EnvelopeID
	if envelopeID == "" {
		envelopeID = rental.EnvelopeID
	}
	if envelopeID == "" {
		return nil, models.Invalid("envelope_id", "rental has no envelope")
	}

	providerStatus, err := s.provider.EnvelopeStatus(ctx, session, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch envelope status: %w", err)
	}

	target := esign.MapEnvelopeStatus(providerStatus)
	changed, err := s.apply(ctx, session, rental, envelopeID, target, providerStatus)
	if err != nil {
		return nil, err
	}

	return &models.ESignStatusResult{
		RentalID:         rental.ID,
		EnvelopeID:       envelopeID,
		ProviderStatus:   providerStatus,
		DocumentStatus:   rental.DocumentStatus,
		RentalStatus:     rental.Status,
		Changed:          changed,
		SignedDocumentID: rental.SignedDocumentID,
	}, nil
}

// ViewDocument returns the combined PDF of a rental's envelope
func (s *ESignService) ViewDocument(ctx context.Context, tenantID string, req *models.ESignStatusRequest) ([]byte, error) {
	if strings.TrimSpace(req.RentalID) == "" {
		return nil, models.Invalid("rental_id", "is required")
	}
	session, err := s.provider.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	rental, err := s.rentals.Get(ctx, tenantID, req.RentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rental: %w", err)
	}
	envelopeID := req.EnvelopeID
	if envelopeID == "" {
		envelopeID = rental.EnvelopeID
	}
	if envelopeID == "" {
		return nil, models.Invalid("envelope_id", "rental has no envelope")
	}
	return s.provider.DownloadCombined(ctx, session, envelopeID)
}

// HandleWebhook verifies, deduplicates and applies an inbound signing event
func (s *ESignService) HandleWebhook(ctx context.Context, body []byte, signature string) (*models.WebhookResult, error) {
	if s.webhookSecret == "" {
		log.Printf("[ESign] Webhook rejected: no signing secret configured")
		return nil, fmt.Errorf("webhook secret not configured: %w", models.ErrUnauthorized)
	}
	if !esign.VerifySignature(body, signature, s.webhookSecret) {
		return nil, fmt.Errorf("invalid webhook signature: %w", models.ErrUnauthorized)
	}

	event, err := esign.ParseWebhook(body)
	if err != nil {
		return nil, models.Invalid("body", "%v", err)
	}

	key := cache.WebhookKeyPrefix + event.DocumentID + "|" + strings.ToLower(event.EventType)
	if !cache.FirstSeen(ctx, key, webhookDedupeTTL) {
		log.Printf("[ESign] Duplicate webhook %s for %s ignored", event.EventType, event.DocumentID)
		return &models.WebhookResult{Received: true, Duplicate: true, Status: event.Status}, nil
	}

	rental, err := s.rentals.GetByEnvelope(ctx, event.DocumentID)
	if errors.Is(err, models.ErrNotFound) {
		log.Printf("[ESign] Webhook for unknown envelope %s ignored", event.DocumentID)
		return &models.WebhookResult{Received: true, Ignored: "unknown envelope", Status: event.Status}, nil
	}
	if err != nil {
		cache.Forget(ctx, key)
		return nil, fmt.Errorf("failed to load rental for envelope: %w", err)
	}

	if _, err := s.apply(ctx, nil, rental, event.DocumentID, event.Status, event.EventType); err != nil {
		cache.Forget(ctx, key)
		return nil, err
	}
	return &models.WebhookResult{Received: true, RentalID: rental.ID, Status: rental.DocumentStatus}, nil
}

// apply moves rental to target and updates it in place. Unknown statuses and
// transitions out of terminal states are logged and skipped.
func (s *ESignService) apply(ctx context.Context, session *esign.Session, rental *models.Rental, envelopeID string, target models.DocumentStatus, providerValue string) (bool, error) {
	if target == models.DocumentStatusUnknown {
		log.Printf("[ESign] Unmapped provider status %q for rental %s left unchanged", strings.ToLower(providerValue), rental.ID)
		return false, nil
	}

	if target == rental.DocumentStatus {
		// Completed earlier but the agreement was never stored: try again
		if target == models.DocumentStatusCompleted && rental.SignedDocumentID == nil {
			s.storeSignedDocument(ctx, session, rental, envelopeID)
		}
		return false, nil
	}

	if err := esign.ValidateTransition(rental.DocumentStatus, target); err != nil {
		log.Printf("[ESign] Rental %s: %v; ignored", rental.ID, err)
		return false, nil
	}

	metrics.ESignEventsTotal.WithLabelValues(string(target)).Inc()

	if target != models.DocumentStatusCompleted {
		if err := s.rentals.UpdateDocumentStatus(ctx, rental.TenantID, rental.ID, target); err != nil {
			return false, fmt.Errorf("failed to update document status: %w", err)
		}
		rental.DocumentStatus = target
		s.publish(realtime.EventDocumentStatus, rental, string(target))
		log.Printf("[ESign] Rental %s document status -> %s", rental.ID, target)
		return true, nil
	}

	// Signing never reopens a rental that was cancelled or has finished
	if rental.Status.IsClosed() {
		return s.recordClosedCompletion(ctx, rental)
	}

	completedAt := s.now().UTC()
	err := s.rentals.ActivateRental(ctx, &models.ActivationWrite{
		TenantID:    rental.TenantID,
		RentalID:    rental.ID,
		VehicleID:   rental.VehicleID,
		CompletedAt: completedAt,
	})
	if errors.Is(err, models.ErrConflict) {
		// Closed between our read and the row lock
		log.Printf("[ESign] Rental %s not activated: %v", rental.ID, err)
		return s.recordClosedCompletion(ctx, rental)
	}
	if err != nil {
		return false, fmt.Errorf("failed to activate rental: %w", err)
	}
	rental.Status = models.RentalStatusActive
	rental.DocumentStatus = models.DocumentStatusCompleted
	rental.EnvelopeCompletedAt = &completedAt
	log.Printf("[ESign] Rental %s activated after signing", rental.ID)

	cache.InvalidateDashboard(ctx, rental.TenantID)
	s.publish(realtime.EventRentalActivated, rental, string(models.RentalStatusActive))

	// Activation stands even when the agreement cannot be stored
	s.storeSignedDocument(ctx, session, rental, envelopeID)
	return true, nil
}

// recordClosedCompletion notes a completed envelope on a rental that can no
// longer be activated. Rental and vehicle status stay as they are.
func (s *ESignService) recordClosedCompletion(ctx context.Context, rental *models.Rental) (bool, error) {
	if err := s.rentals.UpdateDocumentStatus(ctx, rental.TenantID, rental.ID, models.DocumentStatusCompleted); err != nil {
		return false, fmt.Errorf("failed to update document status: %w", err)
	}
	rental.DocumentStatus = models.DocumentStatusCompleted
	log.Printf("[ESign] Rental %s is %s; envelope completion recorded without activation", rental.ID, rental.Status)
	s.publish(realtime.EventDocumentStatus, rental, string(models.DocumentStatusCompleted))
	return true, nil
}

func (s *ESignService) storeSignedDocument(ctx context.Context, session *esign.Session, rental *models.Rental, envelopeID string) {
	docID, err := s.saveAgreement(ctx, session, rental, envelopeID)
	if err != nil {
		log.Printf("[ESign] ERROR: signed agreement for rental %s not stored: %v", rental.ID, err)
		return
	}
	rental.SignedDocumentID = &docID
}

func (s *ESignService) saveAgreement(ctx context.Context, session *esign.Session, rental *models.Rental, envelopeID string) (string, error) {
	if s.store == nil {
		return "", errors.New("object storage is not configured")
	}
	if session == nil {
		var err error
		if session, err = s.provider.Authenticate(ctx); err != nil {
			return "", err
		}
	}

	pdf, err := s.provider.DownloadCombined(ctx, session, envelopeID)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	key := storage.AgreementKey(rental.TenantID, rental.ID, envelopeID)
	url, err := s.store.Put(ctx, key, pdf, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	rentalID := rental.ID
	doc := &models.CustomerDocument{
		TenantID:     rental.TenantID,
		CustomerID:   rental.CustomerID,
		RentalID:     &rentalID,
		DocumentType: models.DocumentTypeRentalAgreement,
		FileName:     fmt.Sprintf("rental-agreement-%s.pdf", rental.ID),
		StorageKey:   key,
		PublicURL:    url,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("document record: %w", err)
	}
	if err := s.rentals.SetSignedDocument(ctx, rental.TenantID, rental.ID, doc.ID); err != nil {
		return "", fmt.Errorf("link document: %w", err)
	}
	return doc.ID, nil
}

func (s *ESignService) publish(eventType string, rental *models.Rental, status string) {
	if s.events == nil {
		return
	}
	s.events.Publish(realtime.Event{
		Type:     eventType,
		TenantID: rental.TenantID,
		RentalID: rental.ID,
		Status:   status,
	})
}
