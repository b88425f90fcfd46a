package services

import (
	"context"
	"log"

	"fleetrent-backend/internal/models"
)

// Notifier delivers customer-facing messages
type Notifier interface {
	NotifyCancellation(ctx context.Context, notice *models.CancellationNotice) error
}

// LogNotifier writes notifications to the service log. It is used until an
// email provider is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyCancellation(ctx context.Context, n *models.CancellationNotice) error {
	log.Printf("[Notify] Cancellation for rental %s to %s: refund %s %s (%s)",
		n.RentalID, n.CustomerEmail, n.RefundType, n.RefundAmount.StringFixed(2), n.RefundStatus)
	return nil
}
