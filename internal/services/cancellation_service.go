package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fleetrent-backend/internal/cache"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/payments"
	"fleetrent-backend/internal/realtime"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

type cancellationRentals interface {
	Get(ctx context.Context, tenantID, id string) (*models.Rental, error)
	GetVehicle(ctx context.Context, tenantID, id string) (*models.Vehicle, error)
	ClaimCancellation(ctx context.Context, tenantID, id string) (models.RentalStatus, error)
	ReleaseCancellation(ctx context.Context, tenantID, id string, previous models.RentalStatus) error
	ApplyCancellation(ctx context.Context, w *models.CancellationWrite) error
}

type cancellationPayments interface {
	Get(ctx context.Context, tenantID, id string) (*models.Payment, error)
	LatestForRental(ctx context.Context, tenantID, rentalID string) (*models.Payment, error)
}

type customerLookup interface {
	Get(ctx context.Context, tenantID, id string) (*models.Customer, error)
}

type auditLog interface {
	CreateActionLog(ctx context.Context, entry *models.AdminActionLog) error
}

// EventPublisher receives rental status changes for realtime clients
type EventPublisher interface {
	Publish(e realtime.Event)
}

type CancellationService struct {
	rentals   cancellationRentals
	payments  cancellationPayments
	customers customerLookup
	processor payments.Processor
	notifier  Notifier
	events    EventPublisher
	audit     auditLog
	now       func() time.Time
}

func NewCancellationService(
	rentals cancellationRentals,
	paymentStore cancellationPayments,
	customers customerLookup,
	processor payments.Processor,
	notifier Notifier,
	events EventPublisher,
	audit auditLog,
) *CancellationService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &CancellationService{
		rentals:   rentals,
		payments:  paymentStore,
		customers: customers,
		processor: processor,
		notifier:  notifier,
		events:    events,
		audit:     audit,
		now:       time.Now,
	}
}

func validateCancellation(req *models.CancelRentalRequest) error {
	if strings.TrimSpace(req.RentalID) == "" {
		return models.Invalid("rental_id", "is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return models.Invalid("reason", "is required")
	}
	switch req.RefundType {
	case models.RefundFull, models.RefundNone:
	case models.RefundPartial:
		if req.RefundAmount == nil || !req.RefundAmount.IsPositive() {
			return models.Invalid("refund_amount", "must be greater than zero for a partial refund")
		}
	default:
		return models.Invalid("refund_type", "must be one of full, partial, none")
	}
	return nil
}

// CancelRental cancels a rental, settles its payment with the processor and
// releases the vehicle. Processor failures are reported in the refund outcome
// and never stop the cancellation itself.
func (s *CancellationService) CancelRental(ctx context.Context, tenantID string, req *models.CancelRentalRequest) (*models.CancelRentalResponse, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if err := validateCancellation(req); err != nil {
		return nil, err
	}

	rental, err := s.rentals.Get(ctx, tenantID, req.RentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rental: %w", err)
	}
	switch rental.Status {
	case models.RentalStatusCancelled:
		return nil, models.Invalid("rental_id", "rental is already cancelled")
	case models.RentalStatusCancelling:
		return nil, fmt.Errorf("rental %s cancellation already in progress: %w", rental.ID, models.ErrConflict)
	}

	payment, err := s.resolvePayment(ctx, tenantID, rental.ID, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if err := checkRefundBounds(payment, req); err != nil {
		return nil, err
	}

	// Claim the rental before the processor is contacted; a concurrent
	// cancellation loses here and never issues a second refund.
	previous, err := s.rentals.ClaimCancellation(ctx, tenantID, rental.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim rental for cancellation: %w", err)
	}

	outcome := s.settlePayment(ctx, payment, req)
	log.Printf("[Cancel] Rental %s refund outcome: %s %s", rental.ID, outcome.Type, outcome.Message)

	write := &models.CancellationWrite{
		TenantID:      tenantID,
		RentalID:      rental.ID,
		VehicleID:     rental.VehicleID,
		NotesAppend:   s.cancellationNote(req, &outcome),
		PaymentUpdate: paymentUpdateFor(payment, &outcome),
	}
	if err := s.rentals.ApplyCancellation(ctx, write); err != nil {
		if outcome.MovedMoney() {
			// Funds already moved: the rental stays claimed and the audit row keeps the refund
			log.Printf("[Cancel] ERROR: rental %s left in %s after refund outcome %s (%s): %v",
				rental.ID, models.RentalStatusCancelling, outcome.Type, outcome.RefundID, err)
			s.recordAudit(ctx, tenantID, req, &outcome)
		} else if rerr := s.rentals.ReleaseCancellation(ctx, tenantID, rental.ID, previous); rerr != nil {
			log.Printf("[Cancel] ERROR: rental %s claim not released: %v", rental.ID, rerr)
		}
		return nil, fmt.Errorf("failed to cancel rental: %w", err)
	}

	metrics.CancellationsTotal.WithLabelValues(string(outcome.Type)).Inc()
	cache.InvalidateDashboard(ctx, tenantID)
	if s.events != nil {
		s.events.Publish(realtime.Event{
			Type:     realtime.EventRentalCancelled,
			TenantID: tenantID,
			RentalID: rental.ID,
			Status:   string(models.RentalStatusCancelled),
		})
	}
	s.recordAudit(ctx, tenantID, req, &outcome)

	notice := s.buildNotice(ctx, rental, req, &outcome)
	if err := s.notifier.NotifyCancellation(ctx, notice); err != nil {
		log.Printf("[Cancel] Notification for rental %s failed: %v", rental.ID, err)
	}

	return &models.CancelRentalResponse{
		Success:          true,
		Refund:           outcome,
		NotificationData: notice,
	}, nil
}

// checkRefundBounds rejects refunds the payment cannot cover. It runs before
// anything reaches the processor.
func checkRefundBounds(payment *models.Payment, req *models.CancelRentalRequest) error {
	if payment == nil || req.RefundType == models.RefundNone {
		return nil
	}
	refundable := payment.Refundable()
	if payment.RefundedAmount.IsPositive() && !refundable.IsPositive() {
		return models.Invalid("payment_id", "payment has already been fully refunded")
	}
	if req.RefundType == models.RefundPartial && req.RefundAmount.GreaterThan(refundable) {
		return models.Invalid("refund_amount", "cannot exceed the refundable amount of %s", refundable.StringFixed(2))
	}
	return nil
}

// resolvePayment returns the explicit payment or the latest processor payment on
// the rental. A rental without one yields nil.
func (s *CancellationService) resolvePayment(ctx context.Context, tenantID, rentalID string, paymentID *string) (*models.Payment, error) {
	if paymentID != nil && *paymentID != "" {
		p, err := s.payments.Get(ctx, tenantID, *paymentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
		if p.RentalID != nil && *p.RentalID != rentalID {
			return nil, models.Invalid("payment_id", "payment does not belong to this rental")
		}
		return p, nil
	}

	p, err := s.payments.LatestForRental(ctx, tenantID, rentalID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payment: %w", err)
	}
	return p, nil
}

// settlePayment talks to the processor and turns every result, including
// failures, into a refund outcome
func (s *CancellationService) settlePayment(ctx context.Context, payment *models.Payment, req *models.CancelRentalRequest) models.RefundOutcome {
	if payment == nil || payment.ProcessorPaymentID == "" {
		if req.RefundType == models.RefundNone {
			return models.RefundOutcome{Type: models.OutcomeNone, Message: "No refund requested"}
		}
		return models.RefundOutcome{Type: models.OutcomeSkipped, Message: "No processor payment found for this rental"}
	}

	intent, err := s.processor.RetrieveIntent(ctx, payment.ProcessorPaymentID)
	if err != nil {
		return models.RefundOutcome{Type: models.OutcomeError, Message: fmt.Sprintf("Failed to retrieve payment: %v", err)}
	}

	switch intent.Status {
	case payments.StatusRequiresCapture:
		// Nothing was captured; releasing the hold is the only correct action
		if err := s.processor.CancelIntent(ctx, intent.ID, req.Reason); err != nil {
			return models.RefundOutcome{Type: models.OutcomeError, Message: fmt.Sprintf("Failed to release hold: %v", err)}
		}
		amount := intent.Amount
		return models.RefundOutcome{
			Type:    models.OutcomeCancelled,
			Amount:  &amount,
			Status:  "cancelled",
			Message: "Pre-authorization released",
		}

	case payments.StatusSucceeded:
		if req.RefundType == models.RefundNone {
			return models.RefundOutcome{Type: models.OutcomeNone, Message: "No refund requested"}
		}
		var amount *decimal.Decimal
		if req.RefundType == models.RefundPartial {
			amount = req.RefundAmount
		} else if payment.RefundedAmount.IsPositive() {
			// Earlier partial refunds: a full refund returns what is left
			rest := payment.Refundable()
			amount = &rest
		}
		refund, err := s.processor.CreateRefund(ctx, intent.ID, amount, req.Reason)
		if err != nil {
			return models.RefundOutcome{Type: models.OutcomeError, Message: fmt.Sprintf("Refund failed: %v", err)}
		}
		refunded := refund.Amount
		outcomeType := models.OutcomeFull
		if req.RefundType == models.RefundPartial {
			outcomeType = models.OutcomePartial
		}
		return models.RefundOutcome{
			Type:     outcomeType,
			RefundID: refund.ID,
			Amount:   &refunded,
			Status:   refund.Status,
		}

	default:
		status := intent.RawStatus
		if status == "" {
			status = string(intent.Status)
		}
		return models.RefundOutcome{
			Type:    models.OutcomeSkipped,
			Message: fmt.Sprintf("Payment status %s is not refundable", status),
		}
	}
}

// paymentUpdateFor maps an outcome onto the payment row; outcomes that moved no
// money leave the payment untouched
func paymentUpdateFor(payment *models.Payment, outcome *models.RefundOutcome) *models.PaymentUpdate {
	if payment == nil {
		return nil
	}
	switch outcome.Type {
	case models.OutcomeCancelled:
		cancelled := models.CaptureCancelled
		return &models.PaymentUpdate{
			PaymentID:     payment.ID,
			Status:        models.PaymentStatusCancelled,
			CaptureStatus: &cancelled,
			ReleaseCredit: true,
		}
	case models.OutcomeFull, models.OutcomePartial:
		refunded := payment.Refundable()
		if outcome.Amount != nil {
			refunded = *outcome.Amount
		}
		status := models.PaymentStatusPartialRefund
		if !payment.RefundedAmount.Add(refunded).LessThan(payment.Amount) {
			status = models.PaymentStatusRefunded
		}
		return &models.PaymentUpdate{
			PaymentID:         payment.ID,
			Status:            status,
			ProcessorRefundID: outcome.RefundID,
			Refunded:          refunded,
		}
	default:
		return nil
	}
}

func (s *CancellationService) cancellationNote(req *models.CancelRentalRequest, outcome *models.RefundOutcome) string {
	by := req.CancelledBy
	if by == "" {
		by = "unknown"
	}
	refund := string(outcome.Type)
	if outcome.Amount != nil {
		refund += " " + outcome.Amount.StringFixed(2)
	}
	if outcome.RefundID != "" {
		refund += " (" + outcome.RefundID + ")"
	}
	if outcome.Message != "" {
		refund += ": " + outcome.Message
	}
	return fmt.Sprintf("[%s] Cancelled by %s. Reason: %s. Refund: %s",
		s.now().UTC().Format(timeutil.DateTimeLayout), by, strings.TrimSpace(req.Reason), refund)
}

func (s *CancellationService) recordAudit(ctx context.Context, tenantID string, req *models.CancelRentalRequest, outcome *models.RefundOutcome) {
	if s.audit == nil {
		return
	}
	entry := &models.AdminActionLog{
		TenantID:    &tenantID,
		ActorID:     req.CancelledBy,
		ActionType:  models.ActionCancelRental,
		TargetType:  "rental",
		TargetID:    req.RentalID,
		Description: fmt.Sprintf("refund_type=%s outcome=%s refund_id=%s reason=%s", req.RefundType, outcome.Type, outcome.RefundID, req.Reason),
	}
	if err := s.audit.CreateActionLog(ctx, entry); err != nil {
		log.Printf("[Cancel] Failed to write audit log for rental %s: %v", req.RentalID, err)
	}
}

func (s *CancellationService) buildNotice(ctx context.Context, rental *models.Rental, req *models.CancelRentalRequest, outcome *models.RefundOutcome) *models.CancellationNotice {
	notice := &models.CancellationNotice{
		TenantID:     rental.TenantID,
		RentalID:     rental.ID,
		CustomerID:   rental.CustomerID,
		StartDate:    rental.StartDate.Format(timeutil.DateLayout),
		EndDate:      rental.EndDate.Format(timeutil.DateLayout),
		Reason:       strings.TrimSpace(req.Reason),
		RefundType:   req.RefundType,
		RefundAmount: decimal.Zero,
		RefundStatus: string(outcome.Type),
	}
	if outcome.Amount != nil && (outcome.Type == models.OutcomeFull || outcome.Type == models.OutcomePartial) {
		notice.RefundAmount = *outcome.Amount
	}
	if outcome.Status != "" {
		notice.RefundStatus = outcome.Status
	}

	if s.customers != nil {
		if c, err := s.customers.Get(ctx, rental.TenantID, rental.CustomerID); err == nil {
			notice.CustomerName = c.Name
			notice.CustomerEmail = c.Email
		} else {
			log.Printf("[Cancel] Customer %s lookup for notification failed: %v", rental.CustomerID, err)
		}
	}
	if rental.VehicleID != nil {
		if v, err := s.rentals.GetVehicle(ctx, rental.TenantID, *rental.VehicleID); err == nil {
			notice.Vehicle = strings.TrimSpace(fmt.Sprintf("%s %s (%s)", v.Make, v.Model, v.Plate))
		}
	}
	return notice
}
