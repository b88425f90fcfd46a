package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fleetrent-backend/internal/billing"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/payments"
	"fleetrent-backend/internal/timeutil"
)

// dueBatchSize caps how many installments one sweep charges
const dueBatchSize = 100

type installmentStore interface {
	GetConfig(ctx context.Context, tenantID string) (*models.InstallmentConfig, error)
	SaveConfig(ctx context.Context, c *models.InstallmentConfig) error
	CreatePlan(ctx context.Context, rental *models.Rental, sched *models.InstallmentSchedule) ([]*models.InstallmentCharge, error)
	Get(ctx context.Context, tenantID, id string) (*models.InstallmentCharge, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.InstallmentCharge, error)
	RecordAttempt(ctx context.Context, c *models.InstallmentCharge) error
	SavedMethod(ctx context.Context, tenantID, rentalID string) (string, error)
	SetSavedMethod(ctx context.Context, tenantID, rentalID, ref string) error
	MarkOverdue(ctx context.Context, tenantID string, dueBefore time.Time) (int64, error)
}

type rentalReader interface {
	Get(ctx context.Context, tenantID, id string) (*models.Rental, error)
}

type paymentRecorder interface {
	RecordPayment(ctx context.Context, req *models.RecordPaymentRequest) (*models.Payment, *models.AllocationResult, error)
}

type tenantDirectory interface {
	tenantLookup
	ListActiveIDs(ctx context.Context) ([]string, error)
}

type InstallmentService struct {
	store     installmentStore
	rentals   rentalReader
	ledger    paymentRecorder
	processor payments.Processor
	tenants   tenantDirectory
	audit     auditLog
	clock     tenantClock
}

func NewInstallmentService(
	store installmentStore,
	rentals rentalReader,
	ledger paymentRecorder,
	processor payments.Processor,
	tenants tenantDirectory,
	audit auditLog,
) *InstallmentService {
	return &InstallmentService{
		store:     store,
		rentals:   rentals,
		ledger:    ledger,
		processor: processor,
		tenants:   tenants,
		audit:     audit,
		clock:     newTenantClock(tenants),
	}
}

func (s *InstallmentService) GetConfig(ctx context.Context, tenantID string) (*models.InstallmentConfig, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	return s.store.GetConfig(ctx, tenantID)
}

func validateInstallmentConfig(c *models.InstallmentConfig) error {
	switch c.WhatGetsSplit {
	case models.SplitRentalOnly, models.SplitRentalTax, models.SplitRentalTaxExtras:
	default:
		return models.Invalid("what_gets_split", "must be one of rental_only, rental_tax, rental_tax_extras")
	}
	if c.MinDaysForWeekly < 1 || c.MinDaysForMonthly < 1 {
		return models.Invalid("min_days", "must be at least 1")
	}
	if c.MaxInstallmentsWeekly < 1 || c.MaxInstallmentsMonthly < 1 {
		return models.Invalid("max_installments", "must be at least 1")
	}
	if c.GracePeriodDays < 0 {
		return models.Invalid("grace_period_days", "cannot be negative")
	}
	if c.MaxRetryAttempts < 0 {
		return models.Invalid("max_retry_attempts", "cannot be negative")
	}
	if c.RetryIntervalDays < 1 {
		return models.Invalid("retry_interval_days", "must be at least 1")
	}
	return nil
}

// UpdateConfig replaces the tenant's installment policy
func (s *InstallmentService) UpdateConfig(ctx context.Context, tenantID, actorID string, cfg *models.InstallmentConfig) (*models.InstallmentConfig, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if err := validateInstallmentConfig(cfg); err != nil {
		return nil, err
	}
	cfg.TenantID = tenantID
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save installment config: %w", err)
	}

	if s.audit != nil {
		tid := tenantID
		err := s.audit.CreateActionLog(ctx, &models.AdminActionLog{
			TenantID:    &tid,
			ActorID:     actorID,
			ActionType:  models.ActionUpdateConfig,
			TargetType:  "installment_config",
			TargetID:    tenantID,
			Description: fmt.Sprintf("enabled=%t split=%s retries=%d", cfg.Enabled, cfg.WhatGetsSplit, cfg.MaxRetryAttempts),
		})
		if err != nil {
			log.Printf("[Installments] Failed to write audit log: %v", err)
		}
	}
	return cfg, nil
}

// Quote previews the schedule a booking would get without writing anything
func (s *InstallmentService) Quote(ctx context.Context, tenantID string, req *models.InstallmentQuoteRequest) (*models.InstallmentSchedule, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, models.Invalid("start_date", "start and end dates are required")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, models.Invalid("end_date", "must be after start_date")
	}
	cfg, err := s.store.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	days := int(req.EndDate.Sub(req.StartDate).Hours() / 24)
	if days < 1 {
		days = 1
	}
	now := s.clock.now().In(s.clock.zone(ctx, tenantID))
	return schedule(req.Quote, cfg, now, req.StartDate, days)
}

func schedule(q models.PriceQuote, cfg *models.InstallmentConfig, booking, start time.Time, days int) (*models.InstallmentSchedule, error) {
	sched, err := billing.BuildSchedule(q, cfg, booking, start, days)
	if errors.Is(err, billing.ErrNotEligible) {
		return nil, models.Invalid("installments", "%v", err)
	}
	return sched, err
}

// CreatePlan books an installment plan against an existing rental
func (s *InstallmentService) CreatePlan(ctx context.Context, tenantID, rentalID string, req *models.CreatePlanRequest) (*models.InstallmentPlan, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if req.SavedMethodRef != "" {
		if _, _, err := payments.ParseSavedMethod(req.SavedMethodRef); err != nil {
			return nil, models.Invalid("saved_method_ref", "%v", err)
		}
	}

	rental, err := s.rentals.Get(ctx, tenantID, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rental: %w", err)
	}
	if rental.Status.IsClosed() {
		return nil, models.Invalid("rental_id", "rental is %s", strings.ToLower(string(rental.Status)))
	}

	cfg, err := s.store.GetConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.clock.now().In(s.clock.zone(ctx, tenantID))
	sched, err := schedule(req.Quote, cfg, now, rental.StartDate, rental.DurationDays())
	if err != nil {
		return nil, err
	}

	charges, err := s.store.CreatePlan(ctx, rental, sched)
	if err != nil {
		return nil, fmt.Errorf("failed to create installment plan: %w", err)
	}
	if req.SavedMethodRef != "" {
		if err := s.store.SetSavedMethod(ctx, tenantID, rental.ID, req.SavedMethodRef); err != nil {
			return nil, fmt.Errorf("failed to store saved method: %w", err)
		}
	}
	log.Printf("[Installments] Rental %s booked %d %s installments totalling %s",
		rental.ID, sched.Count, sched.Cadence, sched.Total.StringFixed(2))

	return &models.InstallmentPlan{Schedule: sched, Charges: charges}, nil
}

// ChargeInstallment attempts collection of one installment now
func (s *InstallmentService) ChargeInstallment(ctx context.Context, tenantID, id string) (*models.InstallmentCharge, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	c, err := s.store.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.InstallmentPaid {
		return nil, models.Invalid("installment_id", "installment is already paid")
	}
	if err := s.attempt(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// attempt charges the saved method and records the result on c. A charge
// that went through is marked paid even when the ledger write fails, so the
// customer is never charged twice for it.
func (s *InstallmentService) attempt(ctx context.Context, c *models.InstallmentCharge) error {
	cfg, err := s.store.GetConfig(ctx, c.TenantID)
	if err != nil {
		return err
	}
	now := s.clock.now().In(s.clock.zone(ctx, c.TenantID))
	c.LastAttemptAt = &now
	c.Attempts++

	charge, chargeErr := s.charge(ctx, c)
	if chargeErr != nil {
		decision := billing.AfterFailure(c, c.Attempts, cfg, now)
		c.Status = decision.Status
		c.NextAttemptAt = decision.NextAttemptAt
		c.LastError = chargeErr.Error()
		metrics.InstallmentChargesTotal.WithLabelValues("failed").Inc()
		log.Printf("[Installments] Charge for installment %s failed (attempt %d, now %s): %v",
			c.ID, c.Attempts, c.Status, chargeErr)
	} else {
		c.Status = models.InstallmentPaid
		c.NextAttemptAt = nil
		c.LastError = ""
		metrics.InstallmentChargesTotal.WithLabelValues("paid").Inc()

		captured := models.CaptureCaptured
		rentalID := c.RentalID
		_, _, err := s.ledger.RecordPayment(ctx, &models.RecordPaymentRequest{
			TenantID:           c.TenantID,
			CustomerID:         c.CustomerID,
			RentalID:           &rentalID,
			Amount:             c.Amount,
			CaptureStatus:      &captured,
			ProcessorPaymentID: charge.PaymentID,
			Method:             "saved_method",
			AutoAllocate:       true,
		})
		if err != nil {
			log.Printf("[Installments] ERROR: installment %s charged as %s but payment not recorded: %v",
				c.ID, charge.PaymentID, err)
			c.LastError = "payment not recorded: " + err.Error()
		}
	}

	if err := s.store.RecordAttempt(ctx, c); err != nil {
		return fmt.Errorf("failed to record attempt for installment %s: %w", c.ID, err)
	}
	return nil
}

func (s *InstallmentService) charge(ctx context.Context, c *models.InstallmentCharge) (*payments.Charge, error) {
	ref, err := s.store.SavedMethod(ctx, c.TenantID, c.RentalID)
	if err != nil {
		return nil, fmt.Errorf("no saved method: %w", err)
	}
	customerRef, tokenRef, err := payments.ParseSavedMethod(ref)
	if err != nil {
		return nil, err
	}
	return s.processor.ChargeSaved(ctx, payments.ChargeRequest{
		CustomerRef: customerRef,
		TokenRef:    tokenRef,
		Amount:      c.Amount,
		Receipt:     c.ID,
		Notes: map[string]string{
			"rental_id":      c.RentalID,
			"installment_id": c.ID,
			"sequence":       fmt.Sprint(c.Sequence),
		},
	})
}

// RunDueCharges attempts every installment whose retry time has come, then
// relabels anything past its grace period as overdue
func (s *InstallmentService) RunDueCharges(ctx context.Context) (*models.RetrySweepResult, error) {
	result := &models.RetrySweepResult{}

	due, err := s.store.ListDue(ctx, s.clock.now(), dueBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due installments: %w", err)
	}
	for _, c := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Attempted++
		if err := s.attempt(ctx, c); err != nil {
			log.Printf("[Installments] %v", err)
			result.Failed++
			continue
		}
		if c.Status == models.InstallmentPaid {
			result.Paid++
		} else {
			result.Failed++
		}
	}

	marked, err := s.markOverdue(ctx)
	result.MarkedOverdue = marked
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *InstallmentService) markOverdue(ctx context.Context) (int64, error) {
	ids, err := s.tenants.ListActiveIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	var total int64
	for _, id := range ids {
		cfg, err := s.store.GetConfig(ctx, id)
		if err != nil {
			log.Printf("[Installments] Skipping overdue sweep for tenant %s: %v", id, err)
			continue
		}
		// due + grace must be before today for the installment to be late
		cutoff := timeutil.AddDays(s.clock.today(ctx, id), -cfg.GracePeriodDays)
		n, err := s.store.MarkOverdue(ctx, id, cutoff)
		if err != nil {
			log.Printf("[Installments] Overdue sweep failed for tenant %s: %v", id, err)
			continue
		}
		total += n
	}
	return total, nil
}
