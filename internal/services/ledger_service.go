package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"fleetrent-backend/internal/billing"
	"fleetrent-backend/internal/cache"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// maxAllocationAttempts bounds re-reads after a concurrent balance change
const maxAllocationAttempts = 3

type ledgerStore interface {
	CreateCharge(ctx context.Context, req *models.CreateChargeRequest) (*models.LedgerEntry, error)
	ListByCustomer(ctx context.Context, tenantID, customerID string) ([]models.LedgerEntry, error)
	ListOpenCharges(ctx context.Context, tenantID, customerID string) ([]models.LedgerEntry, error)
	ApplyAllocations(ctx context.Context, payment *models.Payment, plan []billing.Allocation) ([]models.PaymentApplication, error)
	AppliedPaymentsForRental(ctx context.Context, tenantID, rentalID string) ([]models.AppliedPayment, error)
}

type paymentStore interface {
	Create(ctx context.Context, req *models.RecordPaymentRequest) (*models.Payment, error)
	Get(ctx context.Context, tenantID, id string) (*models.Payment, error)
}

type LedgerService struct {
	ledger   ledgerStore
	payments paymentStore
	clock    tenantClock
}

func NewLedgerService(ledger ledgerStore, payments paymentStore, tenants tenantLookup) *LedgerService {
	return &LedgerService{
		ledger:   ledger,
		payments: payments,
		clock:    newTenantClock(tenants),
	}
}

func requireIDs(tenantID, customerID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return models.Invalid("tenant_id", "is required")
	}
	if strings.TrimSpace(customerID) == "" {
		return models.Invalid("customer_id", "is required")
	}
	return nil
}

// CreateCharge bills a customer
func (s *LedgerService) CreateCharge(ctx context.Context, req *models.CreateChargeRequest) (*models.LedgerEntry, error) {
	if err := requireIDs(req.TenantID, req.CustomerID); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, models.Invalid("amount", "must be positive")
	}
	if req.Category == "" {
		req.Category = models.CategoryOther
	}
	return s.ledger.CreateCharge(ctx, req)
}

// ComputeOutstandingBalance is what the customer owes today. Rental charges
// dated in the future are not yet due and are left out.
func (s *LedgerService) ComputeOutstandingBalance(ctx context.Context, tenantID, customerID string) (decimal.Decimal, error) {
	if err := requireIDs(tenantID, customerID); err != nil {
		return decimal.Zero, err
	}
	entries, err := s.ledger.ListByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load ledger: %w", err)
	}
	return billing.OutstandingBalance(entries, s.clock.today(ctx, tenantID)), nil
}

// ComputeBalanceWithStatus classifies the customer's net position
func (s *LedgerService) ComputeBalanceWithStatus(ctx context.Context, tenantID, customerID string) (*models.CustomerBalance, error) {
	if err := requireIDs(tenantID, customerID); err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	balance := billing.BalanceWithStatus(customerID, entries, s.clock.today(ctx, tenantID))
	return &balance, nil
}

// ComputePaidAmountForInvoice sums collected money applied against the invoice's
// rental. Held pre-authorizations are not counted.
func (s *LedgerService) ComputePaidAmountForInvoice(ctx context.Context, inv *models.Invoice) (*models.InvoicePaymentStatus, error) {
	if inv.TenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	applied, err := s.ledger.AppliedPaymentsForRental(ctx, inv.TenantID, inv.RentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applications: %w", err)
	}
	status := billing.InvoicePayment(inv, applied, s.clock.today(ctx, inv.TenantID))
	return &status, nil
}

// RecordPayment stores a received payment and, when asked, allocates it straight away
func (s *LedgerService) RecordPayment(ctx context.Context, req *models.RecordPaymentRequest) (*models.Payment, *models.AllocationResult, error) {
	if err := requireIDs(req.TenantID, req.CustomerID); err != nil {
		return nil, nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, nil, models.Invalid("amount", "must be positive")
	}

	payment, err := s.payments.Create(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to record payment: %w", err)
	}
	log.Printf("[Ledger] Recorded payment %s of %s for customer %s", payment.ID, payment.Amount, payment.CustomerID)
	cache.InvalidateDashboard(ctx, payment.TenantID)

	if !req.AutoAllocate || !models.CountsAsCollected(payment.CaptureStatus) {
		return payment, nil, nil
	}
	result, err := s.AllocatePayment(ctx, payment.TenantID, payment.ID)
	if err != nil {
		return payment, nil, err
	}
	return payment, result, nil
}

// AllocatePayment spreads a payment's unapplied credit over the customer's open
// charges, oldest due first. A concurrent change to any touched row aborts the
// write and the plan is recomputed from a fresh read.
func (s *LedgerService) AllocatePayment(ctx context.Context, tenantID, paymentID string) (*models.AllocationResult, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		result, err := s.allocateOnce(ctx, tenantID, paymentID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repositories.ErrAllocationConflict) {
			return nil, err
		}
		metrics.AllocationConflictsTotal.Inc()
		log.Printf("[Ledger] Allocation conflict for payment %s (attempt %d/%d)", paymentID, attempt, maxAllocationAttempts)
		lastErr = err
	}
	return nil, fmt.Errorf("payment %s: %w: %v", paymentID, models.ErrConflict, lastErr)
}

func (s *LedgerService) allocateOnce(ctx context.Context, tenantID, paymentID string) (*models.AllocationResult, error) {
	payment, err := s.payments.Get(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusApplied {
		return nil, models.Invalid("payment_id", "payment is %s and cannot be allocated", payment.Status)
	}
	if !models.CountsAsCollected(payment.CaptureStatus) {
		return nil, models.Invalid("payment_id", "payment has not been captured")
	}

	result := &models.AllocationResult{
		PaymentID:       payment.ID,
		TotalApplied:    decimal.Zero,
		RemainingCredit: payment.RemainingAmount,
	}
	if !payment.RemainingAmount.IsPositive() {
		return result, nil
	}

	charges, err := s.ledger.ListOpenCharges(ctx, tenantID, payment.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open charges: %w", err)
	}

	plan, leftover := billing.PlanAllocation(payment.RemainingAmount, charges, s.clock.today(ctx, tenantID))
	if len(plan) == 0 {
		return result, nil
	}

	apps, err := s.ledger.ApplyAllocations(ctx, payment, plan)
	if err != nil {
		return nil, err
	}

	result.Applications = apps
	result.TotalApplied = billing.TotalAllocated(plan)
	result.RemainingCredit = leftover
	log.Printf("[Ledger] Allocated %s of payment %s across %d charges", result.TotalApplied, payment.ID, len(apps))
	return result, nil
}
