package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the bookkeeping status of a payment
type PaymentStatus string

const (
	PaymentStatusApplied       PaymentStatus = "Applied"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
	PaymentStatusPartialRefund PaymentStatus = "Partial Refund"
	PaymentStatusCancelled     PaymentStatus = "Cancelled"
)

// CaptureStatus tracks whether processor funds were actually captured
type CaptureStatus string

const (
	CaptureRequiresCapture CaptureStatus = "requires_capture"
	CaptureCaptured        CaptureStatus = "captured"
	CaptureCancelled       CaptureStatus = "cancelled"
)

// CountsAsCollected reports whether money with this capture state was collected.
// Uncaptured pre-authorizations and released holds never count.
func CountsAsCollected(status *CaptureStatus) bool {
	return status == nil || *status == CaptureCaptured
}

// Payment represents money received (or held) for a rental
type Payment struct {
	ID                 string          `json:"id"`
	TenantID           string          `json:"tenant_id"`
	CustomerID         string          `json:"customer_id"`
	RentalID           *string         `json:"rental_id,omitempty"`
	LedgerEntryID      *string         `json:"ledger_entry_id,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
	RefundedAmount     decimal.Decimal `json:"refunded_amount"`
	Status             PaymentStatus   `json:"status"`
	CaptureStatus      *CaptureStatus  `json:"capture_status,omitempty"`
	ProcessorPaymentID string          `json:"processor_payment_id,omitempty"`
	ProcessorRefundID  string          `json:"processor_refund_id,omitempty"`
	Method             string          `json:"method,omitempty"`
	PaidAt             time.Time       `json:"paid_at"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Refundable is what can still be returned to the customer
func (p *Payment) Refundable() decimal.Decimal {
	left := p.Amount.Sub(p.RefundedAmount)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// RecordPaymentRequest is used to record a received payment
type RecordPaymentRequest struct {
	TenantID           string          `json:"-"`
	CustomerID         string          `json:"customer_id"`
	RentalID           *string         `json:"rental_id"`
	Amount             decimal.Decimal `json:"amount"`
	CaptureStatus      *CaptureStatus  `json:"capture_status"`
	ProcessorPaymentID string          `json:"processor_payment_id"`
	Method             string          `json:"method"`
	AutoAllocate       bool            `json:"auto_allocate"`
}

// PaymentUpdate is the status change written when a cancellation settles a payment.
// ReleaseCredit zeroes the payment's ledger credit, used when a hold is released.
type PaymentUpdate struct {
	PaymentID         string
	Status            PaymentStatus
	CaptureStatus     *CaptureStatus
	ProcessorRefundID string
	Refunded          decimal.Decimal
	ReleaseCredit     bool
}

// AllocationResult summarises one allocation run
type AllocationResult struct {
	PaymentID       string               `json:"payment_id"`
	Applications    []PaymentApplication `json:"applications"`
	TotalApplied    decimal.Decimal      `json:"total_applied"`
	RemainingCredit decimal.Decimal      `json:"remaining_credit"`
}
