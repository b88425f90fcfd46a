package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryType represents the type of ledger entry
type LedgerEntryType string

const (
	LedgerEntryTypeCharge  LedgerEntryType = "Charge"  // Money owed by the customer
	LedgerEntryTypePayment LedgerEntryType = "Payment" // Money received from the customer
)

// Ledger categories
const (
	CategoryRental  = "Rental"
	CategoryTax     = "Tax"
	CategoryExtras  = "Extras"
	CategoryDeposit = "Deposit"
	CategoryFee     = "Fee"
	CategoryFine    = "Fine"
	CategoryPayment = "Payment"
	CategoryOther   = "Other"
)

// LedgerEntry represents a single charge or payment row for a customer.
// For charges RemainingAmount starts at Amount and only decreases as payments
// are applied. Payment entries carry a negative Amount and RemainingAmount holds
// the unapplied credit.
type LedgerEntry struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	CustomerID      string          `json:"customer_id"`
	RentalID        *string         `json:"rental_id,omitempty"`
	Type            LedgerEntryType `json:"type"`
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	EntryDate       time.Time       `json:"entry_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsCharge reports whether the entry is a charge
func (e *LedgerEntry) IsCharge() bool {
	return e.Type == LedgerEntryTypeCharge
}

// IsSettled reports whether a charge has been fully paid
func (e *LedgerEntry) IsSettled() bool {
	return e.IsCharge() && e.RemainingAmount.Sign() == 0
}

// CreateChargeRequest is used when billing a customer
type CreateChargeRequest struct {
	TenantID    string          `json:"tenant_id"`
	CustomerID  string          `json:"customer_id"`
	RentalID    *string         `json:"rental_id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     *time.Time      `json:"due_date"`
}

// PaymentApplication links part of a payment to a charge it settles
type PaymentApplication struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	PaymentID     string          `json:"payment_id"`
	ChargeEntryID string          `json:"charge_entry_id"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AppliedPayment is an application joined with the capture state of its payment
type AppliedPayment struct {
	PaymentID     string          `json:"payment_id"`
	AmountApplied decimal.Decimal `json:"amount_applied"`
	CaptureStatus *CaptureStatus  `json:"capture_status,omitempty"`
}

// BalanceStatus classifies a customer's net balance
type BalanceStatus string

const (
	BalanceSettled  BalanceStatus = "Settled"
	BalanceInDebt   BalanceStatus = "In Debt"
	BalanceInCredit BalanceStatus = "In Credit"
)

// CustomerBalance is derived from ledger rows and never stored
type CustomerBalance struct {
	CustomerID      string          `json:"customer_id"`
	Balance         decimal.Decimal `json:"balance"`
	DisplayBalance  decimal.Decimal `json:"display_balance"`
	Status          BalanceStatus   `json:"status"`
	TotalCharges    decimal.Decimal `json:"total_charges"`
	TotalPayments   decimal.Decimal `json:"total_payments"`
	OutstandingDebt decimal.Decimal `json:"outstanding_debt"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
}

// LedgerFilter is used for filtering ledger entries
type LedgerFilter struct {
	TenantID   string          `json:"tenant_id"`
	CustomerID string          `json:"customer_id"`
	RentalID   string          `json:"rental_id"`
	Type       LedgerEntryType `json:"type"`
	StartDate  *time.Time      `json:"start_date"`
	EndDate    *time.Time      `json:"end_date"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}
