package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitMode selects which price components are divided across installments
type SplitMode string

const (
	SplitRentalOnly      SplitMode = "rental_only"
	SplitRentalTax       SplitMode = "rental_tax"
	SplitRentalTaxExtras SplitMode = "rental_tax_extras"
)

// Cadence of an installment plan
type Cadence string

const (
	CadenceNone    Cadence = ""
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// InstallmentConfig is the per-tenant installment policy
type InstallmentConfig struct {
	TenantID               string    `json:"tenant_id"`
	Enabled                bool      `json:"enabled"`
	MinDaysForWeekly       int       `json:"min_days_for_weekly"`
	MinDaysForMonthly      int       `json:"min_days_for_monthly"`
	MaxInstallmentsWeekly  int       `json:"max_installments_weekly"`
	MaxInstallmentsMonthly int       `json:"max_installments_monthly"`
	ChargeFirstUpfront     bool      `json:"charge_first_upfront"`
	WhatGetsSplit          SplitMode `json:"what_gets_split"`
	GracePeriodDays        int       `json:"grace_period_days"`
	MaxRetryAttempts       int       `json:"max_retry_attempts"`
	RetryIntervalDays      int       `json:"retry_interval_days"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultInstallmentConfig is written for newly provisioned tenants
func DefaultInstallmentConfig(tenantID string) *InstallmentConfig {
	return &InstallmentConfig{
		TenantID:               tenantID,
		Enabled:                true,
		MinDaysForWeekly:       7,
		MinDaysForMonthly:      30,
		MaxInstallmentsWeekly:  12,
		MaxInstallmentsMonthly: 6,
		ChargeFirstUpfront:     true,
		WhatGetsSplit:          SplitRentalTax,
		GracePeriodDays:        3,
		MaxRetryAttempts:       3,
		RetryIntervalDays:      1,
	}
}

// PriceQuote is the priced breakdown of a booking
type PriceQuote struct {
	Rental  decimal.Decimal `json:"rental"`
	Tax     decimal.Decimal `json:"tax"`
	Extras  decimal.Decimal `json:"extras"`
	Deposit decimal.Decimal `json:"deposit"`
	Fees    decimal.Decimal `json:"fees"`
}

// Total is everything the customer owes for the booking
func (q PriceQuote) Total() decimal.Decimal {
	return q.Rental.Add(q.Tax).Add(q.Extras).Add(q.Deposit).Add(q.Fees)
}

// InstallmentQuoteRequest asks what plan a booking would get
type InstallmentQuoteRequest struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Quote     PriceQuote `json:"quote"`
}

// ScheduledCharge is one planned charge of a booking's payment schedule
type ScheduledCharge struct {
	Sequence    int             `json:"sequence"` // 0 for non-split upfront charges
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
}

// InstallmentSchedule is the full payment plan for a booking
type InstallmentSchedule struct {
	Cadence      Cadence           `json:"cadence"`
	Count        int               `json:"count"`
	SplitAmount  decimal.Decimal   `json:"split_amount"`
	Installments []ScheduledCharge `json:"installments"`
	Upfront      []ScheduledCharge `json:"upfront"`
	Total        decimal.Decimal   `json:"total"`
}

type InstallmentStatus string

const (
	InstallmentScheduled InstallmentStatus = "scheduled"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentFailed    InstallmentStatus = "failed"
	InstallmentOverdue   InstallmentStatus = "overdue"
)

// InstallmentCharge tracks collection of one installment of a rental
type InstallmentCharge struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id"`
	RentalID      string            `json:"rental_id"`
	CustomerID    string            `json:"customer_id"`
	ChargeEntryID string            `json:"charge_entry_id"`
	Sequence      int               `json:"sequence"`
	Amount        decimal.Decimal   `json:"amount"`
	DueDate       time.Time         `json:"due_date"`
	Status        InstallmentStatus `json:"status"`
	Attempts      int               `json:"attempts"`
	LastAttemptAt *time.Time        `json:"last_attempt_at,omitempty"`
	NextAttemptAt *time.Time        `json:"next_attempt_at,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CreatePlanRequest books an installment plan for an existing rental
type CreatePlanRequest struct {
	Quote          PriceQuote `json:"quote"`
	SavedMethodRef string     `json:"saved_method_ref"`
}

// InstallmentPlan is the booked schedule with its tracking rows
type InstallmentPlan struct {
	Schedule *InstallmentSchedule `json:"schedule"`
	Charges  []*InstallmentCharge `json:"charges"`
}

// RetrySweepResult summarises one pass of the installment retry worker
type RetrySweepResult struct {
	Attempted     int   `json:"attempted"`
	Paid          int   `json:"paid"`
	Failed        int   `json:"failed"`
	MarkedOverdue int64 `json:"marked_overdue"`
}
