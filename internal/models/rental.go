package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusPending    RentalStatus = "Pending"
	RentalStatusActive     RentalStatus = "Active"
	RentalStatusCompleted  RentalStatus = "Completed"
	RentalStatusCancelling RentalStatus = "Cancelling"
	RentalStatusCancelled  RentalStatus = "Cancelled"
)

// CanActivate reports whether signing may still move the rental to Active
func (s RentalStatus) CanActivate() bool {
	return s == RentalStatusPending
}

// IsClosed reports whether the rental is cancelled, being cancelled or finished
func (s RentalStatus) IsClosed() bool {
	return s == RentalStatusCancelling || s == RentalStatusCancelled || s == RentalStatusCompleted
}

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "Available"
	VehicleStatusRented      VehicleStatus = "Rented"
	VehicleStatusMaintenance VehicleStatus = "Maintenance"
)

// DocumentStatus is the internal e-signature lifecycle of a rental agreement
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusSent      DocumentStatus = "sent"
	DocumentStatusDelivered DocumentStatus = "delivered"
	DocumentStatusSigned    DocumentStatus = "signed"
	DocumentStatusCompleted DocumentStatus = "completed"
	DocumentStatusDeclined  DocumentStatus = "declined"
	DocumentStatusVoided    DocumentStatus = "voided"
	DocumentStatusExpired   DocumentStatus = "expired"
	DocumentStatusUnknown   DocumentStatus = "unknown"
)

type Rental struct {
	ID                  string          `json:"id"`
	TenantID            string          `json:"tenant_id"`
	CustomerID          string          `json:"customer_id"`
	VehicleID           *string         `json:"vehicle_id,omitempty"`
	Status              RentalStatus    `json:"status"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	DocumentStatus      DocumentStatus  `json:"document_status"`
	EnvelopeID          string          `json:"envelope_id,omitempty"`
	SignedDocumentID    *string         `json:"signed_document_id,omitempty"`
	EnvelopeCompletedAt *time.Time      `json:"envelope_completed_at,omitempty"`
	MonthlyAmount       decimal.Decimal `json:"monthly_amount"`
	Notes               string          `json:"notes"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// DurationDays returns the inclusive-exclusive rental length in whole days (minimum 1)
func (r *Rental) DurationDays() int {
	days := int(r.EndDate.Sub(r.StartDate).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

type Vehicle struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	Make      string        `json:"make"`
	Model     string        `json:"model"`
	Plate     string        `json:"plate"`
	Status    VehicleStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CancellationWrite is everything a cancellation commits in one transaction
type CancellationWrite struct {
	TenantID      string
	RentalID      string
	VehicleID     *string
	NotesAppend   string
	PaymentUpdate *PaymentUpdate
}

// ActivationWrite is committed when an agreement completes signing
type ActivationWrite struct {
	TenantID    string
	RentalID    string
	VehicleID   *string
	CompletedAt time.Time
}
