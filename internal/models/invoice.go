package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is computed from applied payments, never stored as truth
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePending InvoiceStatus = "pending"
	InvoiceOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	RentalID      string          `json:"rental_id"`
	CustomerID    string          `json:"customer_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InvoicePaymentStatus is the derived paid state of an invoice
type InvoicePaymentStatus struct {
	InvoiceID      string          `json:"invoice_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	ComputedStatus InvoiceStatus   `json:"computed_status"`
}

// CreateInvoiceRequest bills every charge of a rental on one invoice
type CreateInvoiceRequest struct {
	RentalID string     `json:"rental_id"`
	DueDate  *time.Time `json:"due_date"`
}
