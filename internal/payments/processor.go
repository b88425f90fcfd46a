// Package payments talks to the card processor. Callers depend on the
// Processor interface; RazorpayProcessor is the production implementation.
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// IntentStatus is the processor state of a payment, reduced to what the
// rental flows act on
type IntentStatus string

const (
	// StatusRequiresCapture is an authorization hold with no funds taken
	StatusRequiresCapture IntentStatus = "requires_capture"
	// StatusSucceeded means funds were captured
	StatusSucceeded IntentStatus = "succeeded"
	// StatusPending covers created, failed and already refunded payments
	StatusPending IntentStatus = "pending"
	StatusUnknown IntentStatus = "unknown"
)

// Intent is a processor payment as seen by the application
type Intent struct {
	ID        string
	Status    IntentStatus
	RawStatus string
	Amount    decimal.Decimal
	Currency  string
}

// Refund is the processor's answer to a refund request
type Refund struct {
	ID     string
	Amount decimal.Decimal
	Status string
}

// ChargeRequest charges a customer's saved method without them present
type ChargeRequest struct {
	CustomerRef string // processor customer id
	TokenRef    string // saved card/mandate token
	Amount      decimal.Decimal
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Charge is the result of a successful off-session charge
type Charge struct {
	PaymentID string
	OrderID   string
	Status    IntentStatus
}

// Processor is the payment processor contract used by cancellation and installments
type Processor interface {
	RetrieveIntent(ctx context.Context, paymentID string) (*Intent, error)
	// CancelIntent releases an uncaptured authorization
	CancelIntent(ctx context.Context, paymentID, reason string) error
	// CreateRefund refunds captured funds; a nil amount refunds everything
	CreateRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*Refund, error)
	ChargeSaved(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// ToMinor converts a major-unit amount to integer minor units (paise, cents)
func ToMinor(amount decimal.Decimal) int {
	return int(amount.Shift(2).Round(0).IntPart())
}

// FromMinor converts integer minor units to a major-unit amount
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ParseSavedMethod splits a stored "customer:token" reference
func ParseSavedMethod(ref string) (customerRef, tokenRef string, err error) {
	customerRef, tokenRef, ok := strings.Cut(strings.TrimSpace(ref), ":")
	if !ok || customerRef == "" || tokenRef == "" {
		return "", "", fmt.Errorf("saved method %q must look like customer:token", ref)
	}
	return customerRef, tokenRef, nil
}
