package models

import "github.com/shopspring/decimal"

// RefundType requested by the operator when cancelling a rental
type RefundType string

const (
	RefundFull    RefundType = "full"
	RefundPartial RefundType = "partial"
	RefundNone    RefundType = "none"
)

// RefundOutcomeType records what actually happened at the processor
type RefundOutcomeType string

const (
	OutcomeFull      RefundOutcomeType = "full"
	OutcomePartial   RefundOutcomeType = "partial"
	OutcomeNone      RefundOutcomeType = "none"
	OutcomeCancelled RefundOutcomeType = "cancelled" // pre-authorization hold released
	OutcomeSkipped   RefundOutcomeType = "skipped"
	OutcomeError     RefundOutcomeType = "error"
)

type CancelRentalRequest struct {
	RentalID     string           `json:"rental_id"`
	PaymentID    *string          `json:"payment_id"`
	RefundType   RefundType       `json:"refund_type"`
	RefundAmount *decimal.Decimal `json:"refund_amount"`
	Reason       string           `json:"reason"`
	CancelledBy  string           `json:"cancelled_by"`
}

type RefundOutcome struct {
	Type     RefundOutcomeType `json:"type"`
	RefundID string            `json:"refund_id,omitempty"`
	Amount   *decimal.Decimal  `json:"amount,omitempty"`
	Status   string            `json:"status,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// MovedMoney reports whether the processor refunded or released funds
func (o *RefundOutcome) MovedMoney() bool {
	switch o.Type {
	case OutcomeFull, OutcomePartial, OutcomeCancelled:
		return true
	}
	return false
}

// CancellationNotice is handed to the notifier for the customer email
type CancellationNotice struct {
	TenantID      string          `json:"tenant_id"`
	RentalID      string          `json:"rental_id"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Vehicle       string          `json:"vehicle,omitempty"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Reason        string          `json:"reason"`
	RefundType    RefundType      `json:"refund_type"`
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	RefundStatus  string          `json:"refund_status"`
}

type CancelRentalResponse struct {
	Success          bool                `json:"success"`
	Refund           RefundOutcome       `json:"refund"`
	NotificationData *CancellationNotice `json:"notification_data"`
}
