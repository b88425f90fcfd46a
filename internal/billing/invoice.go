package billing

import (
	"time"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// PaidAmount sums applications from payments whose money was actually collected.
// Applications backed by an uncaptured pre-authorization are ignored.
func PaidAmount(applied []models.AppliedPayment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range applied {
		if !models.CountsAsCollected(a.CaptureStatus) {
			continue
		}
		total = total.Add(a.AmountApplied)
	}
	return total
}

// InvoiceStatusFor derives the invoice status from what has been paid so far
func InvoiceStatusFor(total, paid decimal.Decimal, dueDate *time.Time, today time.Time) models.InvoiceStatus {
	if total.Sub(paid).LessThan(SettleTolerance) {
		return models.InvoicePaid
	}
	if paid.IsPositive() {
		return models.InvoicePartial
	}
	if dueDate != nil && !timeutil.SameOrBeforeDay(today, *dueDate) {
		return models.InvoiceOverdue
	}
	return models.InvoicePending
}

// InvoicePayment computes the paid state of an invoice from its rental's applications
func InvoicePayment(inv *models.Invoice, applied []models.AppliedPayment, today time.Time) models.InvoicePaymentStatus {
	paid := PaidAmount(applied)
	due := inv.TotalAmount.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	return models.InvoicePaymentStatus{
		InvoiceID:      inv.ID,
		TotalAmount:    inv.TotalAmount,
		PaidAmount:     paid,
		BalanceDue:     due,
		ComputedStatus: InvoiceStatusFor(inv.TotalAmount, paid, inv.DueDate, today),
	}
}
