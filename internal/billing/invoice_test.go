package billing

import (
	"testing"

	"fleetrent-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func capture(s models.CaptureStatus) *models.CaptureStatus {
	return &s
}

func TestPaidAmount_ExcludesUncapturedPreAuth(t *testing.T) {
	applied := []models.AppliedPayment{
		{PaymentID: "p1", AmountApplied: d("100"), CaptureStatus: nil},
		{PaymentID: "p2", AmountApplied: d("50"), CaptureStatus: capture(models.CaptureCaptured)},
		{PaymentID: "p3", AmountApplied: d("500"), CaptureStatus: capture(models.CaptureRequiresCapture)},
		{PaymentID: "p4", AmountApplied: d("70"), CaptureStatus: capture(models.CaptureCancelled)},
	}
	assert.True(t, PaidAmount(applied).Equal(d("150")))
}

func TestInvoicePayment_PreAuthOnlyIsNotPaid(t *testing.T) {
	due := day(2026, 6, 30)
	inv := &models.Invoice{ID: "inv-1", TotalAmount: d("500"), DueDate: &due}
	applied := []models.AppliedPayment{
		{PaymentID: "p1", AmountApplied: d("500"), CaptureStatus: capture(models.CaptureRequiresCapture)},
	}

	st := InvoicePayment(inv, applied, day(2026, 6, 1))
	assert.Equal(t, models.InvoicePending, st.ComputedStatus)
	assert.True(t, st.PaidAmount.IsZero())
	assert.True(t, st.BalanceDue.Equal(d("500")))

	st = InvoicePayment(inv, applied, day(2026, 7, 1))
	assert.Equal(t, models.InvoiceOverdue, st.ComputedStatus)
}

func TestInvoiceStatusFor(t *testing.T) {
	due := day(2026, 6, 30)
	today := day(2026, 6, 30)

	assert.Equal(t, models.InvoicePaid, InvoiceStatusFor(d("500"), d("500"), &due, today))
	assert.Equal(t, models.InvoicePaid, InvoiceStatusFor(d("500"), d("499.995"), &due, today))
	assert.Equal(t, models.InvoicePartial, InvoiceStatusFor(d("500"), d("200"), &due, day(2026, 8, 1)))
	assert.Equal(t, models.InvoicePending, InvoiceStatusFor(d("500"), d("0"), &due, today))
	assert.Equal(t, models.InvoiceOverdue, InvoiceStatusFor(d("500"), d("0"), &due, day(2026, 7, 1)))
	assert.Equal(t, models.InvoicePending, InvoiceStatusFor(d("500"), d("0"), nil, day(2030, 1, 1)))
}
