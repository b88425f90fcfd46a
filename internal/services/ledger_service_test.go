package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedgerService() (*LedgerService, *fakeLedger, *fakePayments) {
	payments := newFakePayments()
	ledger := newFakeLedger(payments)
	svc := NewLedgerService(ledger, payments, nil)
	svc.clock.now = func() time.Time { return fixedNow }
	return svc, ledger, payments
}

func TestAllocatePayment_ConservesMoney(t *testing.T) {
	ctx := context.Background()
	svc, ledger, payments := newTestLedgerService()
	ledger.addCharge("c-future", "t1", "cust", models.CategoryRental, "200", datePtr(2026, 4, 1))
	ledger.addCharge("c-old", "t1", "cust", models.CategoryRental, "100", datePtr(2026, 3, 1))
	ledger.addCharge("c-fine", "t1", "cust", models.CategoryFine, "50", nil)

	payment, _, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{
		TenantID: "t1", CustomerID: "cust", Amount: dec("180"),
	})
	require.NoError(t, err)

	result, err := svc.AllocatePayment(ctx, "t1", payment.ID)
	require.NoError(t, err)

	// currently due charges are settled before the future installment
	assert.True(t, ledger.remaining("c-old").IsZero())
	assert.True(t, ledger.remaining("c-fine").IsZero())
	assert.True(t, ledger.remaining("c-future").Equal(dec("170")))

	applied := decimal.Zero
	for _, a := range result.Applications {
		applied = applied.Add(a.AmountApplied)
	}
	assert.True(t, applied.Equal(dec("180")))
	assert.True(t, result.TotalApplied.Equal(dec("180")))
	assert.True(t, result.RemainingCredit.IsZero())

	stored, err := payments.Get(ctx, "t1", payment.ID)
	require.NoError(t, err)
	assert.True(t, stored.RemainingAmount.IsZero())
}

func TestAllocatePayment_LeavesCredit(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestLedgerService()
	ledger.addCharge("c1", "t1", "cust", models.CategoryFee, "40", nil)

	_, result, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{
		TenantID: "t1", CustomerID: "cust", Amount: dec("100"), AutoAllocate: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.TotalApplied.Equal(dec("40")))
	assert.True(t, result.RemainingCredit.Equal(dec("60")))
	assert.False(t, ledger.remaining("c1").IsNegative())
}

func TestAllocatePayment_RetriesConflicts(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestLedgerService()
	ledger.addCharge("c1", "t1", "cust", models.CategoryFee, "40", nil)
	payment, _, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{TenantID: "t1", CustomerID: "cust", Amount: dec("40")})
	require.NoError(t, err)

	ledger.conflictsLeft = 2
	result, err := svc.AllocatePayment(ctx, "t1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, ledger.applyCalls)
	assert.True(t, result.TotalApplied.Equal(dec("40")))
}

func TestAllocatePayment_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestLedgerService()
	ledger.addCharge("c1", "t1", "cust", models.CategoryFee, "40", nil)
	payment, _, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{TenantID: "t1", CustomerID: "cust", Amount: dec("40")})
	require.NoError(t, err)

	ledger.conflictsLeft = maxAllocationAttempts
	_, err = svc.AllocatePayment(ctx, "t1", payment.ID)
	assert.True(t, errors.Is(err, models.ErrConflict))
	assert.True(t, ledger.remaining("c1").Equal(dec("40")))
}

func TestAllocatePayment_RejectsUncapturedHold(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newTestLedgerService()
	ledger.addCharge("c1", "t1", "cust", models.CategoryRental, "100", nil)

	payment, result, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{
		TenantID: "t1", CustomerID: "cust", Amount: dec("100"),
		CaptureStatus: capturePtr(models.CaptureRequiresCapture), AutoAllocate: true,
	})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.True(t, ledger.remaining("c1").Equal(dec("100")))
	assert.True(t, payment.RemainingAmount.IsZero(), "a hold carries no credit")

	_, err = svc.AllocatePayment(ctx, "t1", payment.ID)
	assert.True(t, models.IsValidation(err))
}

func TestRecordPayment_Validation(t *testing.T) {
	svc, _, _ := newTestLedgerService()
	ctx := context.Background()

	_, _, err := svc.RecordPayment(ctx, &models.RecordPaymentRequest{CustomerID: "cust", Amount: dec("1")})
	assert.True(t, models.IsValidation(err))

	_, _, err = svc.RecordPayment(ctx, &models.RecordPaymentRequest{TenantID: "t1", CustomerID: "cust", Amount: dec("0")})
	assert.True(t, models.IsValidation(err))
}

func TestComputeOutstandingBalance_ExcludesFutureRental(t *testing.T) {
	svc, ledger, _ := newTestLedgerService()
	ledger.addCharge("c1", "t1", "cust", models.CategoryRental, "100", datePtr(2026, 3, 10))
	ledger.addCharge("c2", "t1", "cust", models.CategoryRental, "100", datePtr(2026, 3, 11))
	ledger.addCharge("c3", "t1", "cust", models.CategoryFine, "25", datePtr(2026, 5, 1))

	got, err := svc.ComputeOutstandingBalance(context.Background(), "t1", "cust")
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("125")), got.String())

	_, err = svc.ComputeOutstandingBalance(context.Background(), "", "cust")
	assert.True(t, models.IsValidation(err))
}

func TestComputeBalanceWithStatus(t *testing.T) {
	svc, ledger, _ := newTestLedgerService()
	ledger.addCharge("c1", "t1", "cust", models.CategoryFee, "30", nil)

	balance, err := svc.ComputeBalanceWithStatus(context.Background(), "t1", "cust")
	require.NoError(t, err)
	assert.Equal(t, models.BalanceInDebt, balance.Status)
	assert.True(t, balance.DisplayBalance.Equal(dec("30")))
}

func TestComputePaidAmountForInvoice_IgnoresHolds(t *testing.T) {
	svc, ledger, _ := newTestLedgerService()
	ledger.applied = []models.AppliedPayment{
		{PaymentID: "p1", AmountApplied: dec("40"), CaptureStatus: capturePtr(models.CaptureCaptured)},
		{PaymentID: "p2", AmountApplied: dec("60"), CaptureStatus: capturePtr(models.CaptureRequiresCapture)},
	}
	inv := &models.Invoice{ID: "inv", TenantID: "t1", RentalID: "r1", TotalAmount: dec("100"), DueDate: datePtr(2026, 3, 20)}

	status, err := svc.ComputePaidAmountForInvoice(context.Background(), inv)
	require.NoError(t, err)
	assert.True(t, status.PaidAmount.Equal(dec("40")))
	assert.Equal(t, models.InvoicePartial, status.ComputedStatus)
}
