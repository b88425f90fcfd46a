package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type installmentFixture struct {
	svc       *InstallmentService
	store     *fakeInstallments
	rentals   *fakeRentals
	ledger    *recordingLedger
	processor *fakeProcessor
	audit     *recordingAudit
}

func newInstallmentFixture() *installmentFixture {
	f := &installmentFixture{
		store:     newFakeInstallments(),
		rentals:   newFakeRentals(),
		ledger:    &recordingLedger{},
		processor: newFakeProcessor(),
		audit:     &recordingAudit{},
	}
	tenants := fakeTenants{"t1": {ID: "t1", IsActive: true}}
	f.svc = NewInstallmentService(f.store, f.rentals, f.ledger, f.processor, tenants, f.audit)
	f.svc.clock.now = func() time.Time { return fixedNow }
	return f
}

func dueInstallment(id string, due time.Time, attempts int) *models.InstallmentCharge {
	return &models.InstallmentCharge{
		ID: id, TenantID: "t1", RentalID: "r1", CustomerID: "cust", Sequence: 1,
		Amount: dec("590"), DueDate: due, Status: models.InstallmentScheduled,
		Attempts: attempts, NextAttemptAt: &due,
	}
}

func TestCreatePlan_ScheduleMatchesQuoteTotal(t *testing.T) {
	f := newInstallmentFixture()
	f.rentals.seed("r1", models.RentalStatusPending, models.VehicleStatusRented)
	quote := models.PriceQuote{Rental: dec("1000"), Tax: dec("180"), Deposit: dec("500")}

	plan, err := f.svc.CreatePlan(context.Background(), "t1", "r1", &models.CreatePlanRequest{
		Quote: quote, SavedMethodRef: "cust_1:token_1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CadenceWeekly, plan.Schedule.Cadence)
	assert.Equal(t, 2, plan.Schedule.Count)
	assert.Len(t, plan.Charges, 2)

	sum := decimal.Zero
	for _, c := range plan.Schedule.Installments {
		sum = sum.Add(c.Amount)
	}
	for _, c := range plan.Schedule.Upfront {
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(quote.Total()), "schedule sums to %s", sum)
	assert.Equal(t, "cust_1:token_1", f.store.methods["r1"])
}

func TestCreatePlan_ShortRentalNotEligible(t *testing.T) {
	f := newInstallmentFixture()
	r := f.rentals.seed("r1", models.RentalStatusPending, models.VehicleStatusRented)
	r.EndDate = r.StartDate.AddDate(0, 0, 3)

	_, err := f.svc.CreatePlan(context.Background(), "t1", "r1", &models.CreatePlanRequest{
		Quote: models.PriceQuote{Rental: dec("300")},
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Empty(t, f.store.plans)
}

func TestCreatePlan_RejectsMalformedSavedMethod(t *testing.T) {
	f := newInstallmentFixture()
	f.rentals.seed("r1", models.RentalStatusPending, models.VehicleStatusRented)

	_, err := f.svc.CreatePlan(context.Background(), "t1", "r1", &models.CreatePlanRequest{
		Quote: models.PriceQuote{Rental: dec("1000")}, SavedMethodRef: "token-only",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
	assert.Empty(t, f.store.plans)
}

func TestCreatePlan_CancelledRental(t *testing.T) {
	f := newInstallmentFixture()
	f.rentals.seed("r1", models.RentalStatusCancelled, models.VehicleStatusAvailable)

	_, err := f.svc.CreatePlan(context.Background(), "t1", "r1", &models.CreatePlanRequest{
		Quote: models.PriceQuote{Rental: dec("1000")},
	})
	assert.True(t, models.IsValidation(err))
}

func TestQuote_DoesNotWrite(t *testing.T) {
	f := newInstallmentFixture()
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, timeutil.DefaultZone)

	sched, err := f.svc.Quote(context.Background(), "t1", &models.InstallmentQuoteRequest{
		StartDate: start, EndDate: start.AddDate(0, 0, 60),
		Quote: models.PriceQuote{Rental: dec("6000"), Tax: dec("1080")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.CadenceMonthly, sched.Cadence)
	assert.Equal(t, 2, sched.Count)
	assert.Empty(t, f.store.plans)

	_, err = f.svc.Quote(context.Background(), "t1", &models.InstallmentQuoteRequest{
		StartDate: start, EndDate: start,
	})
	assert.True(t, models.IsValidation(err))
}

func TestChargeInstallment_SuccessRecordsPayment(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", timeutil.StartOfDay(fixedNow), 0))
	f.store.methods["r1"] = "cust_1:token_1"

	c, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	require.NoError(t, err)

	assert.Equal(t, models.InstallmentPaid, c.Status)
	assert.Nil(t, c.NextAttemptAt)
	assert.Equal(t, 1, c.Attempts)

	require.Len(t, f.processor.charges, 1)
	assert.Equal(t, "cust_1", f.processor.charges[0].CustomerRef)
	assert.Equal(t, "token_1", f.processor.charges[0].TokenRef)
	assert.True(t, f.processor.charges[0].Amount.Equal(dec("590")))

	require.Len(t, f.ledger.requests, 1)
	req := f.ledger.requests[0]
	assert.True(t, req.AutoAllocate)
	assert.Equal(t, "pay_1", req.ProcessorPaymentID)
	assert.Equal(t, models.CaptureCaptured, *req.CaptureStatus)

	assert.Equal(t, models.InstallmentPaid, f.store.charge("i1").Status)
}

func TestChargeInstallment_LedgerFailureStillMarksPaid(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", timeutil.StartOfDay(fixedNow), 0))
	f.store.methods["r1"] = "cust_1:token_1"
	f.ledger.err = errors.New("db down")

	c, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentPaid, c.Status)
	assert.Contains(t, c.LastError, "payment not recorded")
}

func TestChargeInstallment_FailureSchedulesRetry(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", timeutil.StartOfDay(fixedNow), 0))
	f.store.methods["r1"] = "cust_1:token_1"
	f.processor.chargeErr = errors.New("card declined")

	c, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	require.NoError(t, err)

	assert.Equal(t, models.InstallmentFailed, c.Status)
	require.NotNil(t, c.NextAttemptAt)
	assert.True(t, c.NextAttemptAt.Equal(fixedNow.AddDate(0, 0, 1)))
	assert.Equal(t, "card declined", c.LastError)
	assert.Empty(t, f.ledger.requests)
}

func TestChargeInstallment_ExhaustedPastGraceIsOverdue(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", time.Date(2026, 3, 1, 0, 0, 0, 0, timeutil.DefaultZone), 3))
	f.store.methods["r1"] = "cust_1:token_1"
	f.processor.chargeErr = errors.New("card declined")

	c, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	require.NoError(t, err)

	assert.Equal(t, models.InstallmentOverdue, c.Status)
	assert.Nil(t, c.NextAttemptAt)
	assert.Equal(t, 4, c.Attempts)
}

func TestChargeInstallment_LastRetryStillScheduled(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", timeutil.StartOfDay(fixedNow), 2))
	f.store.methods["r1"] = "cust_1:token_1"
	f.processor.chargeErr = errors.New("card declined")

	c, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	require.NoError(t, err)

	assert.Equal(t, 3, c.Attempts)
	assert.NotNil(t, c.NextAttemptAt)
}

func TestChargeInstallment_MissingSavedMethodCountsAsFailure(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", timeutil.StartOfDay(fixedNow), 0))

	c, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentFailed, c.Status)
	assert.Contains(t, c.LastError, "no saved method")
	assert.Empty(t, f.processor.charges)
}

func TestChargeInstallment_AlreadyPaid(t *testing.T) {
	f := newInstallmentFixture()
	c := dueInstallment("i1", timeutil.StartOfDay(fixedNow), 1)
	c.Status = models.InstallmentPaid
	f.store.add(c)

	_, err := f.svc.ChargeInstallment(context.Background(), "t1", "i1")
	assert.True(t, models.IsValidation(err))
}

func TestRunDueCharges(t *testing.T) {
	f := newInstallmentFixture()
	f.store.add(dueInstallment("i1", timeutil.StartOfDay(fixedNow), 0))
	other := dueInstallment("i2", timeutil.StartOfDay(fixedNow), 0)
	other.RentalID = "r2"
	f.store.add(other)
	future := dueInstallment("i3", fixedNow.AddDate(0, 0, 7), 0)
	f.store.add(future)
	f.store.methods["r1"] = "cust_1:token_1"
	f.store.overdueN = 4

	res, err := f.svc.RunDueCharges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Paid)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(4), res.MarkedOverdue)
	assert.Equal(t, models.InstallmentScheduled, f.store.charge("i3").Status)

	require.Len(t, f.store.overdue, 1)
	assert.Equal(t, "t1", f.store.overdue[0].tenantID)
	want := time.Date(2026, 3, 7, 0, 0, 0, 0, timeutil.DefaultZone)
	assert.True(t, f.store.overdue[0].dueBefore.Equal(want), "cutoff %s", f.store.overdue[0].dueBefore)
}

func TestUpdateConfig(t *testing.T) {
	f := newInstallmentFixture()
	ctx := context.Background()

	bad := models.DefaultInstallmentConfig("")
	bad.WhatGetsSplit = "everything"
	_, err := f.svc.UpdateConfig(ctx, "t1", "admin", bad)
	assert.True(t, models.IsValidation(err))

	good := models.DefaultInstallmentConfig("")
	good.MaxRetryAttempts = 5
	saved, err := f.svc.UpdateConfig(ctx, "t1", "admin", good)
	require.NoError(t, err)
	assert.Equal(t, "t1", saved.TenantID)

	got, err := f.svc.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.MaxRetryAttempts)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.ActionUpdateConfig, f.audit.entries[0].ActionType)
}

type countingCharger struct{ calls atomic.Int32 }

func (c *countingCharger) RunDueCharges(context.Context) (*models.RetrySweepResult, error) {
	c.calls.Add(1)
	return &models.RetrySweepResult{}, nil
}

func TestInstallmentRetryWorker_SweepsUntilStopped(t *testing.T) {
	charger := &countingCharger{}
	w := NewInstallmentRetryWorker(charger, 5*time.Millisecond)
	w.Start()

	assert.Eventually(t, func() bool { return charger.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()
	w.Stop()

	after := charger.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, charger.calls.Load())
}
