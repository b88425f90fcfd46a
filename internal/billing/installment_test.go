package billing

import (
	"testing"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *models.InstallmentConfig {
	cfg := models.DefaultInstallmentConfig("tenant-1")
	cfg.MinDaysForWeekly = 7
	cfg.MinDaysForMonthly = 30
	cfg.MaxInstallmentsWeekly = 4
	cfg.MaxInstallmentsMonthly = 3
	cfg.ChargeFirstUpfront = false
	cfg.WhatGetsSplit = models.SplitRentalOnly
	cfg.GracePeriodDays = 3
	cfg.MaxRetryAttempts = 3
	cfg.RetryIntervalDays = 2
	return cfg
}

func TestEligibility(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, models.CadenceNone, Eligibility(6, cfg))
	assert.Equal(t, models.CadenceWeekly, Eligibility(7, cfg))
	assert.Equal(t, models.CadenceWeekly, Eligibility(10, cfg))
	assert.Equal(t, models.CadenceMonthly, Eligibility(30, cfg))
	assert.Equal(t, models.CadenceMonthly, Eligibility(35, cfg))

	cfg.Enabled = false
	assert.Equal(t, models.CadenceNone, Eligibility(35, cfg))
}

func TestInstallmentCount(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, 2, InstallmentCount(models.CadenceWeekly, 10, cfg))
	assert.Equal(t, 2, InstallmentCount(models.CadenceWeekly, 14, cfg))
	assert.Equal(t, 4, InstallmentCount(models.CadenceWeekly, 29, cfg)) // capped
	assert.Equal(t, 2, InstallmentCount(models.CadenceMonthly, 35, cfg))
	assert.Equal(t, 3, InstallmentCount(models.CadenceMonthly, 365, cfg)) // capped
	assert.Equal(t, 0, InstallmentCount(models.CadenceNone, 35, cfg))
}

func TestSplitAmount_NeverIncludesDepositOrFees(t *testing.T) {
	q := models.PriceQuote{Rental: d("900"), Tax: d("90"), Extras: d("60"), Deposit: d("500"), Fees: d("25")}

	assert.True(t, SplitAmount(q, models.SplitRentalOnly).Equal(d("900")))
	assert.True(t, SplitAmount(q, models.SplitRentalTax).Equal(d("990")))
	assert.True(t, SplitAmount(q, models.SplitRentalTaxExtras).Equal(d("1050")))
}

func TestSplitEvenly_RemainderOnLast(t *testing.T) {
	parts := SplitEvenly(d("100"), 3)
	require.Len(t, parts, 3)
	assert.True(t, parts[0].Equal(d("33.33")))
	assert.True(t, parts[1].Equal(d("33.33")))
	assert.True(t, parts[2].Equal(d("33.34")))
}

func TestBuildSchedule_Weekly(t *testing.T) {
	cfg := testConfig()
	booking := day(2026, 5, 1)
	start := day(2026, 5, 4)
	q := models.PriceQuote{Rental: d("700"), Tax: d("70"), Extras: d("35"), Deposit: d("300"), Fees: d("15")}

	s, err := BuildSchedule(q, cfg, booking, start, 10)
	require.NoError(t, err)
	assert.Equal(t, models.CadenceWeekly, s.Cadence)
	require.Len(t, s.Installments, 2)
	assert.Equal(t, start, s.Installments[0].DueDate)
	assert.Equal(t, start.AddDate(0, 0, 7), s.Installments[1].DueDate)
	assert.True(t, s.Installments[0].Amount.Equal(d("350")))

	// tax, extras, deposit and fees are billed at booking
	require.Len(t, s.Upfront, 4)
	for _, u := range s.Upfront {
		assert.Equal(t, booking, u.DueDate)
	}

	sum := d("0")
	for _, c := range append(s.Installments, s.Upfront...) {
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(q.Total()))
	assert.True(t, s.Total.Equal(q.Total()))
}

func TestBuildSchedule_ChargeFirstUpfrontOnlyMovesDate(t *testing.T) {
	cfg := testConfig()
	booking := day(2026, 5, 1)
	start := day(2026, 5, 10)
	q := models.PriceQuote{Rental: d("1000")}

	plain, err := BuildSchedule(q, cfg, booking, start, 35)
	require.NoError(t, err)

	cfg.ChargeFirstUpfront = true
	upfront, err := BuildSchedule(q, cfg, booking, start, 35)
	require.NoError(t, err)

	require.Len(t, upfront.Installments, len(plain.Installments))
	assert.Equal(t, booking, upfront.Installments[0].DueDate)
	assert.Equal(t, start, plain.Installments[0].DueDate)
	for i := range plain.Installments {
		assert.True(t, plain.Installments[i].Amount.Equal(upfront.Installments[i].Amount))
	}
	assert.True(t, plain.Total.Equal(upfront.Total))
}

func TestBuildSchedule_NotEligible(t *testing.T) {
	_, err := BuildSchedule(models.PriceQuote{Rental: d("100")}, testConfig(), day(2026, 5, 1), day(2026, 5, 1), 3)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestAfterFailure(t *testing.T) {
	cfg := testConfig()
	c := &models.InstallmentCharge{DueDate: day(2026, 5, 10), Status: models.InstallmentScheduled}

	// within grace, budget left
	now := time.Date(2026, 5, 11, 9, 0, 0, 0, time.UTC)
	dec := AfterFailure(c, 1, cfg, now)
	assert.Equal(t, models.InstallmentFailed, dec.Status)
	require.NotNil(t, dec.NextAttemptAt)
	assert.Equal(t, now.AddDate(0, 0, 2), *dec.NextAttemptAt)

	// past grace but retries remain: overdue and still retried
	now = time.Date(2026, 5, 14, 9, 0, 0, 0, time.UTC)
	dec = AfterFailure(c, 2, cfg, now)
	assert.Equal(t, models.InstallmentOverdue, dec.Status)
	assert.NotNil(t, dec.NextAttemptAt)

	// third retry failed: initial charge plus three retries
	dec = AfterFailure(c, 3, cfg, now)
	assert.NotNil(t, dec.NextAttemptAt)
	dec = AfterFailure(c, 4, cfg, now)
	assert.Nil(t, dec.NextAttemptAt)
}

func TestAfterFailure_SingleRetry(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetryAttempts = 1
	c := &models.InstallmentCharge{DueDate: day(2026, 5, 10), Status: models.InstallmentScheduled}
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	first := AfterFailure(c, 1, cfg, now)
	require.NotNil(t, first.NextAttemptAt, "initial failure gets its one retry")

	second := AfterFailure(c, 2, cfg, now)
	assert.Nil(t, second.NextAttemptAt)
}

func TestAfterFailure_NoRetries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetryAttempts = 0
	c := &models.InstallmentCharge{DueDate: day(2026, 5, 10), Status: models.InstallmentScheduled}

	dec := AfterFailure(c, 1, cfg, time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC))
	assert.Nil(t, dec.NextAttemptAt)
}

func TestIsOverdue(t *testing.T) {
	cfg := testConfig()
	c := &models.InstallmentCharge{DueDate: day(2026, 5, 10), Status: models.InstallmentFailed}

	assert.False(t, IsOverdue(c, cfg, time.Date(2026, 5, 13, 23, 0, 0, 0, time.UTC)))
	assert.True(t, IsOverdue(c, cfg, time.Date(2026, 5, 14, 0, 0, 1, 0, time.UTC)))

	c.Status = models.InstallmentPaid
	assert.False(t, IsOverdue(c, cfg, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}
