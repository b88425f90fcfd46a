package billing

import (
	"errors"
	"fmt"
	"time"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// ErrNotEligible is returned when a rental is too short for any installment cadence
var ErrNotEligible = errors.New("rental is not eligible for installments")

// Days per installment period
const (
	WeeklyUnitDays  = 7
	MonthlyUnitDays = 30
)

// Eligibility picks the installment cadence for a rental length.
// Monthly wins when both thresholds are met.
func Eligibility(days int, cfg *models.InstallmentConfig) models.Cadence {
	if cfg == nil || !cfg.Enabled {
		return models.CadenceNone
	}
	if cfg.MinDaysForMonthly > 0 && days >= cfg.MinDaysForMonthly {
		return models.CadenceMonthly
	}
	if cfg.MinDaysForWeekly > 0 && days >= cfg.MinDaysForWeekly {
		return models.CadenceWeekly
	}
	return models.CadenceNone
}

// UnitDays is the period length of a cadence
func UnitDays(c models.Cadence) int {
	switch c {
	case models.CadenceWeekly:
		return WeeklyUnitDays
	case models.CadenceMonthly:
		return MonthlyUnitDays
	}
	return 0
}

// InstallmentCount is min(ceil(days/unit), cap), and at least 1 for an eligible cadence
func InstallmentCount(c models.Cadence, days int, cfg *models.InstallmentConfig) int {
	unit := UnitDays(c)
	if unit == 0 || days <= 0 {
		return 0
	}
	n := (days + unit - 1) / unit

	limit := cfg.MaxInstallmentsWeekly
	if c == models.CadenceMonthly {
		limit = cfg.MaxInstallmentsMonthly
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}

// SplitParts reports which price components a split mode divides.
// Deposit and one-time fees are never split.
func SplitParts(mode models.SplitMode) (rental, tax, extras bool) {
	switch mode {
	case models.SplitRentalTax:
		return true, true, false
	case models.SplitRentalTaxExtras:
		return true, true, true
	default:
		return true, false, false
	}
}

// SplitAmount is the part of a quote spread across installments
func SplitAmount(q models.PriceQuote, mode models.SplitMode) decimal.Decimal {
	rental, tax, extras := SplitParts(mode)
	total := decimal.Zero
	if rental {
		total = total.Add(q.Rental)
	}
	if tax {
		total = total.Add(q.Tax)
	}
	if extras {
		total = total.Add(q.Extras)
	}
	return total
}

// SplitEvenly divides amount into n cent-exact parts; the last part absorbs the remainder
func SplitEvenly(amount decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	base := amount.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	parts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		parts[i] = base
	}
	parts[n-1] = amount.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return parts
}

// BuildSchedule lays out every charge for an installment booking.
// Split components are spread over the installments, one per cadence period from
// start; the rest is billed at booking. With ChargeFirstUpfront the first
// installment is also due at booking. The schedule total always equals the quote total.
func BuildSchedule(q models.PriceQuote, cfg *models.InstallmentConfig, booking, start time.Time, days int) (*models.InstallmentSchedule, error) {
	cadence := Eligibility(days, cfg)
	if cadence == models.CadenceNone {
		return nil, ErrNotEligible
	}
	count := InstallmentCount(cadence, days, cfg)
	split := SplitAmount(q, cfg.WhatGetsSplit)
	if !split.IsPositive() {
		return nil, fmt.Errorf("nothing to split: %w", ErrNotEligible)
	}

	unit := UnitDays(cadence)
	sched := &models.InstallmentSchedule{
		Cadence:     cadence,
		Count:       count,
		SplitAmount: split,
		Total:       q.Total(),
	}

	for i, amt := range SplitEvenly(split, count) {
		due := timeutil.StartOfDay(timeutil.AddDays(start, i*unit))
		if i == 0 && cfg.ChargeFirstUpfront {
			due = timeutil.StartOfDay(booking)
		}
		sched.Installments = append(sched.Installments, models.ScheduledCharge{
			Sequence:    i + 1,
			Category:    models.CategoryRental,
			Description: fmt.Sprintf("Installment %d of %d", i+1, count),
			Amount:      amt,
			DueDate:     due,
		})
	}

	_, splitTax, splitExtras := SplitParts(cfg.WhatGetsSplit)
	bookedOn := timeutil.StartOfDay(booking)
	addUpfront := func(category, desc string, amt decimal.Decimal) {
		if !amt.IsPositive() {
			return
		}
		sched.Upfront = append(sched.Upfront, models.ScheduledCharge{
			Category:    category,
			Description: desc,
			Amount:      amt,
			DueDate:     bookedOn,
		})
	}
	if !splitTax {
		addUpfront(models.CategoryTax, "Tax", q.Tax)
	}
	if !splitExtras {
		addUpfront(models.CategoryExtras, "Extras", q.Extras)
	}
	addUpfront(models.CategoryDeposit, "Security deposit", q.Deposit)
	addUpfront(models.CategoryFee, "Booking fees", q.Fees)

	return sched, nil
}

// IsOverdue reports whether an unpaid installment is past its grace period
func IsOverdue(c *models.InstallmentCharge, cfg *models.InstallmentConfig, now time.Time) bool {
	if c.Status == models.InstallmentPaid {
		return false
	}
	deadline := timeutil.EndOfDay(timeutil.AddDays(c.DueDate.In(now.Location()), cfg.GracePeriodDays))
	return now.After(deadline)
}

// RetryDecision is what happens to an installment after a failed charge attempt
type RetryDecision struct {
	Status        models.InstallmentStatus
	NextAttemptAt *time.Time
}

// AfterFailure decides the next state of an installment whose charge just failed.
// attempts counts every charge made so far, the initial one included, so
// max_retry_attempts retries follow the first failure. The grace period only
// decides the overdue label.
func AfterFailure(c *models.InstallmentCharge, attempts int, cfg *models.InstallmentConfig, now time.Time) RetryDecision {
	d := RetryDecision{Status: models.InstallmentFailed}
	if IsOverdue(c, cfg, now) {
		d.Status = models.InstallmentOverdue
	}
	if attempts-1 < cfg.MaxRetryAttempts {
		interval := cfg.RetryIntervalDays
		if interval < 1 {
			interval = 1
		}
		next := timeutil.AddDays(now, interval)
		d.NextAttemptAt = &next
	}
	return d
}
