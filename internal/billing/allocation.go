package billing

import (
	"sort"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Allocation is one planned application of payment credit to a charge.
// ExpectedRemaining is the charge's remaining_amount when the plan was made and
// guards the write against concurrent allocators.
type Allocation struct {
	ChargeEntryID     string
	Amount            decimal.Decimal
	ExpectedRemaining decimal.Decimal
}

// SortForAllocation orders open charges oldest-due first: currently due charges
// before future-dated ones, dated before undated, then by entry date.
func SortForAllocation(charges []models.LedgerEntry, today time.Time) {
	sort.SliceStable(charges, func(i, j int) bool {
		a, b := &charges[i], &charges[j]
		aDue, bDue := IsCurrentlyDue(a, today), IsCurrentlyDue(b, today)
		if aDue != bDue {
			return aDue
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			if !a.DueDate.Equal(*b.DueDate) {
				return a.DueDate.Before(*b.DueDate)
			}
		case a.DueDate != nil:
			return true
		case b.DueDate != nil:
			return false
		}
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.Before(b.EntryDate)
		}
		return a.ID < b.ID
	})
}

// PlanAllocation distributes credit across charges in allocation order.
// It never applies more than a charge's remaining amount or more than the
// credit available, so both sides stay non-negative.
func PlanAllocation(credit decimal.Decimal, charges []models.LedgerEntry, today time.Time) ([]Allocation, decimal.Decimal) {
	open := make([]models.LedgerEntry, 0, len(charges))
	for _, c := range charges {
		if c.IsCharge() && c.RemainingAmount.IsPositive() {
			open = append(open, c)
		}
	}
	SortForAllocation(open, today)

	var plan []Allocation
	left := credit
	for _, c := range open {
		if !left.IsPositive() {
			break
		}
		apply := decimal.Min(left, c.RemainingAmount)
		plan = append(plan, Allocation{
			ChargeEntryID:     c.ID,
			Amount:            apply,
			ExpectedRemaining: c.RemainingAmount,
		})
		left = left.Sub(apply)
	}
	return plan, left
}

// TotalAllocated sums the amounts of a plan
func TotalAllocated(plan []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range plan {
		total = total.Add(a.Amount)
	}
	return total
}
