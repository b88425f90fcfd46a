// Package billing holds the pure money rules of the rental ledger: balances,
// payment allocation order, invoice status and installment scheduling.
// Nothing in here touches the database.
package billing

import (
	"time"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// SettleTolerance is the magnitude below which a net balance counts as settled
var SettleTolerance = decimal.NewFromFloat(0.01)

// IsCurrentlyDue reports whether a charge counts toward present-due totals.
// Rental charges dated after today are future installments and do not.
func IsCurrentlyDue(e *models.LedgerEntry, today time.Time) bool {
	if !e.IsCharge() {
		return false
	}
	if e.Category != models.CategoryRental || e.DueDate == nil {
		return true
	}
	return timeutil.SameOrBeforeDay(*e.DueDate, today)
}

// OutstandingBalance sums remaining_amount over currently due charges
func OutstandingBalance(entries []models.LedgerEntry, today time.Time) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if !IsCurrentlyDue(e, today) {
			continue
		}
		if e.RemainingAmount.IsPositive() {
			total = total.Add(e.RemainingAmount)
		}
	}
	return total
}

// PaymentCredit returns the signed ledger amount and the unapplied credit a
// payment contributes when recorded. Money that has not been captured adds
// neither.
func PaymentCredit(amount decimal.Decimal, capture *models.CaptureStatus) (signed, credit decimal.Decimal) {
	if !models.CountsAsCollected(capture) {
		return decimal.Zero, decimal.Zero
	}
	return amount.Neg(), amount
}

// ClassifyBalance labels a net balance, treating |net| < 0.01 as exactly zero.
// The display balance is always non-negative.
func ClassifyBalance(net decimal.Decimal) (models.BalanceStatus, decimal.Decimal) {
	if net.Abs().LessThan(SettleTolerance) {
		return models.BalanceSettled, decimal.Zero
	}
	if net.IsPositive() {
		return models.BalanceInDebt, net
	}
	return models.BalanceInCredit, net.Abs()
}

// BalanceWithStatus derives the full customer balance from ledger rows
func BalanceWithStatus(customerID string, entries []models.LedgerEntry, today time.Time) models.CustomerBalance {
	totalCharges := decimal.Zero
	totalPayments := decimal.Zero
	credit := decimal.Zero

	for i := range entries {
		e := &entries[i]
		switch e.Type {
		case models.LedgerEntryTypeCharge:
			if IsCurrentlyDue(e, today) {
				totalCharges = totalCharges.Add(e.Amount)
			}
		case models.LedgerEntryTypePayment:
			totalPayments = totalPayments.Add(e.Amount.Abs())
			if e.RemainingAmount.IsPositive() {
				credit = credit.Add(e.RemainingAmount)
			}
		}
	}

	debt := OutstandingBalance(entries, today)
	net := debt.Sub(credit)
	status, display := ClassifyBalance(net)
	if status == models.BalanceSettled {
		net = decimal.Zero
	}

	return models.CustomerBalance{
		CustomerID:      customerID,
		Balance:         net,
		DisplayBalance:  display,
		Status:          status,
		TotalCharges:    totalCharges,
		TotalPayments:   totalPayments,
		OutstandingDebt: debt,
		AvailableCredit: credit,
	}
}
