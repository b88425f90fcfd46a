package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRazorpayStatus(t *testing.T) {
	assert.Equal(t, StatusRequiresCapture, MapRazorpayStatus("authorized"))
	assert.Equal(t, StatusSucceeded, MapRazorpayStatus("Captured"))
	assert.Equal(t, StatusPending, MapRazorpayStatus("refunded"))
	assert.Equal(t, StatusPending, MapRazorpayStatus("failed"))
	assert.Equal(t, StatusUnknown, MapRazorpayStatus("disputed"))
	assert.Equal(t, StatusUnknown, MapRazorpayStatus(""))
}

func TestParsePayment(t *testing.T) {
	intent, err := ParsePayment(map[string]interface{}{
		"id":       "pay_123",
		"entity":   "payment",
		"status":   "authorized",
		"amount":   float64(50050),
		"currency": "INR",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_123", intent.ID)
	assert.Equal(t, StatusRequiresCapture, intent.Status)
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("500.50")))
}

func TestParsePayment_FailsClosed(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"nil":           nil,
		"missing id":    {"status": "captured", "amount": float64(100)},
		"numeric id":    {"id": float64(1), "status": "captured", "amount": float64(100)},
		"no status":     {"id": "pay_1", "amount": float64(100)},
		"string amount": {"id": "pay_1", "status": "captured", "amount": "100"},
		"fractional":    {"id": "pay_1", "status": "captured", "amount": 10.5},
		"wrong entity":  {"id": "rfnd_1", "entity": "refund", "status": "processed", "amount": float64(100)},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePayment(body)
			assert.Error(t, err)
		})
	}
}

func TestParseRefund(t *testing.T) {
	r, err := ParseRefund(map[string]interface{}{
		"id":     "rfnd_9",
		"entity": "refund",
		"amount": float64(2500),
		"status": "processed",
	})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_9", r.ID)
	assert.True(t, r.Amount.Equal(decimal.NewFromInt(25)))

	_, err = ParseRefund(map[string]interface{}{"id": "rfnd_9", "amount": float64(1)})
	assert.Error(t, err)
}

func TestToMinor(t *testing.T) {
	assert.Equal(t, 1999, ToMinor(decimal.RequireFromString("19.99")))
	assert.Equal(t, 1000, ToMinor(decimal.RequireFromString("10.004")))
	assert.True(t, FromMinor(1999).Equal(decimal.RequireFromString("19.99")))
}
