package payments

import (
	"fmt"
	"math"
	"strings"
)

// MapRazorpayStatus maps Razorpay payment states onto IntentStatus.
// Unrecognized states map to StatusUnknown.
func MapRazorpayStatus(status string) IntentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "authorized":
		return StatusRequiresCapture
	case "captured":
		return StatusSucceeded
	case "created", "failed", "refunded":
		return StatusPending
	default:
		return StatusUnknown
	}
}

func stringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("processor response missing %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("processor response field %q is not a string", key)
	}
	return s, nil
}

// minorField reads an integer amount. JSON numbers decode as float64, so a
// fractional value is rejected rather than truncated.
func minorField(m map[string]interface{}, key string) (int64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("processor response missing %q", key)
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < 0 {
			return 0, fmt.Errorf("processor response field %q is not a whole amount", key)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	}
	return 0, fmt.Errorf("processor response field %q is not a number", key)
}

// ParsePayment decodes a Razorpay payment entity, failing on any missing or
// mistyped field instead of guessing
func ParsePayment(m map[string]interface{}) (*Intent, error) {
	if m == nil {
		return nil, fmt.Errorf("empty processor response")
	}
	if entity, _ := m["entity"].(string); entity != "" && entity != "payment" {
		return nil, fmt.Errorf("unexpected processor entity %q", entity)
	}
	id, err := stringField(m, "id")
	if err != nil {
		return nil, err
	}
	raw, err := stringField(m, "status")
	if err != nil {
		return nil, err
	}
	amount, err := minorField(m, "amount")
	if err != nil {
		return nil, err
	}
	currency, _ := m["currency"].(string)

	return &Intent{
		ID:        id,
		Status:    MapRazorpayStatus(raw),
		RawStatus: raw,
		Amount:    FromMinor(amount),
		Currency:  currency,
	}, nil
}

// ParseRefund decodes a Razorpay refund entity
func ParseRefund(m map[string]interface{}) (*Refund, error) {
	if m == nil {
		return nil, fmt.Errorf("empty processor response")
	}
	if entity, _ := m["entity"].(string); entity != "" && entity != "refund" {
		return nil, fmt.Errorf("unexpected processor entity %q", entity)
	}
	id, err := stringField(m, "id")
	if err != nil {
		return nil, err
	}
	amount, err := minorField(m, "amount")
	if err != nil {
		return nil, err
	}
	status, err := stringField(m, "status")
	if err != nil {
		return nil, err
	}
	return &Refund{ID: id, Amount: FromMinor(amount), Status: status}, nil
}
