package payments

import (
	"context"
	"fmt"
	"log"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

// RazorpayProcessor implements Processor on top of razorpay-go. The SDK is
// synchronous and takes no context, so ctx is only checked before each call.
type RazorpayProcessor struct {
	client   *razorpay.Client
	currency string
}

func NewRazorpayProcessor(keyID, keySecret, currency string) *RazorpayProcessor {
	if currency == "" {
		currency = "INR"
	}
	return &RazorpayProcessor{
		client:   razorpay.NewClient(keyID, keySecret),
		currency: currency,
	}
}

func (p *RazorpayProcessor) RetrieveIntent(ctx context.Context, paymentID string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := p.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}
	return ParsePayment(body)
}

// CancelIntent releases an authorization. Razorpay has no void call: an
// uncaptured payment goes back to the customer once the capture window lapses,
// so this stamps the payment so it is never captured later.
func (p *RazorpayProcessor) CancelIntent(ctx context.Context, paymentID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.client.Payment.Edit(paymentID, map[string]interface{}{
		"notes": map[string]interface{}{
			"hold_released":  "true",
			"release_reason": reason,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to release hold on %s: %w", paymentID, err)
	}
	log.Printf("[Razorpay] Released authorization %s", paymentID)
	return nil
}

func (p *RazorpayProcessor) CreateRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var minor int
	if amount != nil {
		minor = ToMinor(*amount)
	} else {
		// the SDK always sends an amount, so a full refund needs the captured total
		intent, err := p.RetrieveIntent(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		minor = ToMinor(intent.Amount)
	}

	body, err := p.client.Payment.Refund(paymentID, minor, map[string]interface{}{
		"notes": map[string]interface{}{"reason": reason},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to refund %s: %w", paymentID, err)
	}
	return ParseRefund(body)
}

// ChargeSaved creates an order and charges it against a saved token
func (p *RazorpayProcessor) ChargeSaved(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = p.currency
	}
	minor := ToMinor(req.Amount)

	notes := map[string]interface{}{}
	for k, v := range req.Notes {
		notes[k] = v
	}

	order, err := p.client.Order.Create(map[string]interface{}{
		"amount":          minor,
		"currency":        currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
		"notes":           notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	orderID, err := stringField(order, "id")
	if err != nil {
		return nil, err
	}

	body, err := p.client.Payment.CreateRecurringPayment(map[string]interface{}{
		"amount":      minor,
		"currency":    currency,
		"order_id":    orderID,
		"customer_id": req.CustomerRef,
		"token":       req.TokenRef,
		"recurring":   "1",
		"notes":       notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to charge saved method: %w", err)
	}
	paymentID, err := stringField(body, "razorpay_payment_id")
	if err != nil {
		return nil, err
	}

	charge := &Charge{PaymentID: paymentID, OrderID: orderID, Status: StatusPending}
	if intent, err := p.RetrieveIntent(ctx, paymentID); err == nil {
		charge.Status = intent.Status
	} else {
		log.Printf("[Razorpay] Could not confirm status of %s: %v", paymentID, err)
	}
	return charge, nil
}
