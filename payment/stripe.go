// Package payment provides submit handlers that charge a cart through a
// payment provider.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/record"
	"github.com/xraph/cart/shipment"
	"github.com/xraph/cart/types"
)

// ErrEmptyOrder is returned when the cart total rounds to zero minor units.
var ErrEmptyOrder = errors.New("payment: order total is zero")

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeConfig configures a StripeSubmitter.
type StripeConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	// Description is attached to every payment intent.
	Description string
	// ManualCapture authorizes the payment without capturing it.
	ManualCapture bool
	Logger        *slog.Logger

	intents stripePaymentIntentAPI
}

// StripeSubmitter charges a cart by creating a Stripe payment intent for
// its total. Its Submit method is an event.SubmitHandler.
type StripeSubmitter struct {
	intents     stripePaymentIntentAPI
	account     string
	description string
	manual      bool
	logger      *slog.Logger
}

// NewStripeSubmitter constructs a StripeSubmitter.
func NewStripeSubmitter(cfg StripeConfig) (*StripeSubmitter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	intents := cfg.intents
	if intents == nil {
		if apiKey == "" {
			return nil, errors.New("payment: stripe api key is required")
		}
		intents = client.New(apiKey, cfg.Backends).PaymentIntents
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StripeSubmitter{
		intents:     intents,
		account:     strings.TrimSpace(cfg.AccountID),
		description: cfg.Description,
		manual:      cfg.ManualCapture,
		logger:      logger,
	}, nil
}

// Submit creates a payment intent for rec's total. When payload carries a
// payment token the intent is confirmed with it immediately. The order id
// doubles as the idempotency key, so a retried submission cannot charge
// twice.
func (s *StripeSubmitter) Submit(ctx context.Context, rec *record.Record, payload event.OrderPayload) (event.OrderResult, error) {
	currency := strings.ToLower(strings.TrimSpace(payload.Currency))
	if currency == "" {
		currency = strings.ToLower(shipment.DefaultCurrency)
	}

	amount := types.MinorUnits(rec.Pricing.Total, currency)
	if amount <= 0 {
		return event.OrderResult{}, ErrEmptyOrder
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.SetIdempotencyKey("cart-order-" + payload.OrderID.String())
	if s.account != "" {
		params.SetStripeAccount(s.account)
	}
	if s.description != "" {
		params.Description = stripe.String(s.description)
	}
	if s.manual {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	if token := strings.TrimSpace(payload.PaymentToken); token != "" {
		params.PaymentMethod = stripe.String(token)
		params.Confirm = stripe.Bool(true)
	}
	if email := billingEmail(rec); email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	if ship := shippingParams(rec); ship != nil {
		params.Shipping = ship
	}

	params.Metadata = make(map[string]string, len(payload.Metadata)+4)
	maps.Copy(params.Metadata, payload.Metadata)
	params.Metadata["order_id"] = payload.OrderID.String()
	params.Metadata["cart_id"] = rec.ID.String()
	params.Metadata["store_id"] = rec.StoreID
	if rec.Coupon != "" {
		params.Metadata["coupon"] = rec.Coupon
	}

	intent, err := s.intents.New(params)
	if err != nil {
		return event.OrderResult{}, fmt.Errorf("payment: create stripe payment intent: %w", err)
	}

	s.logger.Info("payment: stripe payment intent created",
		"order_id", payload.OrderID.String(),
		"payment_intent", intent.ID,
		"status", string(intent.Status),
		"amount", amount,
		"currency", currency,
	)

	return event.OrderResult{
		OrderID:   payload.OrderID,
		Reference: intent.ID,
		Status:    string(intent.Status),
		Details: map[string]string{
			"provider":      "stripe",
			"amount":        strconv.FormatInt(intent.Amount, 10),
			"currency":      strings.ToUpper(string(intent.Currency)),
			"client_secret": intent.ClientSecret,
		},
	}, nil
}

func billingEmail(rec *record.Record) string {
	if rec.BillingAddress == nil {
		return ""
	}
	return strings.TrimSpace(rec.BillingAddress.Email)
}

func shippingParams(rec *record.Record) *stripe.ShippingDetailsParams {
	a := rec.ShippingAddress
	if a == nil || strings.TrimSpace(a.Street) == "" {
		return nil
	}
	ship := &stripe.ShippingDetailsParams{
		Name: stripe.String(a.FullName()),
		Address: &stripe.AddressParams{
			Line1:      stripe.String(a.Street),
			City:       stripe.String(a.City),
			State:      stripe.String(a.State),
			PostalCode: stripe.String(a.Zip),
			Country:    stripe.String(a.Country),
		},
	}
	if a.AptNo != "" {
		ship.Address.Line2 = stripe.String(a.AptNo)
	}
	if a.Phone != "" {
		ship.Phone = stripe.String(a.Phone)
	}
	return ship
}
