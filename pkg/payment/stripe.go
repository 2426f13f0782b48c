package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway drives Stripe Checkout under the creator's own secret key; the
// platform fee becomes an application fee on the underlying payment intent.
//
// Credential keys: api_key (required), webhook_secret (required for webhooks).
type StripeGateway struct{}

func NewStripeGateway() *StripeGateway { return &StripeGateway{} }

func (g *StripeGateway) ID() string { return GatewayStripe }

// api returns a client bound to the creator's key. A fresh client per call keeps
// creators' keys from leaking into any shared global.
func (g *StripeGateway) api(creds Credentials) (*client.API, error) {
	key := creds.Get("api_key")
	if key == "" {
		return nil, fmt.Errorf("%w: stripe api_key missing", ErrConfiguration)
	}
	sc := &client.API{}
	sc.Init(key, nil)
	return sc, nil
}

func (g *StripeGateway) CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error) {
	sc, err := g.api(creds)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "brl"
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		ClientReferenceID: stripe.String(req.CorrelationID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(toCents(req.Split.PlatformFee)),
		},
	}
	params.Context = ctx
	params.AddMetadata("correlation_id", req.CorrelationID)
	sess, err := sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, stripeErr(err)
	}
	return &PaymentResult{
		ExternalID: sess.ID,
		Status:     string(sess.Status),
		PayURL:     sess.URL,
		Split:      req.Split,
	}, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error) {
	sc, err := g.api(creds)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "brl"
	}
	feePercent, _ := req.Split.PlatformFee.
		Div(req.Amount).
		Mul(decimal.NewFromInt(100)).
		Round(2).Float64()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.ReturnURL),
		ClientReferenceID: stripe.String(req.CorrelationID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(req.Amount)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval:      stripe.String("day"),
					IntervalCount: stripe.Int64(int64(req.IntervalDays)),
				},
			},
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			ApplicationFeePercent: stripe.Float64(feePercent),
		},
	}
	params.Context = ctx
	params.AddMetadata("correlation_id", req.CorrelationID)
	sess, err := sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, stripeErr(err)
	}
	return &SubscriptionResult{ExternalID: sess.ID, PayURL: sess.URL, Split: req.Split}, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, creds Credentials, externalID string) error {
	sc, err := g.api(creds)
	if err != nil {
		return err
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := sc.Subscriptions.Cancel(externalID, params); err != nil {
		return stripeErr(err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and maps checkout/session
// events to the normalized buckets. Event types outside the checkout lifecycle
// yield no event.
func (g *StripeGateway) ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error) {
	secret := creds.Get("webhook_secret")
	if secret == "" {
		return nil, fmt.Errorf("%w: stripe webhook_secret missing", ErrConfiguration)
	}
	event, err := webhook.ConstructEvent(payload, headers.Get("Stripe-Signature"), secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired",
		"checkout.session.async_payment_succeeded", "checkout.session.async_payment_failed":
	default:
		return nil, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe webhook: %w", err)
	}
	ev := &NormalizedEvent{
		ProviderPaymentID: sess.ID,
		ProviderStatus:    string(event.Type),
		CorrelationID:     sess.ClientReferenceID,
		AmountPaid:        decimal.NewFromInt(sess.AmountTotal).Div(decimal.NewFromInt(100)),
	}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		// completed sessions can still be unpaid (async payment methods)
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			ev.Status = StatusPending
		} else {
			ev.Status = StatusConfirmed
			paidAt := time.Unix(event.Created, 0).UTC()
			ev.PaidAt = &paidAt
		}
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		ev.Status = StatusFailed
	}
	return ev, nil
}

func toCents(v decimal.Decimal) int64 {
	return v.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func stripeErr(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		switch sErr.Code {
		case stripe.ErrorCodeResourceMissing:
			return fmt.Errorf("%w: %v", ErrNotFound, sErr.Msg)
		}
		if sErr.HTTPStatusCode == http.StatusUnauthorized || sErr.HTTPStatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: stripe rejected credentials", ErrConfiguration)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
