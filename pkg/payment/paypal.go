package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/clientcredentials"
)

// PayPalGateway creates one-off orders under the creator's REST app via the
// client-credentials OAuth flow; the platform fee is attached as a platform_fees
// payment instruction. PayPal webhook verification needs a round-trip to the
// provider, so events here are accepted only when they match a locally known
// payment id or correlation id (the reconciler's lookup is the guard).
//
// Credential keys: client_id, client_secret (both required).
type PayPalGateway struct {
	BaseURL string
}

func NewPayPalGateway(baseURL string) *PayPalGateway {
	if baseURL == "" {
		baseURL = "https://api-m.paypal.com"
	}
	return &PayPalGateway{BaseURL: baseURL}
}

func (g *PayPalGateway) ID() string { return GatewayPayPal }

// httpClient returns an oauth2 client that fetches and refreshes tokens for the
// creator's app on demand.
func (g *PayPalGateway) httpClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	id, secret := creds.Get("client_id"), creds.Get("client_secret")
	if id == "" || secret == "" {
		return nil, fmt.Errorf("%w: paypal client_id/client_secret missing", ErrConfiguration)
	}
	cc := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: secret,
		TokenURL:     g.BaseURL + "/v1/oauth2/token",
	}
	c := cc.Client(ctx)
	c.Timeout = 30 * time.Second
	return c, nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPlatformFee struct {
	Amount paypalAmount `json:"amount"`
}

type paypalPaymentInstruction struct {
	PlatformFees []paypalPlatformFee `json:"platform_fees"`
}

type paypalPurchaseUnit struct {
	Amount             paypalAmount              `json:"amount"`
	Description        string                    `json:"description,omitempty"`
	CustomID           string                    `json:"custom_id"`
	PaymentInstruction *paypalPaymentInstruction `json:"payment_instruction,omitempty"`
}

type paypalAppContext struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type paypalOrderReq struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext paypalAppContext     `json:"application_context"`
}

type paypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalOrderResp struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Links  []paypalLink `json:"links"`
}

func (g *PayPalGateway) CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error) {
	client, err := g.httpClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	currency := req.Currency
	if currency == "" {
		currency = "BRL"
	}
	unit := paypalPurchaseUnit{
		Amount:      paypalAmount{CurrencyCode: currency, Value: req.Amount.Round(2).StringFixed(2)},
		Description: req.Description,
		CustomID:    req.CorrelationID,
	}
	if req.Split.PlatformFee.IsPositive() {
		fee := req.Split.PlatformFee
		if fee.GreaterThan(req.Amount) {
			fee = req.Amount
		}
		unit.PaymentInstruction = &paypalPaymentInstruction{
			PlatformFees: []paypalPlatformFee{{
				Amount: paypalAmount{CurrencyCode: currency, Value: fee.Round(2).StringFixed(2)},
			}},
		}
	}
	payload := paypalOrderReq{
		Intent:             "CAPTURE",
		PurchaseUnits:      []paypalPurchaseUnit{unit},
		ApplicationContext: paypalAppContext{ReturnURL: req.ReturnURL},
	}

	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("PayPal-Request-Id", req.CorrelationID)
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: paypal rejected credentials", ErrConfiguration)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: paypal orders returned %d: %s", ErrTransport, resp.StatusCode, string(respBody))
	}
	var out paypalOrderResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("paypal response: %w", err)
	}
	result := &PaymentResult{ExternalID: out.ID, Status: out.Status, Split: req.Split}
	for _, link := range out.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			result.PayURL = link.Href
			break
		}
	}
	return result, nil
}

func (g *PayPalGateway) CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error) {
	return nil, fmt.Errorf("%w: paypal adapter handles one-off orders only", ErrUnsupportedCapability)
}

func (g *PayPalGateway) CancelSubscription(ctx context.Context, creds Credentials, externalID string) error {
	return fmt.Errorf("%w: paypal adapter handles one-off orders only", ErrUnsupportedCapability)
}

type paypalWebhook struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string        `json:"id"`
		Status            string        `json:"status"`
		CustomID          string        `json:"custom_id"`
		CreateTime        string        `json:"create_time"`
		Amount            *paypalAmount `json:"amount"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	} `json:"resource"`
}

func (g *PayPalGateway) ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error) {
	var hook paypalWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("paypal webhook: %w", err)
	}
	switch hook.EventType {
	case "PAYMENT.CAPTURE.COMPLETED", "PAYMENT.CAPTURE.DENIED",
		"PAYMENT.CAPTURE.REFUNDED", "CHECKOUT.ORDER.APPROVED":
	default:
		return nil, nil
	}
	// captures reference the order id we stored at creation time
	paymentID := hook.Resource.SupplementaryData.RelatedIDs.OrderID
	if paymentID == "" {
		paymentID = hook.Resource.ID
	}
	ev := &NormalizedEvent{
		ProviderPaymentID: paymentID,
		ProviderStatus:    hook.EventType,
		CorrelationID:     hook.Resource.CustomID,
	}
	if hook.Resource.Amount != nil {
		if v, err := decimal.NewFromString(hook.Resource.Amount.Value); err == nil {
			ev.AmountPaid = v
		}
	}
	switch hook.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		ev.Status = StatusConfirmed
		if hook.Resource.CreateTime != "" {
			if t, err := time.Parse(time.RFC3339, hook.Resource.CreateTime); err == nil {
				ev.PaidAt = &t
			}
		}
	case "PAYMENT.CAPTURE.DENIED":
		ev.Status = StatusFailed
	case "PAYMENT.CAPTURE.REFUNDED":
		ev.Status = StatusRefunded
	default:
		ev.Status = StatusPending
	}
	return ev, nil
}
