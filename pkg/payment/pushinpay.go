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
)

// PushinPayGateway issues PIX charges. Amounts are integer cents and the
// platform fee rides in split_rules pointed at the platform wallet. PushinPay
// has no recurring billing and no webhook signature scheme; webhook events are
// trusted only as far as they match a locally known payment id.
//
// Credential keys: token (required).
type PushinPayGateway struct {
	BaseURL string
	client  *http.Client
}

func NewPushinPayGateway(baseURL string) *PushinPayGateway {
	if baseURL == "" {
		baseURL = "https://api.pushinpay.com.br/api"
	}
	return &PushinPayGateway{BaseURL: baseURL, client: newHTTPClient()}
}

func (g *PushinPayGateway) ID() string { return GatewayPushinPay }

type pushinPayReq struct {
	Value      int64            `json:"value"`
	WebhookURL string           `json:"webhook_url,omitempty"`
	SplitRules []pushinPaySplit `json:"split_rules,omitempty"`
}

type pushinPaySplit struct {
	Value     int64  `json:"value"`
	AccountID string `json:"account_id"`
}

type pushinPayResp struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

func (g *PushinPayGateway) CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error) {
	token := creds.Get("token")
	if token == "" {
		return nil, fmt.Errorf("%w: pushinpay token missing", ErrConfiguration)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	payload := pushinPayReq{
		Value:      toCents(req.Amount),
		WebhookURL: req.CallbackURL,
	}
	if feeCents := toCents(req.Split.PlatformFee); feeCents > 0 && req.PlatformAccount != "" {
		// fee above gross would make the split rule exceed the charge
		if feeCents > payload.Value {
			feeCents = payload.Value
		}
		payload.SplitRules = []pushinPaySplit{{Value: feeCents, AccountID: req.PlatformAccount}}
	}
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/pix/cashIn", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: pushinpay rejected credentials", ErrConfiguration)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: pushinpay cashIn returned %d: %s", ErrTransport, resp.StatusCode, string(respBody))
	}
	var out pushinPayResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("pushinpay response: %w", err)
	}
	return &PaymentResult{
		ExternalID: out.ID,
		Status:     out.Status,
		QRCode:     out.QRCode,
		Split:      req.Split,
	}, nil
}

func (g *PushinPayGateway) CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error) {
	return nil, fmt.Errorf("%w: pushinpay has no recurring billing", ErrUnsupportedCapability)
}

func (g *PushinPayGateway) CancelSubscription(ctx context.Context, creds Credentials, externalID string) error {
	return fmt.Errorf("%w: pushinpay has no recurring billing", ErrUnsupportedCapability)
}

type pushinPayWebhook struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Value      int64  `json:"value"`
	EndToEndID string `json:"end_to_end_id"`
	PayerName  string `json:"payer_name"`
	PaidAt     string `json:"paid_at"`
}

func (g *PushinPayGateway) ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error) {
	var hook pushinPayWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("pushinpay webhook: %w", err)
	}
	if hook.ID == "" {
		return nil, nil
	}
	ev := &NormalizedEvent{
		ProviderPaymentID: hook.ID,
		ProviderStatus:    hook.Status,
		AmountPaid:        decimal.NewFromInt(hook.Value).Div(decimal.NewFromInt(100)),
	}
	switch hook.Status {
	case "paid":
		ev.Status = StatusConfirmed
	case "expired", "canceled", "cancelled":
		ev.Status = StatusFailed
	case "refunded":
		ev.Status = StatusRefunded
	default:
		ev.Status = StatusPending
	}
	if hook.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, hook.PaidAt); err == nil {
			ev.PaidAt = &t
		}
	}
	return ev, nil
}
