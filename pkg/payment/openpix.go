package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// OpenPixGateway issues PIX charges with a fixed-value split to the platform
// pix key. Webhook deliveries carry an HS256 JWT in the x-webhook-authorization
// header signed with the creator's webhook secret; payloads without a valid
// token are dropped.
//
// Credential keys: app_id (required), webhook_secret (required for webhooks).
type OpenPixGateway struct {
	BaseURL string
	client  *http.Client
}

func NewOpenPixGateway(baseURL string) *OpenPixGateway {
	if baseURL == "" {
		baseURL = "https://api.openpix.com.br/api/v1"
	}
	return &OpenPixGateway{BaseURL: baseURL, client: newHTTPClient()}
}

func (g *OpenPixGateway) ID() string { return GatewayOpenPix }

type openPixSplit struct {
	PixKey string `json:"pixKey"`
	Value  int64  `json:"value"`
}

type openPixChargeReq struct {
	CorrelationID string         `json:"correlationID"`
	Value         int64          `json:"value"`
	Comment       string         `json:"comment,omitempty"`
	Splits        []openPixSplit `json:"splits,omitempty"`
}

type openPixCharge struct {
	TransactionID  string `json:"transactionID"`
	Identifier     string `json:"identifier"`
	Status         string `json:"status"`
	CorrelationID  string `json:"correlationID"`
	Value          int64  `json:"value"`
	BRCode         string `json:"brCode"`
	PaymentLinkURL string `json:"paymentLinkUrl"`
	PaidAt         string `json:"paidAt"`
}

type openPixChargeResp struct {
	Charge openPixCharge `json:"charge"`
}

func (g *OpenPixGateway) CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error) {
	appID := creds.Get("app_id")
	if appID == "" {
		return nil, fmt.Errorf("%w: openpix app_id missing", ErrConfiguration)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	payload := openPixChargeReq{
		CorrelationID: req.CorrelationID,
		Value:         toCents(req.Amount),
		Comment:       req.Description,
	}
	if feeCents := toCents(req.Split.PlatformFee); feeCents > 0 && req.PlatformAccount != "" {
		if feeCents > payload.Value {
			feeCents = payload.Value
		}
		payload.Splits = []openPixSplit{{PixKey: req.PlatformAccount, Value: feeCents}}
	}
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/charge", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", appID)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: openpix rejected credentials", ErrConfiguration)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: openpix charge returned %d: %s", ErrTransport, resp.StatusCode, string(respBody))
	}
	var out openPixChargeResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("openpix response: %w", err)
	}
	externalID := out.Charge.TransactionID
	if externalID == "" {
		externalID = out.Charge.Identifier
	}
	return &PaymentResult{
		ExternalID: externalID,
		Status:     out.Charge.Status,
		PayURL:     out.Charge.PaymentLinkURL,
		QRCode:     out.Charge.BRCode,
		Split:      req.Split,
	}, nil
}

func (g *OpenPixGateway) CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error) {
	return nil, fmt.Errorf("%w: openpix has no recurring billing", ErrUnsupportedCapability)
}

func (g *OpenPixGateway) CancelSubscription(ctx context.Context, creds Credentials, externalID string) error {
	return fmt.Errorf("%w: openpix has no recurring billing", ErrUnsupportedCapability)
}

type openPixWebhook struct {
	Event  string        `json:"event"`
	Charge openPixCharge `json:"charge"`
}

func (g *OpenPixGateway) ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error) {
	secret := creds.Get("webhook_secret")
	if secret == "" {
		return nil, fmt.Errorf("%w: openpix webhook_secret missing", ErrConfiguration)
	}
	tokenStr := headers.Get("x-webhook-authorization")
	if tokenStr == "" {
		return nil, ErrSignature
	}
	_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	var hook openPixWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("openpix webhook: %w", err)
	}
	if hook.Charge.TransactionID == "" && hook.Charge.Identifier == "" {
		return nil, nil
	}
	paymentID := hook.Charge.TransactionID
	if paymentID == "" {
		paymentID = hook.Charge.Identifier
	}
	ev := &NormalizedEvent{
		ProviderPaymentID: paymentID,
		ProviderStatus:    hook.Charge.Status,
		CorrelationID:     hook.Charge.CorrelationID,
		AmountPaid:        decimal.NewFromInt(hook.Charge.Value).Div(decimal.NewFromInt(100)),
	}
	switch hook.Charge.Status {
	case "COMPLETED", "CONFIRMED":
		ev.Status = StatusConfirmed
	case "EXPIRED":
		ev.Status = StatusFailed
	case "REFUNDED":
		ev.Status = StatusRefunded
	default:
		ev.Status = StatusPending
	}
	if hook.Charge.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, hook.Charge.PaidAt); err == nil {
			ev.PaidAt = &t
		}
	}
	return ev, nil
}
