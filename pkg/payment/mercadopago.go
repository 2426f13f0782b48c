package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MercadoPagoGateway creates PIX payments and preapproval subscriptions under
// the creator's own access token. The platform cut is passed through the
// application_fee field on the payment.
//
// Credential keys: access_token (required), webhook_secret (required for
// webhooks, x-signature verification).
type MercadoPagoGateway struct {
	BaseURL string
	client  *http.Client
}

func NewMercadoPagoGateway(baseURL string) *MercadoPagoGateway {
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	return &MercadoPagoGateway{BaseURL: baseURL, client: newHTTPClient()}
}

func (g *MercadoPagoGateway) ID() string { return GatewayMercadoPago }

type mpPaymentReq struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Payer             mpPayer `json:"payer"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
	ApplicationFee    float64 `json:"application_fee,omitempty"`
}

type mpPayer struct {
	Email string `json:"email"`
	Name  string `json:"first_name,omitempty"`
}

type mpPaymentResp struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			TicketURL string `json:"ticket_url"`
			QRCode    string `json:"qr_code"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (g *MercadoPagoGateway) CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error) {
	token := creds.Get("access_token")
	if token == "" {
		return nil, fmt.Errorf("%w: mercadopago access_token missing", ErrConfiguration)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount, _ := req.Amount.Round(2).Float64()
	fee, _ := req.Split.PlatformFee.Round(2).Float64()
	payload := mpPaymentReq{
		TransactionAmount: amount,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer:             mpPayer{Email: req.PayerEmail, Name: req.PayerName},
		ExternalReference: req.CorrelationID,
		NotificationURL:   req.CallbackURL,
		ApplicationFee:    fee,
	}
	var out mpPaymentResp
	if err := g.post(ctx, token, "/v1/payments", req.CorrelationID, payload, &out); err != nil {
		return nil, err
	}
	return &PaymentResult{
		ExternalID: fmt.Sprintf("%d", out.ID),
		Status:     out.Status,
		PayURL:     out.PointOfInteraction.TransactionData.TicketURL,
		QRCode:     out.PointOfInteraction.TransactionData.QRCode,
		Split:      req.Split,
	}, nil
}

type mpPreapprovalReq struct {
	Reason            string          `json:"reason"`
	ExternalReference string          `json:"external_reference"`
	PayerEmail        string          `json:"payer_email"`
	NotificationURL   string          `json:"notification_url,omitempty"`
	BackURL           string          `json:"back_url,omitempty"`
	AutoRecurring     mpAutoRecurring `json:"auto_recurring"`
}

type mpAutoRecurring struct {
	Frequency         int     `json:"frequency"`
	FrequencyType     string  `json:"frequency_type"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
}

type mpPreapprovalResp struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	InitPoint string `json:"init_point"`
}

func (g *MercadoPagoGateway) CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error) {
	token := creds.Get("access_token")
	if token == "" {
		return nil, fmt.Errorf("%w: mercadopago access_token missing", ErrConfiguration)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount, _ := req.Amount.Round(2).Float64()
	currency := req.Currency
	if currency == "" {
		currency = "BRL"
	}
	payload := mpPreapprovalReq{
		Reason:            req.Description,
		ExternalReference: req.CorrelationID,
		PayerEmail:        req.PayerEmail,
		NotificationURL:   req.CallbackURL,
		BackURL:           req.ReturnURL,
		AutoRecurring: mpAutoRecurring{
			Frequency:         req.IntervalDays,
			FrequencyType:     "days",
			TransactionAmount: amount,
			CurrencyID:        strings.ToUpper(currency),
		},
	}
	var out mpPreapprovalResp
	if err := g.post(ctx, token, "/preapproval", req.CorrelationID, payload, &out); err != nil {
		return nil, err
	}
	return &SubscriptionResult{ExternalID: out.ID, PayURL: out.InitPoint, Split: req.Split}, nil
}

func (g *MercadoPagoGateway) CancelSubscription(ctx context.Context, creds Credentials, externalID string) error {
	token := creds.Get("access_token")
	if token == "" {
		return fmt.Errorf("%w: mercadopago access_token missing", ErrConfiguration)
	}
	body, _ := json.Marshal(map[string]string{"status": "cancelled"})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, g.BaseURL+"/preapproval/"+externalID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: preapproval %s", ErrNotFound, externalID)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: mercadopago rejected credentials", ErrConfiguration)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: cancel returned %d", ErrTransport, resp.StatusCode)
	}
	return nil
}

type mpWebhook struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID                string  `json:"id"`
		Status            string  `json:"status"`
		ExternalReference string  `json:"external_reference"`
		TransactionAmount float64 `json:"transaction_amount"`
		DateApproved      string  `json:"date_approved"`
	} `json:"data"`
}

// ParseWebhook validates the x-signature header (ts/v1 HMAC-SHA256 over the
// documented manifest) and normalizes the notification. Verification fails
// closed: no webhook_secret on the account means no event is accepted.
// Notifications that carry no resolvable status map to the pending bucket so
// the reconciler leaves local state untouched.
func (g *MercadoPagoGateway) ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error) {
	secret := creds.Get("webhook_secret")
	if secret == "" {
		return nil, fmt.Errorf("%w: mercadopago webhook_secret missing", ErrConfiguration)
	}
	var hook mpWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("mercadopago webhook: %w", err)
	}
	if hook.Data.ID == "" {
		return nil, nil
	}
	if !verifyMPSignature(headers, hook.Data.ID, secret) {
		return nil, ErrSignature
	}
	if hook.Type != "" && hook.Type != "payment" && hook.Type != "subscription_authorized_payment" {
		return nil, nil
	}
	ev := &NormalizedEvent{
		ProviderPaymentID: hook.Data.ID,
		ProviderStatus:    hook.Data.Status,
		CorrelationID:     hook.Data.ExternalReference,
		Status:            mpStatusBucket(hook.Data.Status),
	}
	if hook.Data.TransactionAmount > 0 {
		ev.AmountPaid = decimal.NewFromFloat(hook.Data.TransactionAmount)
	}
	if hook.Data.DateApproved != "" {
		if t, err := time.Parse(time.RFC3339, hook.Data.DateApproved); err == nil {
			ev.PaidAt = &t
		}
	}
	return ev, nil
}

func mpStatusBucket(status string) string {
	switch status {
	case "approved", "authorized":
		return StatusConfirmed
	case "rejected", "cancelled", "charged_back":
		return StatusFailed
	case "refunded":
		return StatusRefunded
	default:
		return StatusPending
	}
}

// verifyMPSignature checks the "ts=...,v1=..." header against
// HMAC-SHA256("id:{dataID};ts:{ts};", secret).
func verifyMPSignature(headers http.Header, dataID, secret string) bool {
	sig := headers.Get("x-signature")
	if sig == "" {
		return false
	}
	var ts, v1 string
	for _, part := range strings.Split(sig, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	manifest := fmt.Sprintf("id:%s;ts:%s;", dataID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(v1)))
}

func (g *MercadoPagoGateway) post(ctx context.Context, token, path, idempotencyKey string, payload, out interface{}) error {
	body, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: mercadopago rejected credentials", ErrConfiguration)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: mercadopago %s returned %d: %s", ErrTransport, path, resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}
