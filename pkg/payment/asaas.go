package payment

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const asaasDateLayout = "2006-01-02"

// AsaasGateway creates charges and native recurring subscriptions under the
// creator's API key. The platform fee is a fixed-value split entry routed to
// the platform wallet. Webhooks are authenticated with the shared
// asaas-access-token header.
//
// Credential keys: api_key (required), webhook_token (required for webhooks).
type AsaasGateway struct {
	BaseURL string
	client  *http.Client
}

func NewAsaasGateway(baseURL string) *AsaasGateway {
	if baseURL == "" {
		baseURL = "https://api.asaas.com/v3"
	}
	return &AsaasGateway{BaseURL: baseURL, client: newHTTPClient()}
}

func (g *AsaasGateway) ID() string { return GatewayAsaas }

type asaasCustomerReq struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	CpfCnpj string `json:"cpfCnpj,omitempty"`
}

type asaasCustomerResp struct {
	ID string `json:"id"`
}

// ensureCustomer registers the payer; Asaas requires a customer id on every
// charge. Asaas dedupes by cpfCnpj on its side.
func (g *AsaasGateway) ensureCustomer(ctx context.Context, apiKey string, req PaymentRequest) (string, error) {
	var out asaasCustomerResp
	err := g.call(ctx, apiKey, http.MethodPost, "/customers", asaasCustomerReq{
		Name:    req.PayerName,
		Email:   req.PayerEmail,
		CpfCnpj: req.PayerDocument,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: asaas returned empty customer id", ErrTransport)
	}
	return out.ID, nil
}

type asaasSplit struct {
	WalletID   string  `json:"walletId"`
	FixedValue float64 `json:"fixedValue"`
}

type asaasPaymentReq struct {
	Customer          string       `json:"customer"`
	BillingType       string       `json:"billingType"`
	Value             float64      `json:"value"`
	DueDate           string       `json:"dueDate"`
	Description       string       `json:"description,omitempty"`
	ExternalReference string       `json:"externalReference"`
	Split             []asaasSplit `json:"split,omitempty"`
}

type asaasPaymentResp struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoiceUrl"`
}

func (g *AsaasGateway) CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error) {
	apiKey := creds.Get("api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: asaas api_key missing", ErrConfiguration)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	customerID, err := g.ensureCustomer(ctx, apiKey, req)
	if err != nil {
		return nil, err
	}
	value, _ := req.Amount.Round(2).Float64()
	payload := asaasPaymentReq{
		Customer:          customerID,
		BillingType:       "PIX",
		Value:             value,
		DueDate:           time.Now().Format(asaasDateLayout),
		Description:       req.Description,
		ExternalReference: req.CorrelationID,
		Split:             g.split(req),
	}
	var out asaasPaymentResp
	if err := g.call(ctx, apiKey, http.MethodPost, "/payments", payload, &out); err != nil {
		return nil, err
	}
	return &PaymentResult{
		ExternalID: out.ID,
		Status:     out.Status,
		PayURL:     out.InvoiceURL,
		Split:      req.Split,
	}, nil
}

type asaasSubscriptionReq struct {
	Customer          string       `json:"customer"`
	BillingType       string       `json:"billingType"`
	Value             float64      `json:"value"`
	NextDueDate       string       `json:"nextDueDate"`
	Cycle             string       `json:"cycle"`
	Description       string       `json:"description,omitempty"`
	ExternalReference string       `json:"externalReference"`
	Split             []asaasSplit `json:"split,omitempty"`
}

func (g *AsaasGateway) CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error) {
	apiKey := creds.Get("api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w: asaas api_key missing", ErrConfiguration)
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	customerID, err := g.ensureCustomer(ctx, apiKey, req.PaymentRequest)
	if err != nil {
		return nil, err
	}
	value, _ := req.Amount.Round(2).Float64()
	payload := asaasSubscriptionReq{
		Customer:          customerID,
		BillingType:       "PIX",
		Value:             value,
		NextDueDate:       time.Now().Format(asaasDateLayout),
		Cycle:             asaasCycle(req.IntervalDays),
		Description:       req.Description,
		ExternalReference: req.CorrelationID,
		Split:             g.split(req.PaymentRequest),
	}
	var out asaasPaymentResp
	if err := g.call(ctx, apiKey, http.MethodPost, "/subscriptions", payload, &out); err != nil {
		return nil, err
	}
	return &SubscriptionResult{ExternalID: out.ID, PayURL: out.InvoiceURL, Split: req.Split}, nil
}

func (g *AsaasGateway) CancelSubscription(ctx context.Context, creds Credentials, externalID string) error {
	apiKey := creds.Get("api_key")
	if apiKey == "" {
		return fmt.Errorf("%w: asaas api_key missing", ErrConfiguration)
	}
	return g.call(ctx, apiKey, http.MethodDelete, "/subscriptions/"+externalID, nil, nil)
}

type asaasWebhook struct {
	Event   string `json:"event"`
	Payment struct {
		ID                string  `json:"id"`
		Status            string  `json:"status"`
		Value             float64 `json:"value"`
		ExternalReference string  `json:"externalReference"`
		PaymentDate       string  `json:"paymentDate"`
	} `json:"payment"`
}

func (g *AsaasGateway) ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error) {
	token := creds.Get("webhook_token")
	if token == "" {
		return nil, fmt.Errorf("%w: asaas webhook_token missing", ErrConfiguration)
	}
	got := headers.Get("asaas-access-token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return nil, ErrSignature
	}
	var hook asaasWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("asaas webhook: %w", err)
	}
	if hook.Payment.ID == "" {
		return nil, nil
	}
	ev := &NormalizedEvent{
		ProviderPaymentID: hook.Payment.ID,
		ProviderStatus:    hook.Event,
		CorrelationID:     hook.Payment.ExternalReference,
		AmountPaid:        decimal.NewFromFloat(hook.Payment.Value),
	}
	switch hook.Event {
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		ev.Status = StatusConfirmed
	case "PAYMENT_OVERDUE", "PAYMENT_DELETED":
		ev.Status = StatusFailed
	case "PAYMENT_REFUNDED":
		ev.Status = StatusRefunded
	default:
		ev.Status = StatusPending
	}
	if hook.Payment.PaymentDate != "" {
		if t, err := time.Parse(asaasDateLayout, hook.Payment.PaymentDate); err == nil {
			ev.PaidAt = &t
		}
	}
	return ev, nil
}

func (g *AsaasGateway) split(req PaymentRequest) []asaasSplit {
	if req.PlatformAccount == "" || !req.Split.PlatformFee.IsPositive() {
		return nil
	}
	fee := req.Split.PlatformFee
	if fee.GreaterThan(req.Amount) {
		fee = req.Amount
	}
	v, _ := fee.Round(2).Float64()
	return []asaasSplit{{WalletID: req.PlatformAccount, FixedValue: v}}
}

// asaasCycle maps a plan interval to the closest Asaas billing cycle.
func asaasCycle(days int) string {
	switch {
	case days <= 7:
		return "WEEKLY"
	case days <= 15:
		return "BIWEEKLY"
	case days <= 31:
		return "MONTHLY"
	case days <= 93:
		return "QUARTERLY"
	case days <= 186:
		return "SEMIANNUALLY"
	default:
		return "YEARLY"
	}
}

func (g *AsaasGateway) call(ctx context.Context, apiKey, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("access_token", apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: asaas rejected credentials", ErrConfiguration)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: asaas %s", ErrNotFound, path)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: asaas %s returned %d: %s", ErrTransport, path, resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}
