package payment

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway identifiers as used in routes, config and the creators' gateway accounts.
const (
	GatewayMercadoPago = "mercadopago"
	GatewayStripe      = "stripe"
	GatewayPushinPay   = "pushinpay"
	GatewayAsaas       = "asaas"
	GatewayPayPal      = "paypal"
	GatewayOpenPix     = "openpix"
)

// Normalized status buckets for provider payment states.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
)

// Credentials holds a creator's own provider credentials (BYOK). Each adapter
// documents the keys it requires; missing required keys fail with ErrConfiguration.
type Credentials map[string]string

func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// Split is the division of a gross payment between the platform and the creator.
type Split struct {
	Gross       decimal.Decimal `json:"gross"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	CreatorNet  decimal.Decimal `json:"creator_net"`
}

type PaymentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	// CorrelationID is an opaque id generated at checkout time, stored on the
	// local transaction and echoed back by the provider in webhooks.
	CorrelationID string
	PayerName     string
	PayerEmail    string
	PayerDocument string // CPF/CNPJ where the provider requires it
	CallbackURL   string
	ReturnURL     string
	// PlatformAccount is the platform-side wallet/account id the fee is routed
	// to via the provider's split field.
	PlatformAccount string
	Split           Split
}

type PaymentResult struct {
	ExternalID string // provider-assigned payment/session id
	Status     string // raw provider status
	PayURL     string
	QRCode     string // PIX copy-paste code where the provider issues one
	Split      Split
}

type SubscriptionRequest struct {
	PaymentRequest
	IntervalDays int
}

type SubscriptionResult struct {
	ExternalID string
	PayURL     string
	Split      Split
}

// NormalizedEvent is the provider-agnostic shape of a webhook notification.
// Fields the provider did not send stay at their zero value.
type NormalizedEvent struct {
	ProviderPaymentID string
	ProviderStatus    string
	Status            string // one of the Status* buckets
	CorrelationID     string
	AmountPaid        decimal.Decimal
	PaidAt            *time.Time
}

// Gateway is implemented once per provider. CreatePayment and CreateSubscription
// perform network calls under the creator's credentials; the platform cut rides
// along in the provider's split/fee field. ParseWebhook is a pure transformation
// and never touches storage. Providers without native recurring billing return
// ErrUnsupportedCapability from CreateSubscription and the caller falls back to
// a one-off payment.
type Gateway interface {
	ID() string
	CreatePayment(ctx context.Context, creds Credentials, req PaymentRequest) (*PaymentResult, error)
	CreateSubscription(ctx context.Context, creds Credentials, req SubscriptionRequest) (*SubscriptionResult, error)
	CancelSubscription(ctx context.Context, creds Credentials, externalID string) error
	// ParseWebhook returns (nil, nil) for payloads that carry no payment event
	// (e.g. irrelevant event types). Unverifiable signatures return ErrSignature.
	ParseWebhook(payload []byte, headers http.Header, creds Credentials) (*NormalizedEvent, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
