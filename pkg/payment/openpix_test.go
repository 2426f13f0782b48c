package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

func openPixToken(t *testing.T, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestOpenPixCreatePaymentSendsCentsAndSplit(t *testing.T) {
	var got openPixChargeReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charge" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "app-123" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(openPixChargeResp{Charge: openPixCharge{
			TransactionID:  "opx-1",
			Status:         "ACTIVE",
			BRCode:         "000201brcode",
			PaymentLinkURL: "https://openpix.example/pay/opx-1",
		}})
	}))
	defer srv.Close()

	g := NewOpenPixGateway(srv.URL)
	res, err := g.CreatePayment(context.Background(), Credentials{"app_id": "app-123"}, PaymentRequest{
		Amount:          decimal.RequireFromString("19.90"),
		CorrelationID:   "corr-5",
		PlatformAccount: "platform@pix.example",
		Split:           ComputeSplit(decimal.RequireFromString("19.90"), decimal.RequireFromString("0.55")),
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if res.ExternalID != "opx-1" || res.QRCode == "" {
		t.Fatalf("result = %+v", res)
	}
	if got.Value != 1990 || got.CorrelationID != "corr-5" {
		t.Fatalf("charge request = %+v", got)
	}
	if len(got.Splits) != 1 || got.Splits[0].PixKey != "platform@pix.example" || got.Splits[0].Value != 55 {
		t.Fatalf("splits = %+v", got.Splits)
	}
}

func TestOpenPixParseWebhookRequiresJWT(t *testing.T) {
	g := NewOpenPixGateway("")
	body := []byte(`{"event":"OPENPIX:CHARGE_COMPLETED","charge":{"transactionID":"opx-9","status":"COMPLETED","correlationID":"corr-9","value":1990,"paidAt":"2026-08-30T12:00:00Z"}}`)
	creds := Credentials{"app_id": "app-123", "webhook_secret": "whsec"}

	headers := http.Header{}
	headers.Set("x-webhook-authorization", openPixToken(t, "whsec"))
	ev, err := g.ParseWebhook(body, headers, creds)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Status != StatusConfirmed || ev.ProviderPaymentID != "opx-9" || ev.CorrelationID != "corr-9" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.PaidAt == nil || !ev.AmountPaid.Equal(decimal.RequireFromString("19.90")) {
		t.Fatalf("event = %+v", ev)
	}

	headers.Set("x-webhook-authorization", openPixToken(t, "other-secret"))
	if _, err := g.ParseWebhook(body, headers, creds); !errors.Is(err, ErrSignature) {
		t.Fatalf("wrong secret: err = %v, want ErrSignature", err)
	}

	headers.Del("x-webhook-authorization")
	if _, err := g.ParseWebhook(body, headers, creds); !errors.Is(err, ErrSignature) {
		t.Fatalf("missing token: err = %v, want ErrSignature", err)
	}

	if _, err := g.ParseWebhook(body, headers, Credentials{"app_id": "app-123"}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("no webhook_secret: err = %v, want ErrConfiguration", err)
	}
}

func TestOpenPixParseWebhookStatusBuckets(t *testing.T) {
	g := NewOpenPixGateway("")
	creds := Credentials{"webhook_secret": "whsec"}
	headers := http.Header{}
	headers.Set("x-webhook-authorization", openPixToken(t, "whsec"))

	tests := []struct {
		status string
		want   string
	}{
		{status: "COMPLETED", want: StatusConfirmed},
		{status: "CONFIRMED", want: StatusConfirmed},
		{status: "EXPIRED", want: StatusFailed},
		{status: "REFUNDED", want: StatusRefunded},
		{status: "ACTIVE", want: StatusPending},
	}
	for _, tt := range tests {
		body := []byte(`{"charge":{"transactionID":"opx-1","status":"` + tt.status + `"}}`)
		ev, err := g.ParseWebhook(body, headers, creds)
		if err != nil {
			t.Fatalf("%s: %v", tt.status, err)
		}
		if ev.Status != tt.want {
			t.Fatalf("%s mapped to %s, want %s", tt.status, ev.Status, tt.want)
		}
	}
}

func TestOpenPixNoRecurring(t *testing.T) {
	g := NewOpenPixGateway("")
	if _, err := g.CreateSubscription(context.Background(), Credentials{}, SubscriptionRequest{}); !errors.Is(err, ErrUnsupportedCapability) {
		t.Fatalf("err = %v, want ErrUnsupportedCapability", err)
	}
	if err := g.CancelSubscription(context.Background(), Credentials{}, "x"); !errors.Is(err, ErrUnsupportedCapability) {
		t.Fatalf("err = %v, want ErrUnsupportedCapability", err)
	}
}
