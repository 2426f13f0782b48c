package payment

import (
	"errors"
	"testing"
)

func TestRegistryResolvesKnownGateways(t *testing.T) {
	r := NewRegistry(
		NewPushinPayGateway(""),
		NewStripeGateway(),
	)
	gw, err := r.Get(GatewayPushinPay)
	if err != nil {
		t.Fatalf("get pushinpay: %v", err)
	}
	if gw.ID() != GatewayPushinPay {
		t.Fatalf("got gateway %q", gw.ID())
	}
	if ids := r.IDs(); len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}
}

func TestRegistryRejectsUnknownGateway(t *testing.T) {
	r := NewRegistry(NewStripeGateway())
	_, err := r.Get("cielo")
	if !errors.Is(err, ErrUnsupportedGateway) {
		t.Fatalf("err = %v, want ErrUnsupportedGateway", err)
	}
}
