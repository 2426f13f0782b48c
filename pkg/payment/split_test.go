package payment

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name    string
		gross   string
		fee     string
		wantFee string
		wantNet string
	}{
		{name: "plan above fee", gross: "10.00", fee: "0.55", wantFee: "0.55", wantNet: "9.45"},
		{name: "gross below fee clamps net", gross: "0.40", fee: "0.55", wantFee: "0.55", wantNet: "0.00"},
		{name: "gross equals fee", gross: "0.55", fee: "0.55", wantFee: "0.55", wantNet: "0.00"},
		{name: "zero gross", gross: "0.00", fee: "0.55", wantFee: "0.55", wantNet: "0.00"},
		{name: "zero fee", gross: "12.30", fee: "0", wantFee: "0.00", wantNet: "12.30"},
		{name: "half-up rounding", gross: "10.005", fee: "0.55", wantFee: "0.55", wantNet: "9.46"},
	}
	for _, tt := range tests {
		gross := decimal.RequireFromString(tt.gross)
		fee := decimal.RequireFromString(tt.fee)
		got := ComputeSplit(gross, fee)
		if got.PlatformFee.StringFixed(2) != tt.wantFee {
			t.Fatalf("%s: platform fee = %s, want %s", tt.name, got.PlatformFee, tt.wantFee)
		}
		if got.CreatorNet.StringFixed(2) != tt.wantNet {
			t.Fatalf("%s: creator net = %s, want %s", tt.name, got.CreatorNet, tt.wantNet)
		}
		if got.CreatorNet.IsNegative() {
			t.Fatalf("%s: creator net went negative", tt.name)
		}
	}
}

// The fee stays at the configured value even when it exceeds gross; the
// platform absorbs the shortfall instead of shrinking its fee.
func TestComputeSplitKeepsFeeOnShortfall(t *testing.T) {
	got := ComputeSplit(decimal.RequireFromString("0.40"), decimal.RequireFromString("0.55"))
	if got.PlatformFee.StringFixed(2) != "0.55" {
		t.Fatalf("fee reduced to %s, want 0.55", got.PlatformFee)
	}
	if !got.CreatorNet.IsZero() {
		t.Fatalf("creator net = %s, want 0", got.CreatorNet)
	}
}

func TestComputeSplitSumInvariant(t *testing.T) {
	fee := decimal.RequireFromString("0.55")
	for _, raw := range []string{"0.55", "0.56", "1.00", "9.99", "10.00", "100.37", "2500.01"} {
		gross := decimal.RequireFromString(raw)
		got := ComputeSplit(gross, fee)
		if !got.PlatformFee.Add(got.CreatorNet).Equal(got.Gross) {
			t.Fatalf("gross %s: fee %s + net %s != gross %s", raw, got.PlatformFee, got.CreatorNet, got.Gross)
		}
	}
}
