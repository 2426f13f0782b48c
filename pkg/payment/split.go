package payment

import "github.com/shopspring/decimal"

// ComputeSplit divides a gross amount into the platform fee and the creator's
// net. The fee is the configured fixed value regardless of gross; when gross is
// smaller than the fee the creator net clamps to zero and the platform absorbs
// the shortfall. All outputs are rounded half-up to 2 decimal places; the
// intermediate subtraction is exact.
func ComputeSplit(gross, platformFee decimal.Decimal) Split {
	net := gross.Sub(platformFee)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Split{
		Gross:       gross.Round(2),
		PlatformFee: platformFee.Round(2),
		CreatorNet:  net.Round(2),
	}
}
