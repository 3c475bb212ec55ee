package swap

import (
	"fmt"
	stdmath "math"
	"strconv"

	"cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// FeeQuote is the fee/net split of an input amount at a given rate.
// fee + net always equals the input amount.
type FeeQuote struct {
	Fee uint64
	Net uint64
}

// ComputeFee splits amount into the withheld fee and the net amount at
// feeBps basis points: fee = floor(amount * feeBps / 10000). The multiply
// runs in 128 bits so the full uint64 amount range is exact.
func ComputeFee(amount uint64, feeBps uint16) (FeeQuote, error) {
	if feeBps > MaxFeeBps {
		return FeeQuote{}, fmt.Errorf("fee rate %d bps exceeds maximum %d", feeBps, MaxFeeBps)
	}

	fee := uint128.From64(amount).Mul64(uint64(feeBps)).Div64(MaxFeeBps)
	// fee <= amount for feeBps <= 10000, so the high word is always zero.
	return FeeQuote{Fee: fee.Lo, Net: amount - fee.Lo}, nil
}

// PercentToBps converts a user-entered fee percentage to basis points,
// rounding to the nearest integer. Inputs producing a rate outside
// [0, 10000] bps are rejected before any submission happens.
func PercentToBps(pct string) (uint16, error) {
	v, err := strconv.ParseFloat(pct, 64)
	if err != nil || stdmath.IsNaN(v) || stdmath.IsInf(v, 0) {
		// ParseFloat accepts "NaN" and "Inf", and NaN slips past every
		// range comparison.
		return 0, fmt.Errorf("invalid fee percentage %q", pct)
	}

	bps := stdmath.Round(v * 100)
	if bps < 0 || bps > MaxFeeBps {
		return 0, fmt.Errorf("fee %s%% out of range: must be between 0%% and 100%%", pct)
	}
	return uint16(bps), nil
}

// ParseAmount parses a raw integer token amount from user input. Empty,
// non-numeric and non-positive values are rejected; the caller withholds
// submission without surfacing an error.
func ParseAmount(s string) (uint64, bool) {
	amount, ok := math.NewIntFromString(s)
	if !ok || amount.LTE(math.ZeroInt()) {
		return 0, false
	}
	if !amount.IsUint64() {
		return 0, false
	}
	return amount.Uint64(), true
}
