package swap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  uint64
		feeBps  uint16
		wantFee uint64
		wantNet uint64
	}{
		{"typical 20 bps", 1000, 20, 2, 998},
		{"rounds down", 999, 20, 1, 998},
		{"zero amount", 0, 20, 0, 0},
		{"zero fee", 1000, 0, 0, 1000},
		{"full fee", 1000, 10000, 1000, 0},
		{"one unit", 1, 20, 0, 1},
		{"max amount no overflow", math.MaxUint64, 10000, math.MaxUint64, 0},
		{"large amount 25 bps", 1_000_000_000_000, 25, 2_500_000_000, 997_500_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := ComputeFee(tt.amount, tt.feeBps)
			require.NoError(t, err)
			require.Equal(t, tt.wantFee, quote.Fee)
			require.Equal(t, tt.wantNet, quote.Net)
		})
	}
}

func TestComputeFeeRejectsRateAboveMax(t *testing.T) {
	_, err := ComputeFee(1000, 10001)
	require.Error(t, err)
}

func TestComputeFeeConserves(t *testing.T) {
	amounts := []uint64{0, 1, 7, 999, 1_000_000, 123_456_789_012, math.MaxUint64}
	for bps := uint16(0); bps <= 10000; bps += 37 {
		for _, amount := range amounts {
			quote, err := ComputeFee(amount, bps)
			require.NoError(t, err)
			require.Equal(t, amount, quote.Fee+quote.Net, "amount=%d bps=%d", amount, bps)
			if bps < 10000 {
				require.LessOrEqual(t, quote.Fee, amount)
			}
		}
	}
}

func TestPercentToBps(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"0", 0, false},
		{"0.2", 20, false},
		{"0.5", 50, false},
		{"1", 100, false},
		{"100", 10000, false},
		{"0.255", 26, false}, // rounds to nearest
		{"150", 0, true},
		{"-0.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"NaN", 0, true},
		{"nan", 0, true},
		{"Inf", 0, true},
		{"-Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := PercentToBps(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		ok   bool
	}{
		{"1", 1, true},
		{"1000000", 1_000_000, true},
		{"18446744073709551615", math.MaxUint64, true},
		{"18446744073709551616", 0, false}, // past uint64
		{"0", 0, false},
		{"-5", 0, false},
		{"1.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
