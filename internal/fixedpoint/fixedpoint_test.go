package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleDown(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		want     string
	}{
		{"one ether", new(big.Int).Set(One), 18, "1"},
		{"usdc", big.NewInt(100), 6, "0.0001"},
		{"wei", big.NewInt(95), 18, "0.000000000000000095"},
		{"zero decimals", big.NewInt(42), 0, "42"},
		{"nil", nil, 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleDown(tt.raw, tt.decimals)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestScaleUpTruncates(t *testing.T) {
	got := ScaleUp(decimal.RequireFromString("1.23456789"), 6)
	assert.Equal(t, "1234567", got.String())

	got = ScaleUp(decimal.RequireFromString("0.0000009"), 6)
	assert.Equal(t, "0", got.String())

	got = ScaleUp(decimal.RequireFromString("-1.9999999"), 6)
	assert.Equal(t, "-1999999", got.String())
}

func TestScaleRoundTrip(t *testing.T) {
	values := []string{"0", "1", "0.000001", "123456.654321", "1000000000000.5"}
	for _, v := range values {
		d := decimal.RequireFromString(v)
		back := ScaleDown(ScaleUp(d, 6), 6)
		assert.True(t, back.Equal(d), "round trip %s -> %s", v, back)
	}
}

func TestMulDown(t *testing.T) {
	half := new(big.Int).Div(One, big.NewInt(2))
	assert.Equal(t, "50", MulDown(big.NewInt(100), half).String())

	// 3 * 0.333...3 truncates below 1
	third, ok := new(big.Int).SetString("333333333333333333", 10)
	require.True(t, ok)
	assert.Equal(t, "0", MulDown(big.NewInt(3), third).String())

	assert.Equal(t, "-1", MulDown(big.NewInt(-3), new(big.Int).Div(One, big.NewInt(2))).String())
	assert.Equal(t, "0", MulDown(nil, One).String())
}

func TestComputeAggregateSwapFee(t *testing.T) {
	fee := ComputeAggregateSwapFee(big.NewInt(1_000_000), decimal.RequireFromString("0.5"))
	assert.Equal(t, "500000", fee.String())

	fee = ComputeAggregateSwapFee(big.NewInt(1_000_000), decimal.Zero)
	assert.Equal(t, "0", fee.String())

	fee = ComputeAggregateSwapFee(big.NewInt(7), decimal.RequireFromString("0.1"))
	assert.Equal(t, "0", fee.String())
}

func TestScalingFactor(t *testing.T) {
	assert.Equal(t, "1", ScalingFactor(18).String())
	assert.Equal(t, "1000000000000", ScalingFactor(6).String())
	assert.Equal(t, "1", ScalingFactor(24).String())
}

func TestSplitPackedBalances(t *testing.T) {
	var word [32]byte
	word[15] = 0x01
	word[31] = 0x02
	word[16] = 0x80

	wrapped, underlying := SplitPackedBalances(word)
	assert.Equal(t, "1", wrapped.String())

	want := new(big.Int).Lsh(big.NewInt(1), 127)
	want.Add(want, big.NewInt(2))
	assert.Equal(t, want.String(), underlying.String())
}

func TestSplitPackedBalancesMax(t *testing.T) {
	var word [32]byte
	for i := range word {
		word[i] = 0xff
	}
	max128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	wrapped, underlying := SplitPackedBalances(word)
	assert.Equal(t, max128.String(), wrapped.String())
	assert.Equal(t, max128.String(), underlying.String())
}
