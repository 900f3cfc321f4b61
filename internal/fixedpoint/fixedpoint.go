package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals of on-chain 18-decimal fixed point values (percentages, BPT).
const Decimals uint8 = 18

// One is 1e18.
var One = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals)), nil)

var lower128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// ScaleDown converts a raw integer amount into a decimal with the given precision.
func ScaleDown(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ScaleUp converts a decimal back into a raw integer amount. Digits past
// decimals are truncated, never rounded.
func ScaleUp(d decimal.Decimal, decimals uint8) *big.Int {
	return d.Truncate(int32(decimals)).Shift(int32(decimals)).BigInt()
}

// MulDown multiplies two 1e18 fixed point values, truncating toward zero.
func MulDown(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return new(big.Int)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, One)
}

// ComputeAggregateSwapFee returns the protocol plus creator share of a raw
// swap fee amount, given the aggregate fee percentage as a decimal.
func ComputeAggregateSwapFee(swapFeeAmountRaw *big.Int, aggregatePercentage decimal.Decimal) *big.Int {
	return MulDown(swapFeeAmountRaw, ScaleUp(aggregatePercentage, Decimals))
}

// ScalingFactor is 10^(18-decimals); tokens with more than 18 decimals get 1.
func ScalingFactor(decimals uint8) *big.Int {
	if decimals >= Decimals {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(Decimals-decimals)), nil)
}

// SplitPackedBalances splits a packed buffer balance word. The high 16 bytes
// hold the wrapped balance and the low 16 bytes the underlying balance.
func SplitPackedBalances(word [32]byte) (wrapped, underlying *big.Int) {
	packed := new(uint256.Int).SetBytes32(word[:])
	low := new(uint256.Int).And(packed, lower128)
	high := new(uint256.Int).Rsh(packed, 128)
	return high.ToBig(), low.ToBig()
}
