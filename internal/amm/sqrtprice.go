package amm

import (
	"math"
	"math/big"

	"swapPipeline/internal/chainerr"
)

var (
	maxSqrtPrice = new(big.Int).Lsh(big.NewInt(1), 160)
	maxFee       = uint32(1) << 24
)

// CheckUint256 rejects values that an ABI uint256 cannot hold. Nil passes.
func CheckUint256(name string, v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return chainerr.BadInput("%s %s does not fit in uint256", name, v)
	}
	return nil
}

// CheckFee rejects fee tiers that do not fit in 24 bits.
func CheckFee(fee uint32) error {
	if fee >= maxFee {
		return chainerr.BadInput("fee %d too large for uint24", fee)
	}
	return nil
}

// CheckPriceLimit rejects sqrt price limits that do not fit in 160 bits. Nil
// means no limit.
func CheckPriceLimit(limit *big.Int) error {
	if limit == nil {
		return nil
	}
	if limit.Sign() < 0 || limit.Cmp(maxSqrtPrice) >= 0 {
		return chainerr.BadInput("sqrt price limit %s too large for uint160", limit)
	}
	return nil
}

// DecodeSqrtPrice turns a Q64.96 sqrt price into token1 per token0.
func DecodeSqrtPrice(sqrtPriceX96 *big.Int) float64 {
	if sqrtPriceX96 == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(sqrtPriceX96).Float64()
	root := math.Ldexp(f, -96)
	return root * root
}

// SqrtPriceFromAmounts encodes amount1/amount0 as sqrt(amount1 << 192 / amount0)
// in integer arithmetic.
func SqrtPriceFromAmounts(amount1, amount0 *big.Int) (*big.Int, error) {
	if amount0 == nil || amount0.Sign() <= 0 {
		return nil, chainerr.BadInput("amount0 must be positive")
	}
	if amount1 == nil || amount1.Sign() < 0 {
		return nil, chainerr.BadInput("amount1 must not be negative")
	}
	ratio := new(big.Int).Lsh(amount1, 192)
	ratio.Quo(ratio, amount0)
	return ratio.Sqrt(ratio), nil
}

// SqrtPriceFromPrice encodes a spot price as floor(sqrt(price * 2^192)).
func SqrtPriceFromPrice(price float64) (*big.Int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, chainerr.BadInput("price %g is not a finite non-negative number", price)
	}
	root := math.Floor(math.Sqrt(math.Ldexp(price, 192)))
	if math.IsInf(root, 0) {
		return nil, chainerr.BadInput("price %g out of range", price)
	}
	out, _ := new(big.Float).SetFloat64(root).Int(nil)
	return out, nil
}

// ScaleSqrtPrice moves a sqrt price by tolerance in the direction the swap
// pushes the pool: down for token0 to token1, up otherwise.
func ScaleSqrtPrice(sqrtPriceX96 *big.Int, tolerance float64, zeroForOne bool) (*big.Int, error) {
	factor := 1 + tolerance
	if zeroForOne {
		factor = 1 - tolerance
	}
	return SqrtPriceFromPrice(DecodeSqrtPrice(sqrtPriceX96) * factor)
}
