package amm

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"swapPipeline/internal/chainerr"
)

func TestSqrtPriceRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := rapid.Float64Range(1e-12, 1e12).Draw(t, "price")
		encoded, err := SqrtPriceFromPrice(price)
		if err != nil {
			t.Fatalf("encode %g: %v", price, err)
		}
		decoded := DecodeSqrtPrice(encoded)
		if math.Abs(decoded-price)/price > 1e-9 {
			t.Fatalf("round trip %g -> %s -> %g", price, encoded, decoded)
		}
	})
}

func TestCheckFeeBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fee := rapid.Uint32().Draw(t, "fee")
		err := CheckFee(fee)
		if fee >= 1<<24 {
			if !errors.Is(err, chainerr.ErrBadInput) {
				t.Fatalf("fee %d accepted: %v", fee, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("fee %d rejected: %v", fee, err)
		}
	})
}

func TestCheckPriceLimitBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 0, 24).Draw(t, "limit")
		limit := new(big.Int).SetBytes(raw)
		err := CheckPriceLimit(limit)
		if limit.BitLen() > 160 {
			if !errors.Is(err, chainerr.ErrBadInput) {
				t.Fatalf("limit %s accepted: %v", limit, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("limit %s rejected: %v", limit, err)
		}
	})

	require.NoError(t, CheckPriceLimit(nil))
	edge := new(big.Int).Lsh(big.NewInt(1), 160)
	require.ErrorIs(t, CheckPriceLimit(edge), chainerr.ErrBadInput)
	require.NoError(t, CheckPriceLimit(edge.Sub(edge, big.NewInt(1))))
}

func TestScaleSqrtPriceDirection(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := rapid.Float64Range(1e-6, 1e6).Draw(t, "price")
		tolerance := rapid.Float64Range(1e-4, 0.5).Draw(t, "tolerance")
		base, err := SqrtPriceFromPrice(price)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		down, err := ScaleSqrtPrice(base, tolerance, true)
		if err != nil {
			t.Fatalf("scale down: %v", err)
		}
		up, err := ScaleSqrtPrice(base, tolerance, false)
		if err != nil {
			t.Fatalf("scale up: %v", err)
		}
		spot := DecodeSqrtPrice(base)
		if DecodeSqrtPrice(down) >= spot {
			t.Fatalf("zero-for-one scaling did not lower %g", spot)
		}
		if DecodeSqrtPrice(up) <= spot {
			t.Fatalf("one-for-zero scaling did not raise %g", spot)
		}
	})
}

func TestSqrtPriceFromAmounts(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)

	got, err := SqrtPriceFromAmounts(big.NewInt(1), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(q96))

	got, err = SqrtPriceFromAmounts(big.NewInt(4), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(new(big.Int).Lsh(q96, 1)))

	// 2023 DAI per WETH, both with 18 decimals.
	got, err = SqrtPriceFromAmounts(big.NewInt(2023), big.NewInt(1))
	require.NoError(t, err)
	require.InEpsilon(t, 2023.0, DecodeSqrtPrice(got), 1e-12)

	_, err = SqrtPriceFromAmounts(big.NewInt(1), big.NewInt(0))
	require.ErrorIs(t, err, chainerr.ErrBadInput)
	_, err = SqrtPriceFromAmounts(big.NewInt(-1), big.NewInt(1))
	require.ErrorIs(t, err, chainerr.ErrBadInput)
}

func TestSqrtPriceFromPriceRejectsNonFinite(t *testing.T) {
	for _, price := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := SqrtPriceFromPrice(price)
		require.ErrorIs(t, err, chainerr.ErrBadInput, "price %g", price)
	}
	zero, err := SqrtPriceFromPrice(0)
	require.NoError(t, err)
	require.Equal(t, 0, zero.Sign())
}

func TestMinimumAmountOutZeroLimit(t *testing.T) {
	// No reader: a zero limit must not touch the network.
	q := NewQuoteEngine(nil, DefaultContracts(), common.Address{}, nil, nil)
	rapid.Check(t, func(t *rapid.T) {
		amount := new(big.Int).SetBytes(rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(t, "amount"))
		in, out := testWETH, testDAI
		if rapid.Bool().Draw(t, "reverse") {
			in, out = out, in
		}
		var limit *big.Int
		if rapid.Bool().Draw(t, "explicitZero") {
			limit = new(big.Int)
		}
		got, err := q.MinimumAmountOut(context.Background(), limit, amount, in, out, 500)
		if err != nil {
			t.Fatalf("min out: %v", err)
		}
		if got.Sign() != 0 {
			t.Fatalf("min out = %s, want 0", got)
		}
	})
}
