package fees

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"pgregory.net/rapid"

	"swapPipeline/internal/chainerr"
)

func TestBaseFeePreLondon(t *testing.T) {
	if _, err := BaseFee(&types.Header{Number: big.NewInt(1)}); !errors.Is(err, chainerr.ErrPreLondon) {
		t.Fatalf("expected ErrPreLondon, got %v", err)
	}
	fee, err := BaseFee(&types.Header{BaseFee: big.NewInt(7)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee.Int64() != 7 {
		t.Fatalf("base fee mismatch: %s", fee)
	}
}

func TestDefaultFees(t *testing.T) {
	pair := DefaultFees(big.NewInt(30_000_000_000))
	if pair.MaxFee.String() != "60000000000" {
		t.Fatalf("max fee mismatch: %s", pair.MaxFee)
	}
	if pair.PriorityFee.Int64() != 1 {
		t.Fatalf("priority fee mismatch: %s", pair.PriorityFee)
	}
}

func TestScaleBaseFee(t *testing.T) {
	got, err := ScaleBaseFee(big.NewInt(100), 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 150 {
		t.Fatalf("scaled fee mismatch: %s", got)
	}

	got, err = ScaleBaseFee(big.NewInt(3), 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 5 {
		t.Fatalf("expected 4.5 to round to 5, got %s", got)
	}

	huge := new(big.Int).Lsh(big.NewInt(1), 130)
	got, err = ScaleBaseFee(huge, 2.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(big.Int).Mul(huge, big.NewInt(3))
	if got.Cmp(want) != 0 {
		t.Fatalf("integer fallback mismatch: %s != %s", got, want)
	}

	if _, err := ScaleBaseFee(big.NewInt(1), -1); !errors.Is(err, chainerr.ErrBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestScaleGasLimit(t *testing.T) {
	got, err := ScaleGasLimit(100_000, 1.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 120_000 {
		t.Fatalf("gas limit mismatch: %d", got)
	}
	if _, err := ScaleGasLimit(100, 0); !errors.Is(err, chainerr.ErrBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestCheckIntrinsic(t *testing.T) {
	err := CheckIntrinsic(big.NewInt(20_999))
	var gasErr *chainerr.InsufficientGasError
	if !errors.As(err, &gasErr) {
		t.Fatalf("expected InsufficientGasError, got %v", err)
	}
	if gasErr.GasRequired.Uint64() != IntrinsicGas {
		t.Fatalf("gas required mismatch: %s", gasErr.GasRequired)
	}
	if err := CheckIntrinsic(big.NewInt(21_000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAffordableDownscale(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		baseFee := big.NewInt(rapid.Int64Range(1, 1_000_000_000).Draw(t, "baseFee"))
		gasLimit := rapid.Uint64Range(21_000, 5_000_000).Draw(t, "gasLimit")
		maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
		balance := big.NewInt(rapid.Int64Range(0, 1<<62).Draw(t, "balance"))

		limit := new(big.Int).SetUint64(gasLimit)
		minCost := new(big.Int).Mul(baseFee, limit)
		maxCost := new(big.Int).Mul(maxFee, limit)

		got, err := Affordable(balance, baseFee, maxFee, gasLimit)
		switch {
		case balance.Cmp(minCost) < 0:
			if !errors.Is(err, chainerr.ErrInsufficientGas) {
				t.Fatalf("expected insufficient gas, got %v", err)
			}
		case balance.Cmp(maxCost) < 0:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := new(big.Int).Quo(balance, limit)
			if got.Cmp(want) != 0 {
				t.Fatalf("downscaled fee mismatch: %s != %s", got, want)
			}
			if got.Cmp(baseFee) < 0 {
				t.Fatalf("downscaled fee %s below base fee %s", got, baseFee)
			}
		default:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Cmp(maxFee) != 0 {
				t.Fatalf("max fee changed: %s", got)
			}
		}
	})
}

type staticPricer struct{ price *big.Int }

func (p staticPricer) GasPrice(context.Context) (*big.Int, error) { return p.price, nil }

func TestSimulatedGasFor(t *testing.T) {
	gas, err := SimulatedGasFor(context.Background(), staticPricer{price: big.NewInt(10)}, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gas.Limit != 100_000 {
		t.Fatalf("limit mismatch: %d", gas.Limit)
	}

	rich := new(big.Int).Lsh(big.NewInt(1), 100)
	gas, err = SimulatedGasFor(context.Background(), staticPricer{price: big.NewInt(10)}, rich)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gas.Limit != SimulatedGasCap {
		t.Fatalf("expected cap, got %d", gas.Limit)
	}
}

func TestScaleBaseFeeHugeMultiplier(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 130)
	got, err := ScaleBaseFee(huge, 1e20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(big.Int).Mul(huge, new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil))
	if got.Cmp(want) != 0 {
		t.Fatalf("scaled fee mismatch: %s != %s", got, want)
	}
}
