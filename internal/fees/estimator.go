package fees

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"swapPipeline/internal/chainerr"
)

// IntrinsicGas is the gas charged for the simplest value transfer.
const IntrinsicGas uint64 = 21000

// FeePair is an EIP-1559 (priority fee, max fee) pair in wei per gas.
type FeePair struct {
	PriorityFee *big.Int
	MaxFee      *big.Int
}

// BaseFee extracts the base fee from the latest header and fails with
// ErrPreLondon when the chain has no fee market.
func BaseFee(header *types.Header) (*big.Int, error) {
	if header == nil || header.BaseFee == nil {
		return nil, chainerr.ErrPreLondon
	}
	return new(big.Int).Set(header.BaseFee), nil
}

// DefaultFees returns max fee = 2 x base fee and a priority fee of 1 wei.
// The actual price paid is set by the including block, so the headroom lets
// the transaction survive a base fee increase in the next block.
func DefaultFees(baseFee *big.Int) FeePair {
	return FeePair{
		PriorityFee: big.NewInt(1),
		MaxFee:      new(big.Int).Lsh(baseFee, 1),
	}
}

var maxFloatConvertible = new(big.Int).Lsh(big.NewInt(1), 128)

// ScaleBaseFee returns round(baseFee * multiplier). Base fees that do not fit
// 128 bits are multiplied by the rounded multiplier instead.
func ScaleBaseFee(baseFee *big.Int, multiplier float64) (*big.Int, error) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier < 0 {
		return nil, chainerr.BadInput("invalid max fee multiplier %v", multiplier)
	}
	if baseFee.Sign() < 0 {
		return nil, chainerr.BadInput("negative base fee %s", baseFee)
	}

	if baseFee.Cmp(maxFloatConvertible) < 0 {
		f, _ := new(big.Float).SetInt(baseFee).Float64()
		scaled := math.Round(f * multiplier)
		if math.IsInf(scaled, 0) {
			return nil, chainerr.BadInput("scaled max fee overflows")
		}
		out, _ := new(big.Float).SetFloat64(scaled).Int(nil)
		return out, nil
	}

	rounded, _ := new(big.Float).SetFloat64(math.Round(multiplier)).Int(nil)
	return rounded.Mul(rounded, baseFee), nil
}

// ScaleGasLimit returns floor(gasLimit * multiplier).
func ScaleGasLimit(gasLimit uint64, multiplier float64) (uint64, error) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return 0, chainerr.BadInput("invalid gas limit multiplier %v", multiplier)
	}
	scaled := math.Floor(float64(gasLimit) * multiplier)
	if scaled >= math.MaxUint64 {
		return 0, chainerr.BadInput("scaled gas limit overflows uint64")
	}
	if scaled < 1 {
		return 0, chainerr.BadInput("scaled gas limit is zero")
	}
	return uint64(scaled), nil
}

// Affordable checks that maxFee * gasLimit fits the balance. When it does not
// but baseFee * gasLimit does, it returns the highest max fee the balance
// covers. When even the base fee is unaffordable it returns an
// InsufficientGasError.
func Affordable(balance, baseFee, maxFee *big.Int, gasLimit uint64) (*big.Int, error) {
	limit := new(big.Int).SetUint64(gasLimit)
	if new(big.Int).Mul(maxFee, limit).Cmp(balance) <= 0 {
		return maxFee, nil
	}
	if new(big.Int).Mul(baseFee, limit).Cmp(balance) > 0 {
		return nil, &chainerr.InsufficientGasError{
			Balance:     new(big.Int).Set(balance),
			BaseGas:     new(big.Int).Set(baseFee),
			GasRequired: limit,
		}
	}
	return new(big.Int).Quo(balance, limit), nil
}

// CheckIntrinsic fails when balance cannot even pay for IntrinsicGas units.
func CheckIntrinsic(balance *big.Int) error {
	intrinsic := new(big.Int).SetUint64(IntrinsicGas)
	if balance.Sign() == 0 || balance.Cmp(intrinsic) < 0 {
		return &chainerr.InsufficientGasError{
			Balance:     new(big.Int).Set(balance),
			BaseGas:     intrinsic,
			GasRequired: new(big.Int).Set(intrinsic),
		}
	}
	return nil
}
