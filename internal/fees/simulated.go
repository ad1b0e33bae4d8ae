package fees

import (
	"context"
	"fmt"
	"math/big"
)

// SimulatedGasCap stays under the limits of common nodes and dev chains:
// geth warns above 25M gas and hardhat rejects anything above 12.45M.
const SimulatedGasCap uint64 = 12_450_000

// GasPricer returns the price simulated calls should offer.
type GasPricer interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// SimulatedGas is the price/limit pair attached to a read-only call.
type SimulatedGas struct {
	Price *big.Int
	Limit uint64
}

// SimulatedGasFor returns the largest gas limit the balance sustains at the
// current gas price, capped at SimulatedGasCap.
func SimulatedGasFor(ctx context.Context, pricer GasPricer, balance *big.Int) (SimulatedGas, error) {
	price, err := pricer.GasPrice(ctx)
	if err != nil {
		return SimulatedGas{}, fmt.Errorf("get gas price: %w", err)
	}
	return SimulatedGas{Price: price, Limit: SimulatedLimit(balance, price)}, nil
}

// SimulatedLimit returns min(SimulatedGasCap, balance / price).
func SimulatedLimit(balance, price *big.Int) uint64 {
	if price == nil || price.Sign() <= 0 {
		return SimulatedGasCap
	}
	affordable := new(big.Int).Quo(balance, price)
	if affordable.IsUint64() && affordable.Uint64() < SimulatedGasCap {
		return affordable.Uint64()
	}
	return SimulatedGasCap
}
