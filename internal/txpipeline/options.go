package txpipeline

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// SendOptions overrides the values the pipeline would otherwise compute.
// Nil fields are unset. The With* helpers return a modified copy, so a later
// call of the same kind replaces an earlier one.
//
// Precedence: MaxFee beats MaxFeeMultiplier, which scales the base fee.
// GasLimit skips gas estimation; GasLimitMultiplier then scales whichever
// limit was chosen. NetworkID belongs to legacy transactions and is rejected.
type SendOptions struct {
	MaxFee             *big.Int
	PriorityFee        *big.Int
	MaxFeeMultiplier   *float64
	GasLimit           *uint64
	GasLimitMultiplier *float64
	Nonce              *uint64
	AccessList         types.AccessList
	NetworkID          *uint64
}

func (o SendOptions) WithMaxFee(fee *big.Int) SendOptions {
	o.MaxFee = new(big.Int).Set(fee)
	return o
}

func (o SendOptions) WithPriorityFee(fee *big.Int) SendOptions {
	o.PriorityFee = new(big.Int).Set(fee)
	return o
}

func (o SendOptions) WithMaxFeeMultiplier(m float64) SendOptions {
	o.MaxFeeMultiplier = &m
	return o
}

func (o SendOptions) WithGasLimit(limit uint64) SendOptions {
	o.GasLimit = &limit
	return o
}

func (o SendOptions) WithGasLimitMultiplier(m float64) SendOptions {
	o.GasLimitMultiplier = &m
	return o
}

// WithDefaultGasLimitMultiplier sets m only when no multiplier is set yet.
func (o SendOptions) WithDefaultGasLimitMultiplier(m float64) SendOptions {
	if o.GasLimitMultiplier != nil {
		return o
	}
	return o.WithGasLimitMultiplier(m)
}

func (o SendOptions) WithNonce(nonce uint64) SendOptions {
	o.Nonce = &nonce
	return o
}

func (o SendOptions) WithAccessList(list types.AccessList) SendOptions {
	o.AccessList = list
	return o
}

func (o SendOptions) WithNetworkID(id uint64) SendOptions {
	o.NetworkID = &id
	return o
}

func (o SendOptions) gasLimitMultiplier() float64 {
	if o.GasLimitMultiplier == nil {
		return 1
	}
	return *o.GasLimitMultiplier
}
