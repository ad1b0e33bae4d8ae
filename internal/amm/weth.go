package amm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/txpipeline"
)

// Wrap deposits amount of native currency into the wrapped-native contract.
func (t *Tokens) Wrap(ctx context.Context, key *ecdsa.PrivateKey, weth common.Address, amount *big.Int, opts txpipeline.SendOptions, wait time.Duration) (common.Hash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, chainerr.BadInput("wrap amount must be positive")
	}
	data, err := pack(wethABI, "deposit")
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := submit(ctx, t.ledger, txpipeline.Request{To: weth, Data: data, Value: amount}, key, opts, wait)
	if err != nil {
		return hash, fmt.Errorf("wrap: %w", err)
	}
	return hash, nil
}

// Unwrap withdraws amount of wrapped-native back to native currency.
func (t *Tokens) Unwrap(ctx context.Context, key *ecdsa.PrivateKey, weth common.Address, amount *big.Int, opts txpipeline.SendOptions, wait time.Duration) (common.Hash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, chainerr.BadInput("unwrap amount must be positive")
	}
	data, err := pack(wethABI, "withdraw", amount)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := submit(ctx, t.ledger, txpipeline.Request{To: weth, Data: data}, key, opts, wait)
	if err != nil {
		return hash, fmt.Errorf("unwrap: %w", err)
	}
	return hash, nil
}
