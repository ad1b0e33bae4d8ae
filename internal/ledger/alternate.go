package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/tron"
	"swapPipeline/internal/txpipeline"
)

// Wallet is the submit and confirm half of the alternate ledger.
// *tron.Wallet implements it.
type Wallet interface {
	SendContractCall(ctx context.Context, key *ecdsa.PrivateKey, contract common.Address, data []byte, value *big.Int, gasLimitMultiplier float64) (common.Hash, error)
	AwaitConfirmation(ctx context.Context, id common.Hash, timeout time.Duration) (*tron.TransactionInfo, error)
}

// AlternateAdapter reads through the node's EVM-compatible JSON-RPC layer and
// submits through its wallet API. Only the gas-limit multiplier of
// SendOptions applies, as a multiplier on the estimated fee limit.
type AlternateAdapter struct {
	reads
	wallet Wallet
	logger *zap.Logger
}

// NewAlternate builds an AlternateAdapter.
func NewAlternate(node txpipeline.Node, wallet Wallet, cfg Config, logger *zap.Logger) *AlternateAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlternateAdapter{reads: newReads(node, cfg, logger), wallet: wallet, logger: logger}
}

func (a *AlternateAdapter) Kind() string { return KindAlternate }

func (a *AlternateAdapter) Submit(ctx context.Context, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error) {
	if key == nil {
		return common.Hash{}, chainerr.BadInput("private key is required")
	}
	multiplier := 1.0
	if opts.GasLimitMultiplier != nil {
		multiplier = *opts.GasLimitMultiplier
	}
	if opts.Nonce != nil || opts.MaxFee != nil || opts.PriorityFee != nil || opts.GasLimit != nil {
		a.logger.Debug("fee and nonce options ignored on alternate ledger")
	}
	return a.wallet.SendContractCall(ctx, key, req.To, req.Data, req.Value, multiplier)
}

// Await waits for inclusion only; confirmation depth is not supported and
// blocksToWait is ignored.
func (a *AlternateAdapter) Await(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error) {
	if blocksToWait != nil {
		a.logger.Debug("confirmation depth ignored on alternate ledger", zap.Uint64("blocks_to_wait", *blocksToWait))
	}
	info, err := a.wallet.AwaitConfirmation(ctx, hash, timeout)
	if err != nil {
		return 0, err
	}
	return info.BlockNumber, nil
}

// Nonce is always 0; the ledger orders transactions without nonces.
func (a *AlternateAdapter) Nonce(context.Context, common.Address) (uint64, error) {
	return 0, nil
}
