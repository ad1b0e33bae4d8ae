package ledger

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPipeline/internal/txpipeline"
)

// StandardAdapter drives an EIP-1559 chain through plain JSON-RPC.
type StandardAdapter struct {
	reads
	logger *zap.Logger
}

// NewStandard builds a StandardAdapter over node.
func NewStandard(node txpipeline.Node, cfg Config, logger *zap.Logger) *StandardAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardAdapter{reads: newReads(node, cfg, logger), logger: logger}
}

func (a *StandardAdapter) Kind() string { return KindStandard }

func (a *StandardAdapter) Submit(ctx context.Context, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error) {
	tx, err := a.pipeline.BuildAndSubmit(ctx, req, key, opts)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (a *StandardAdapter) Await(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error) {
	return a.waiter.Wait(ctx, hash, timeout, blocksToWait)
}

func (a *StandardAdapter) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	return a.node.Nonce(ctx, account)
}
