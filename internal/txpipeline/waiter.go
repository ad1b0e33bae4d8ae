package txpipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
)

// Waiter polls the node until a transaction is included, optionally under a
// number of confirmation blocks.
type Waiter struct {
	node     Node
	interval time.Duration
	logger   *zap.Logger
}

// NewWaiter builds a Waiter. A non-positive interval polls once per second.
func NewWaiter(node Node, interval time.Duration, logger *zap.Logger) *Waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Waiter{node: node, interval: interval, logger: logger}
}

// Wait blocks until hash is in a block and, when blocksToWait is non-nil,
// until the head is at least that many blocks past the inclusion block. It
// returns the inclusion block.
//
// Only "not found yet" keeps the loop going; any RPC error ends the wait.
// Exceeding timeout returns ErrTransactionTimeout whatever the state.
func (w *Waiter) Wait(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var included uint64
	err := pollEvery(waitCtx, w.interval, func(ctx context.Context) (bool, error) {
		block, err := w.node.TransactionBlock(ctx, hash)
		if err != nil {
			return false, fmt.Errorf("get transaction %s: %w", hash.Hex(), err)
		}
		if block == nil {
			return false, nil
		}
		included = block.Uint64()
		if blocksToWait == nil {
			return true, nil
		}

		current, err := w.node.BlockNumber(ctx)
		if err != nil {
			return false, fmt.Errorf("get block number: %w", err)
		}
		w.logger.Debug("waiting for confirmations",
			zap.String("tx_hash", hash.Hex()),
			zap.Uint64("included", included),
			zap.Uint64("current", current),
			zap.Uint64("blocks_to_wait", *blocksToWait),
		)
		return Confirmed(current, *blocksToWait, included), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %s after %s", chainerr.ErrTransactionTimeout, hash.Hex(), timeout)
		}
		return 0, err
	}
	return included, nil
}

// Confirmed reports whether current - depth >= included without underflowing
// on short chains.
func Confirmed(current, depth, included uint64) bool {
	return current > depth && current-depth >= included
}

// WaitForNextBlock blocks until the head block number increases. Poll errors
// are ignored.
func (w *Waiter) WaitForNextBlock(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		last uint64
		seen bool
	)
	err := pollEvery(waitCtx, w.interval, func(ctx context.Context) (bool, error) {
		height, err := w.node.BlockNumber(ctx)
		if err != nil {
			w.logger.Debug("block number poll failed", zap.Error(err))
			return false, nil
		}
		if !seen {
			last, seen = height, true
			return false, nil
		}
		return height > last, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &chainerr.NoBlockProducedError{Timeout: timeout}
	}
	return nil
}
