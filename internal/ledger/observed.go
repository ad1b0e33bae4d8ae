package ledger

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/metrics"
	"swapPipeline/internal/txpipeline"
)

type observed struct {
	Adapter
	m *metrics.Pipeline
}

// WithMetrics counts submits, confirmations, and failures on m.
func WithMetrics(adapter Adapter, m *metrics.Pipeline) Adapter {
	if m == nil {
		return adapter
	}
	return &observed{Adapter: adapter, m: m}
}

func (o *observed) Submit(ctx context.Context, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error) {
	hash, err := o.Adapter.Submit(ctx, req, key, opts)
	if err != nil {
		o.m.Failures.WithLabelValues(o.Kind(), "submit", chainerr.Kind(err)).Inc()
		return hash, err
	}
	o.m.Submitted.WithLabelValues(o.Kind()).Inc()
	return hash, nil
}

func (o *observed) Await(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error) {
	start := time.Now()
	block, err := o.Adapter.Await(ctx, hash, timeout, blocksToWait)
	if err != nil {
		o.m.Failures.WithLabelValues(o.Kind(), "await", chainerr.Kind(err)).Inc()
		return block, err
	}
	o.m.Confirmed.WithLabelValues(o.Kind()).Inc()
	o.m.ConfirmLatency.WithLabelValues(o.Kind()).Observe(time.Since(start).Seconds())
	return block, nil
}
