package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/model"
	"swapPipeline/internal/storage"
	"swapPipeline/internal/txpipeline"
)

type journaled struct {
	Adapter
	journal storage.TxJournal
	logger  *zap.Logger
	now     func() time.Time
}

// WithJournal records every successful submit and every await outcome in
// journal. Journal failures are logged, never returned.
func WithJournal(adapter Adapter, journal storage.TxJournal, logger *zap.Logger) Adapter {
	if journal == nil {
		return adapter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &journaled{Adapter: adapter, journal: journal, logger: logger, now: time.Now}
}

func (j *journaled) Submit(ctx context.Context, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error) {
	hash, err := j.Adapter.Submit(ctx, req, key, opts)
	if err != nil {
		return hash, err
	}
	record := model.TxRecord{
		TxHash:    hash.Hex(),
		Ledger:    j.Kind(),
		From:      crypto.PubkeyToAddress(key.PublicKey).Hex(),
		To:        req.To.Hex(),
		Status:    model.TxSubmitted,
		UpdatedAt: j.now().UTC(),
	}
	if req.Value != nil {
		record.Value = req.Value.String()
	}
	j.record(ctx, record)
	return hash, nil
}

func (j *journaled) Await(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error) {
	block, err := j.Adapter.Await(ctx, hash, timeout, blocksToWait)
	record := model.TxRecord{
		TxHash:    hash.Hex(),
		Ledger:    j.Kind(),
		Status:    model.TxConfirmed,
		Block:     block,
		UpdatedAt: j.now().UTC(),
	}
	switch {
	case err == nil:
	case errors.Is(err, chainerr.ErrTransactionTimeout):
		record.Status = model.TxTimeout
	default:
		record.Status = model.TxFailed
	}
	if err != nil {
		record.ErrorKind = chainerr.Kind(err)
		record.Error = err.Error()
	}
	j.record(ctx, record)
	return block, err
}

func (j *journaled) record(ctx context.Context, record model.TxRecord) {
	if err := j.journal.RecordTx(context.WithoutCancel(ctx), record); err != nil {
		j.logger.Warn("journal write failed",
			zap.String("tx_hash", record.TxHash),
			zap.String("status", string(record.Status)),
			zap.Error(err),
		)
	}
}
