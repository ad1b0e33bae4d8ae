package events

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapPipeline/internal/model"
	"swapPipeline/internal/storage"
)

// Source is the chain surface the scanner reads. chain.Client implements it.
type Source interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, from, to uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Config selects what to scan. To 0 means the current head.
type Config struct {
	From      uint64
	To        uint64
	Addresses []common.Address
	Topics    []Topic
	BatchSize uint64
	Cursor    *CursorFile
}

// Scanner copies matching logs from a block range into a sink.
type Scanner struct {
	cfg    Config
	source Source
	sink   storage.LogSink
	logger *zap.Logger
	names  map[common.Hash]string
	seen   map[string]struct{}
	now    func() time.Time
}

func NewScanner(cfg Config, source Source, sink storage.LogSink, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := make(map[common.Hash]string, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		if topic.Signature != "" {
			names[topic.Hash] = topic.Signature
		}
	}
	return &Scanner{
		cfg:    cfg,
		source: source,
		sink:   sink,
		logger: logger,
		names:  names,
		seen:   make(map[string]struct{}),
		now:    time.Now,
	}
}

// Run scans the configured range and returns the number of records written.
// Failed RPC reads end the scan; the cursor keeps the last finished batch.
func (s *Scanner) Run(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, fmt.Errorf("chain source is nil")
	}
	if s.sink == nil {
		return 0, fmt.Errorf("log sink is nil")
	}
	if s.cfg.BatchSize == 0 {
		return 0, fmt.Errorf("batch size must be greater than zero")
	}
	if len(s.cfg.Addresses) == 0 {
		return 0, fmt.Errorf("at least one address is required")
	}

	chainID, err := s.source.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return 0, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	from, to := s.cfg.From, s.cfg.To
	if to == 0 {
		if to, err = s.source.BlockNumber(ctx); err != nil {
			return 0, fmt.Errorf("get block number: %w", err)
		}
	}
	cur, ok, err := s.cfg.Cursor.Load()
	if err != nil {
		return 0, err
	}
	if ok && cur.LastBlock >= from {
		from = cur.LastBlock + 1
		s.logger.Info("resume from cursor", zap.Uint64("last_block", cur.LastBlock), zap.Uint64("from", from))
	}
	if from > to {
		s.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return 0, nil
	}

	batches, err := Batches(from, to, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	topics := topicHashes(s.cfg.Topics)
	written := 0
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		logs, err := s.source.FilterLogs(ctx, batch.From, batch.To, s.cfg.Addresses, topics)
		if err != nil {
			return written, fmt.Errorf("filter logs %d-%d: %w", batch.From, batch.To, err)
		}

		scannedAt := s.now()
		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			if s.duplicate(log) {
				continue
			}
			ts, err := s.source.BlockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return written, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			record := model.NewLogRecord(chainID.Uint64(), log, s.eventName(log), ts, scannedAt)
			swap, ok, err := DecodeSwap(log)
			if ok && err != nil {
				s.logger.Warn("undecodable swap log", zap.String("tx_hash", log.TxHash.Hex()), zap.Uint("log_index", log.Index), zap.Error(err))
			}
			record.Swap = swap
			records = append(records, record)
		}

		if len(records) > 0 {
			if err := s.sink.PutLogBatch(ctx, records); err != nil {
				return written, fmt.Errorf("store logs: %w", err)
			}
		}
		if err := s.cfg.Cursor.Save(batch.To); err != nil {
			return written, err
		}
		written += len(records)

		s.logger.Info("batch scanned",
			zap.Uint64("from", batch.From),
			zap.Uint64("to", batch.To),
			zap.Int("logs", len(records)),
		)
	}
	return written, nil
}

func (s *Scanner) eventName(log types.Log) string {
	if len(log.Topics) == 0 {
		return ""
	}
	return s.names[log.Topics[0]]
}

func (s *Scanner) duplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}
