package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapPipeline/internal/chain"
	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/config"
	"swapPipeline/internal/events"
	"swapPipeline/internal/storage"
	"swapPipeline/internal/storage/postgres"
)

const defaultWaitTimeout = 2 * time.Minute

// withClient loads client config, opens a session, and runs fn.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, err := config.Load(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func newWaitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait <tx-hash>",
		Short: "Wait for a transaction to be included, optionally N blocks deep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hexutil.Decode(args[0])
			if err != nil || len(raw) != common.HashLength {
				return chainerr.BadInput("invalid transaction hash %q", args[0])
			}
			hash := common.BytesToHash(raw)
			timeout, _ := cmd.Flags().GetDuration("wait-timeout")
			var blocks *uint64
			if cmd.Flags().Changed("blocks") {
				n, _ := cmd.Flags().GetUint64("blocks")
				blocks = &n
			}

			return withClient(cmd, func(ctx context.Context, s *session) error {
				block, err := s.ledger.Await(ctx, hash, timeout, blocks)
				if err != nil {
					return err
				}
				fmt.Println(block)
				return nil
			})
		},
	}
	cmd.Flags().Duration("wait-timeout", defaultWaitTimeout, "overall deadline")
	cmd.Flags().Uint64("blocks", 0, "blocks to wait past inclusion")
	return cmd
}

func newNextBlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next-block",
		Short: "Block until the chain produces a new block",
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout, _ := cmd.Flags().GetDuration("wait-timeout")
			return withClient(cmd, func(ctx context.Context, s *session) error {
				if err := s.ledger.WaitForNextBlock(ctx, timeout); err != nil {
					return err
				}
				header, err := s.ledger.LatestHeader(ctx)
				if err != nil {
					return err
				}
				fmt.Println(header.Number.String())
				return nil
			})
		},
	}
	cmd.Flags().Duration("wait-timeout", defaultWaitTimeout, "overall deadline")
	return cmd
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Copy contract logs from a block range into JSONL or Postgres",
		RunE:  runEvents,
	}
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().StringSlice("address", nil, "contract addresses, hex or base58 (comma-separated)")
	cmd.Flags().StringSlice("event", nil, "event signatures or topic0 hashes (comma-separated)")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per eth_getLogs call")
	cmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	cmd.Flags().String("cursor", "", "resume cursor file; empty disables resuming")
	return cmd
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadEvents(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	addresses, err := events.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	topics, err := events.ParseTopics(cfg.Events)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	client, err := chain.NewClient(ctx, chain.Config{
		RPCURL:    cfg.RPCURL,
		Timeout:   cfg.Timeout,
		Headers:   cfg.Headers,
		CheckSync: cfg.CheckSync,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	var sink storage.LogSink = storage.NewJsonlStorage(cfg.Out)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
	}

	scanner := events.NewScanner(events.Config{
		From:      cfg.FromBlock,
		To:        cfg.ToBlock,
		Addresses: addresses,
		Topics:    topics,
		BatchSize: cfg.BatchSize,
		Cursor:    events.NewCursorFile(cfg.Cursor),
	}, client, sink, logger)

	logger.Info("event scan start",
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("events", len(topics)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", filepath.Clean(cfg.Out)),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	written, err := scanner.Run(ctx)
	logger.Info("event scan done", zap.Int("records", written))
	return err
}
