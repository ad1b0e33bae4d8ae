package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/config"
	"swapPipeline/internal/ledger"
	"swapPipeline/internal/metrics"
	"swapPipeline/internal/storage"
	"swapPipeline/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "swapctl",
		Short:        "Fee-market transactions and concentrated-liquidity swaps",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "JSON-RPC URL; a /jsonrpc path selects the Tron wallet API")
	flags.Duration("timeout", 10*time.Second, "per-request timeout")
	flags.StringSlice("header", nil, "extra request headers (key=value, repeatable)")
	flags.Bool("check-sync", false, "refuse reads while the node is syncing")
	flags.Duration("poll-interval", time.Second, "confirmation poll interval")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("journal", "", "append transaction lifecycle rows to this JSONL file")
	flags.String("pg-dsn", "", "record the transaction journal in Postgres")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newQuoteCmd(),
		newMinOutCmd(),
		newPoolCmd(),
		newSqrtPriceCmd(),
		newSwapCmd(false),
		newSwapCmd(true),
		newApproveCmd(),
		newWrapCmd(true),
		newWrapCmd(false),
		newTransferCmd(),
		newWaitCmd(),
		newNextBlockCmd(),
		newEventsCmd(),
		newTronAddressCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds to distinct statuses so scripts can branch on
// them.
func exitCode(err error) int {
	switch {
	case errors.Is(err, chainerr.ErrBadInput):
		return 2
	case errors.Is(err, chainerr.ErrInsufficientGas):
		return 3
	case errors.Is(err, chainerr.ErrTransactionTimeout), errors.Is(err, chainerr.ErrNoBlockProduced):
		return 4
	case errors.Is(err, chainerr.ErrBadResponse), errors.Is(err, chainerr.ErrContractCall):
		return 5
	default:
		return 1
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// session is a dialed ledger with its journal and metrics attached.
type session struct {
	logger  *zap.Logger
	ledger  ledger.Adapter
	metrics *metrics.Pipeline
	closers []func()
}

func openSession(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) (*session, error) {
	s := &session{logger: logger}

	reg := prometheus.NewRegistry()
	s.metrics = metrics.NewPipeline(reg)
	if srv := metrics.NewServer(cfg.MetricsAddr, reg); srv != nil {
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		s.closers = append(s.closers, func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(stopCtx)
		})
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
	}

	adapter, err := ledger.New(ctx, ledger.Config{
		RPCURL:       cfg.RPCURL,
		Timeout:      cfg.Timeout,
		Headers:      cfg.Headers,
		CheckSync:    cfg.CheckSync,
		PollInterval: cfg.PollInterval,
	}, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, adapter.Close)

	switch {
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		adapter = ledger.WithJournal(adapter, store, logger)
	case cfg.Journal != "":
		adapter = ledger.WithJournal(adapter, storage.NewJsonlStorage(cfg.Journal), logger)
	}
	s.ledger = ledger.WithMetrics(adapter, s.metrics)

	logger.Debug("session open", zap.String("ledger", s.ledger.Kind()))
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
