package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapPipeline/internal/chain"
	"swapPipeline/internal/tron"
	"swapPipeline/internal/txpipeline"
)

const (
	KindStandard  = "standard"
	KindAlternate = "alternate"
)

// Adapter submits and confirms transactions on one ledger flavour. The
// flavour is fixed when the adapter is built.
type Adapter interface {
	Kind() string
	// Submit prices, signs, and broadcasts req, returning its hash.
	Submit(ctx context.Context, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error)
	// Await blocks until hash is included, returning the inclusion block.
	Await(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error)
	// Call runs a read-only call against the latest state.
	Call(ctx context.Context, from, to common.Address, data []byte, value *big.Int) ([]byte, error)
	// Nonce is the next nonce for account, or 0 where the ledger has none.
	Nonce(ctx context.Context, account common.Address) (uint64, error)
	LatestHeader(ctx context.Context) (*types.Header, error)
	WaitForNextBlock(ctx context.Context, timeout time.Duration) error
	Close()
}

// Config selects and configures an adapter.
type Config struct {
	RPCURL       string
	Timeout      time.Duration
	Headers      map[string]string
	CheckSync    bool
	PollInterval time.Duration
}

// New dials the node at cfg.RPCURL. URLs with a /jsonrpc path segment get the
// alternate adapter, everything else the standard one.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint, alternate := tron.ParseEndpoint(cfg.RPCURL)
	clientCfg := chain.Config{
		RPCURL:    cfg.RPCURL,
		Timeout:   cfg.Timeout,
		Headers:   make(map[string]string),
		CheckSync: cfg.CheckSync,
	}
	if alternate {
		clientCfg.RPCURL = endpoint.JSONRPCURL()
		for k, v := range endpoint.Headers() {
			clientCfg.Headers[k] = v
		}
	}
	for k, v := range cfg.Headers {
		clientCfg.Headers[k] = v
	}

	client, err := chain.NewClient(ctx, clientCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	if !alternate {
		logger.Debug("using standard ledger", zap.Strings("headers", client.HeaderKeys()))
		return NewStandard(client, cfg, logger), nil
	}

	wallet := tron.NewWallet(tron.Config{
		Endpoint:     endpoint,
		Timeout:      cfg.Timeout,
		PollInterval: cfg.PollInterval,
	}, logger)
	for k, v := range cfg.Headers {
		wallet.SetHeader(k, v)
	}
	logger.Debug("using alternate ledger",
		zap.String("wallet", endpoint.Base),
		zap.Strings("headers", wallet.HeaderKeys()),
	)
	return NewAlternate(client, wallet, cfg, logger), nil
}

// reads is the JSON-RPC surface shared by both adapters.
type reads struct {
	node     txpipeline.Node
	pipeline *txpipeline.Pipeline
	waiter   *txpipeline.Waiter
}

func newReads(node txpipeline.Node, cfg Config, logger *zap.Logger) reads {
	return reads{
		node:     node,
		pipeline: txpipeline.New(node, txpipeline.Config{CheckSync: cfg.CheckSync}, logger),
		waiter:   txpipeline.NewWaiter(node, cfg.PollInterval, logger),
	}
}

func (r reads) Call(ctx context.Context, from, to common.Address, data []byte, value *big.Int) ([]byte, error) {
	return r.pipeline.Simulate(ctx, from, to, data, value, nil)
}

func (r reads) LatestHeader(ctx context.Context) (*types.Header, error) {
	return r.node.LatestHeader(ctx)
}

func (r reads) WaitForNextBlock(ctx context.Context, timeout time.Duration) error {
	return r.waiter.WaitForNextBlock(ctx, timeout)
}

func (r reads) Close() {
	if c, ok := r.node.(interface{ Close() }); ok {
		c.Close()
	}
}
