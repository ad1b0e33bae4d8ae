package chain

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
)

// Config holds the process-wide connection settings. It is read-mostly and
// shared by every concurrent call made through the Client.
type Config struct {
	RPCURL    string
	Timeout   time.Duration
	Headers   map[string]string
	CheckSync bool
}

// Client wraps go-ethereum RPC and provides the node reads and writes used by
// the transaction pipeline.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	timeout   time.Duration
	checkSync bool
	logger    *zap.Logger

	headerMu sync.RWMutex
	headers  map[string]string

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient dials the RPC endpoint with the configured headers.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	headers := make(map[string]string, len(cfg.Headers))
	var opts []rpc.ClientOption
	if len(cfg.Headers) > 0 {
		httpHeaders := http.Header{}
		for key, value := range cfg.Headers {
			headers[key] = value
			httpHeaders.Set(key, value)
		}
		opts = append(opts, rpc.WithHeaders(httpHeaders))
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.RPCURL, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		timeout:   cfg.Timeout,
		checkSync: cfg.CheckSync,
		logger:    logger,
		headers:   headers,
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// SetHeader adds or replaces an HTTP header sent with every request. It must
// not be called while other goroutines use the client.
func (c *Client) SetHeader(key, value string) {
	c.headerMu.Lock()
	c.headers[key] = value
	c.headerMu.Unlock()
	c.rpcClient.SetHeader(key, value)
}

// Header returns the configured value for key, or "" when unset.
func (c *Client) Header(key string) string {
	c.headerMu.RLock()
	defer c.headerMu.RUnlock()
	return c.headers[key]
}

// HeaderKeys returns the configured header names in sorted order.
func (c *Client) HeaderKeys() []string {
	c.headerMu.RLock()
	keys := make([]string, 0, len(c.headers))
	for key := range c.headers {
		keys = append(keys, key)
	}
	c.headerMu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Syncing reports whether the node is still syncing. It always returns false
// when sync checking is disabled.
func (c *Client) Syncing(ctx context.Context) (bool, error) {
	if !c.checkSync {
		return false, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	progress, err := c.ethClient.SyncProgress(ctx)
	if err != nil {
		return false, fmt.Errorf("eth_syncing: %w", err)
	}
	return progress != nil, nil
}

func (c *Client) ensureSynced(ctx context.Context, op string) error {
	syncing, err := c.Syncing(ctx)
	if err != nil {
		return err
	}
	if syncing {
		return chainerr.SyncingNode(op)
	}
	return nil
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.ChainID(ctx)
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.ensureSynced(ctx, "eth_blockNumber"); err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number, nil meaning latest.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.HeaderByNumber(ctx, number)
}

// LatestHeader returns the header of the latest block.
func (c *Client) LatestHeader(ctx context.Context) (*types.Header, error) {
	if err := c.ensureSynced(ctx, "eth_getBlockByNumber"); err != nil {
		return nil, err
	}
	return c.HeaderByNumber(ctx, nil)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// Balance returns the latest balance of account in wei.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := c.ensureSynced(ctx, "eth_getBalance"); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.BalanceAt(ctx, account, nil)
}

// Nonce returns the transaction count of account at the latest block.
func (c *Client) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	if err := c.ensureSynced(ctx, "eth_getTransactionCount"); err != nil {
		return 0, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.NonceAt(ctx, account, nil)
}

// GasPrice returns eth_gasPrice, raised to the latest base fee when the node
// suggests something lower.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.ensureSynced(ctx, "eth_gasPrice"); err != nil {
		return nil, err
	}
	callCtx, cancel := c.withTimeout(ctx)
	price, err := c.ethClient.SuggestGasPrice(callCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	header, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get latest header: %w", err)
	}
	if header.BaseFee != nil && price.Cmp(header.BaseFee) < 0 {
		return new(big.Int).Set(header.BaseFee), nil
	}
	return price, nil
}

// EstimateGas runs eth_estimateGas for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if syncing, err := c.Syncing(ctx); err == nil && syncing {
		c.logger.Warn("node is still syncing, gas estimate may be stale")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.EstimateGas(ctx, msg)
}

// CallContract performs an eth_call, at blockNumber when it is non-nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.ensureSynced(ctx, "eth_call"); err != nil {
		return nil, err
	}
	if blockNumber != nil && c.checkSync {
		head, err := c.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("get block number: %w", err)
		}
		if blockNumber.Cmp(new(big.Int).SetUint64(head)) > 0 {
			return nil, chainerr.BadInput("cannot call at height %s above synced block %d", blockNumber, head)
		}
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.SendTransaction(ctx, tx)
}

// TransactionBlock returns the block a transaction was included in. A nil
// block with a nil error means the node does not know the transaction yet or
// it is still pending.
func (c *Client) TransactionBlock(ctx context.Context, hash common.Hash) (*big.Int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var raw *struct {
		BlockNumber *hexutil.Big `json:"blockNumber"`
	}
	if err := c.rpcClient.CallContext(ctx, &raw, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	if raw == nil || raw.BlockNumber == nil {
		return nil, nil
	}
	return raw.BlockNumber.ToInt(), nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ethClient.FilterLogs(ctx, query)
}
