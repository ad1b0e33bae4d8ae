package amm

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"swapPipeline/internal/txpipeline"
)

var (
	testWETH   = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testDAI    = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	testPool   = common.HexToAddress("0xC2e9F25Be6257c210d7Adf0D4Cd6E3E881ba25f8")
	testRouter = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
)

type handler func(to common.Address, data []byte) ([]byte, error)

type submission struct {
	req  txpipeline.Request
	opts txpipeline.SendOptions
	hash common.Hash
}

// fakeLedger answers calls by selector and records every write.
type fakeLedger struct {
	mu         sync.Mutex
	handlers   map[string]handler
	calls      []string
	events     []string
	submitted  []submission
	nonce      uint64
	headerTime uint64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{handlers: make(map[string]handler)}
}

func (f *fakeLedger) on(t *testing.T, l *lazyABI, method string, h handler) {
	t.Helper()
	parsed, err := l.get()
	require.NoError(t, err)
	f.handlers[hex.EncodeToString(parsed.Methods[method].ID)] = h
}

// returns registers a handler that always answers with the packed outputs.
func (f *fakeLedger) returns(t *testing.T, l *lazyABI, method string, values ...interface{}) {
	t.Helper()
	out := encodeOutput(t, l, method, values...)
	f.on(t, l, method, func(common.Address, []byte) ([]byte, error) { return out, nil })
}

func (f *fakeLedger) Call(_ context.Context, _, to common.Address, data []byte, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) < 4 {
		return nil, fmt.Errorf("short calldata")
	}
	sel := hex.EncodeToString(data[:4])
	f.calls = append(f.calls, sel)
	h, ok := f.handlers[sel]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s to %s", sel, to.Hex())
	}
	return h(to, data)
}

func (f *fakeLedger) Submit(_ context.Context, req txpipeline.Request, _ *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := common.BigToHash(big.NewInt(int64(len(f.submitted) + 1)))
	f.submitted = append(f.submitted, submission{req: req, opts: opts, hash: hash})
	f.events = append(f.events, "submit "+req.To.Hex())
	return hash, nil
}

func (f *fakeLedger) Await(_ context.Context, hash common.Hash, _ time.Duration, _ *uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "await "+hash.Hex())
	return 100, nil
}

func (f *fakeLedger) Nonce(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeLedger) LatestHeader(context.Context) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "header")
	return &types.Header{Number: big.NewInt(1), Time: f.headerTime}, nil
}

func encodeOutput(t *testing.T, l *lazyABI, method string, values ...interface{}) []byte {
	t.Helper()
	parsed, err := l.get()
	require.NoError(t, err)
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return out
}

func decodeInput(t *testing.T, l *lazyABI, method string, data []byte) []interface{} {
	t.Helper()
	parsed, err := l.get()
	require.NoError(t, err)
	values, err := parsed.Methods[method].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return values
}

func selectorOf(t *testing.T, l *lazyABI, method string) string {
	t.Helper()
	parsed, err := l.get()
	require.NoError(t, err)
	return hex.EncodeToString(parsed.Methods[method].ID)
}

// withWETHDAIPool registers a factory and pool where token0 is WETH and
// token1 is DAI.
func withWETHDAIPool(t *testing.T, f *fakeLedger) {
	t.Helper()
	f.returns(t, factoryABI, "getPool", testPool)
	f.returns(t, poolABI, "token0", testWETH)
	f.returns(t, poolABI, "token1", testDAI)
}

func testContracts() Contracts {
	c := DefaultContracts()
	c.Router = testRouter
	return c
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}
