package chain

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
)

type fakeEth struct {
	syncing  bool
	gasPrice int64
	baseFee  int64
	included map[common.Hash]uint64
}

func (f *fakeEth) Syncing() (interface{}, error) {
	if f.syncing {
		return map[string]hexutil.Uint64{"startingBlock": 0, "currentBlock": 5, "highestBlock": 100}, nil
	}
	return false, nil
}

func (f *fakeEth) GetBalance(_ common.Address, _ string) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(1_000_000)), nil
}

func (f *fakeEth) GasPrice() (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(f.gasPrice)), nil
}

func (f *fakeEth) GetBlockByNumber(_ string, _ bool) (*types.Header, error) {
	return &types.Header{
		Number:     big.NewInt(42),
		Difficulty: big.NewInt(0),
		Time:       1700000000,
		BaseFee:    big.NewInt(f.baseFee),
	}, nil
}

func (f *fakeEth) GetTransactionByHash(hash common.Hash) (map[string]interface{}, error) {
	block, ok := f.included[hash]
	if !ok {
		return nil, nil
	}
	return map[string]interface{}{
		"hash":        hash,
		"blockNumber": hexutil.Uint64(block),
	}, nil
}

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	return 42
}

func (f *fakeEth) Call(_ map[string]interface{}, _ string) (hexutil.Bytes, error) {
	return hexutil.Bytes{0xbe, 0xef}, nil
}

func newTestClient(t *testing.T, svc *fakeEth, checkSync bool) *Client {
	t.Helper()

	server := rpc.NewServer()
	if err := server.RegisterName("eth", svc); err != nil {
		t.Fatalf("register service: %v", err)
	}
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})

	client, err := NewClient(context.Background(), Config{
		RPCURL:    httpServer.URL,
		Timeout:   5 * time.Second,
		Headers:   map[string]string{"X-Api-Key": "secret"},
		CheckSync: checkSync,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestTransactionBlock(t *testing.T) {
	included := common.HexToHash("0x01")
	client := newTestClient(t, &fakeEth{included: map[common.Hash]uint64{included: 77}}, false)

	block, err := client.TransactionBlock(context.Background(), included)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block == nil || block.Uint64() != 77 {
		t.Fatalf("block mismatch: %v", block)
	}

	block, err = client.TransactionBlock(context.Background(), common.HexToHash("0x02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if block != nil {
		t.Fatalf("expected unknown transaction, got block %s", block)
	}
}

func TestSyncingNodeGatesReads(t *testing.T) {
	client := newTestClient(t, &fakeEth{syncing: true}, true)

	if _, err := client.Balance(context.Background(), common.Address{}); !errors.Is(err, chainerr.ErrSyncingNode) {
		t.Fatalf("expected syncing error, got %v", err)
	}
	if _, err := client.Nonce(context.Background(), common.Address{}); !errors.Is(err, chainerr.ErrSyncingNode) {
		t.Fatalf("expected syncing error, got %v", err)
	}

	unchecked := newTestClient(t, &fakeEth{syncing: true}, false)
	balance, err := unchecked.Balance(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Int64() != 1_000_000 {
		t.Fatalf("balance mismatch: %s", balance)
	}
}

func TestGasPriceFlooredAtBaseFee(t *testing.T) {
	client := newTestClient(t, &fakeEth{gasPrice: 5, baseFee: 9}, false)
	price, err := client.GasPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Int64() != 9 {
		t.Fatalf("expected base fee floor 9, got %s", price)
	}

	client = newTestClient(t, &fakeEth{gasPrice: 15, baseFee: 9}, false)
	price, err = client.GasPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.Int64() != 15 {
		t.Fatalf("expected node price 15, got %s", price)
	}
}

func TestHeaders(t *testing.T) {
	client := newTestClient(t, &fakeEth{}, false)
	client.SetHeader("Authorization", "Bearer token")

	if got := client.Header("X-Api-Key"); got != "secret" {
		t.Fatalf("header mismatch: %q", got)
	}
	if got := client.Header("Missing"); got != "" {
		t.Fatalf("expected empty header, got %q", got)
	}
	want := []string{"Authorization", "X-Api-Key"}
	if got := client.HeaderKeys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys mismatch: %v != %v", got, want)
	}
}

func TestBlockTimestampCached(t *testing.T) {
	client := newTestClient(t, &fakeEth{baseFee: 1}, false)
	ts, err := client.BlockTimestamp(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 1700000000 {
		t.Fatalf("timestamp mismatch: %d", ts)
	}
	client.mu.RLock()
	_, ok := client.tsCache[42]
	client.mu.RUnlock()
	if !ok {
		t.Fatalf("expected cached timestamp")
	}
}

func TestCallContractRejectsBlockAboveHead(t *testing.T) {
	client := newTestClient(t, &fakeEth{}, true)
	to := common.HexToAddress("0x01")
	msg := ethereum.CallMsg{To: &to}

	if _, err := client.CallContract(context.Background(), msg, big.NewInt(43)); !errors.Is(err, chainerr.ErrBadInput) {
		t.Fatalf("expected bad input for block above head, got %v", err)
	}
	out, err := client.CallContract(context.Background(), msg, big.NewInt(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out, []byte{0xbe, 0xef}) {
		t.Fatalf("call output mismatch: %x", out)
	}
}
