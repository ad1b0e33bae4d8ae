package txpipeline

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/txpipeline/mock"
)

const testInterval = 5 * time.Millisecond

func TestWait(t *testing.T) {
	t.Parallel()

	hash := common.HexToHash("0xabc")

	t.Run("returns on first inclusion", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		gomock.InOrder(
			node.EXPECT().TransactionBlock(gomock.Any(), hash).Return(nil, nil),
			node.EXPECT().TransactionBlock(gomock.Any(), hash).Return(big.NewInt(12), nil),
		)

		block, err := waiter.Wait(context.Background(), hash, time.Second, nil)
		require.NoError(t, err)
		require.Equal(t, uint64(12), block)
	})

	t.Run("waits for confirmations", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		depth := uint64(3)
		node.EXPECT().TransactionBlock(gomock.Any(), hash).Return(big.NewInt(10), nil).Times(3)
		gomock.InOrder(
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(11), nil),
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(12), nil),
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(13), nil),
		)

		block, err := waiter.Wait(context.Background(), hash, time.Second, &depth)
		require.NoError(t, err)
		require.Equal(t, uint64(10), block)
	})

	t.Run("times out while pending", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		node.EXPECT().TransactionBlock(gomock.Any(), hash).Return(nil, nil).AnyTimes()

		_, err := waiter.Wait(context.Background(), hash, 30*time.Millisecond, nil)
		require.ErrorIs(t, err, chainerr.ErrTransactionTimeout)
	})

	t.Run("poll error ends the wait", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		rpcErr := errors.New("upstream 502")
		node.EXPECT().TransactionBlock(gomock.Any(), hash).Return(nil, rpcErr)

		_, err := waiter.Wait(context.Background(), hash, time.Second, nil)
		require.ErrorIs(t, err, rpcErr)
		require.NotErrorIs(t, err, chainerr.ErrTransactionTimeout)
	})

	t.Run("parent cancellation", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := waiter.Wait(ctx, hash, time.Second, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestConfirmedNeverUnderflows(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.Uint64Range(0, 1000).Draw(t, "current")
		depth := rapid.Uint64Range(0, 1000).Draw(t, "depth")
		included := rapid.Uint64Range(0, 1000).Draw(t, "included")

		got := Confirmed(current, depth, included)
		want := current > depth && int64(current)-int64(depth) >= int64(included)
		if got != want {
			t.Fatalf("Confirmed(%d, %d, %d) = %v, want %v", current, depth, included, got, want)
		}
	})
}

func TestWaitForNextBlock(t *testing.T) {
	t.Parallel()

	t.Run("head advances", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		gomock.InOrder(
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(7), nil),
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(0), errors.New("timeout")),
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(7), nil),
			node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(8), nil),
		)

		require.NoError(t, waiter.WaitForNextBlock(context.Background(), time.Second))
	})

	t.Run("no block produced", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		node := mock.NewMockNode(ctrl)
		waiter := NewWaiter(node, testInterval, nil)

		node.EXPECT().BlockNumber(gomock.Any()).Return(uint64(7), nil).AnyTimes()

		err := waiter.WaitForNextBlock(context.Background(), 30*time.Millisecond)
		require.ErrorIs(t, err, chainerr.ErrNoBlockProduced)
		var noBlock *chainerr.NoBlockProducedError
		require.ErrorAs(t, err, &noBlock)
		require.Equal(t, 30*time.Millisecond, noBlock.Timeout)
	})
}
