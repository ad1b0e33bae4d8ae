package amm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/txpipeline"
)

func TestIsApprovedThreshold(t *testing.T) {
	t.Parallel()
	half := new(big.Int).Lsh(big.NewInt(1), 255)

	cases := []struct {
		allowance *big.Int
		want      bool
	}{
		{allowance: big.NewInt(0), want: false},
		{allowance: new(big.Int).Sub(half, big.NewInt(1)), want: false},
		{allowance: half, want: true},
		{allowance: MaxAllowance, want: true},
	}
	for _, tc := range cases {
		f := newFakeLedger()
		f.returns(t, erc20ABI, "allowance", tc.allowance)
		tokens := NewTokens(f, common.Address{}, nil)
		got, err := tokens.IsApproved(context.Background(), testDAI, common.Address{1}, testRouter)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, tc.allowance.String())
	}
}

func TestTokenMetaFallsBackToBytes32(t *testing.T) {
	t.Parallel()
	f := newFakeLedger()
	f.returns(t, erc20ABI, "decimals", uint8(18))
	f.returns(t, erc20ABI, "name", "Maker")
	var symbol [32]byte
	copy(symbol[:], "MKR")
	f.returns(t, erc20Bytes32ABI, "symbol", symbol)

	mkr := common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2")
	tokens := NewTokens(f, common.Address{}, nil)
	meta, err := tokens.TokenMeta(context.Background(), mkr)
	require.NoError(t, err)
	require.Equal(t, uint8(18), meta.Decimals)
	require.Equal(t, "MKR", meta.Symbol)
	require.Equal(t, "Maker", meta.Name)

	before := len(f.calls)
	_, err = tokens.TokenMeta(context.Background(), mkr)
	require.NoError(t, err)
	require.Equal(t, before, len(f.calls))
	require.Equal(t, uint8(18), tokens.Decimals(mkr))
	require.Equal(t, uint8(18), tokens.Decimals(testDAI))
}

func TestTransferAndWrap(t *testing.T) {
	t.Parallel()
	f := newFakeLedger()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tokens := NewTokens(f, common.Address{}, nil)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err = tokens.Transfer(context.Background(), key, testDAI, to, ether(5), txpipeline.SendOptions{}, 0)
	require.NoError(t, err)
	args := decodeInput(t, erc20ABI, "transfer", f.submitted[0].req.Data)
	require.Equal(t, to, args[0].(common.Address))
	require.Equal(t, 0, args[1].(*big.Int).Cmp(ether(5)))

	_, err = tokens.Wrap(context.Background(), key, testWETH, ether(2), txpipeline.SendOptions{}, 0)
	require.NoError(t, err)
	wrap := f.submitted[1]
	require.Equal(t, testWETH, wrap.req.To)
	require.Equal(t, 0, wrap.req.Value.Cmp(ether(2)))
	require.Equal(t, selectorOf(t, wethABI, "deposit"), common.Bytes2Hex(wrap.req.Data[:4]))

	_, err = tokens.Unwrap(context.Background(), key, testWETH, ether(1), txpipeline.SendOptions{}, 0)
	require.NoError(t, err)
	args = decodeInput(t, wethABI, "withdraw", f.submitted[2].req.Data)
	require.Equal(t, 0, args[0].(*big.Int).Cmp(ether(1)))

	_, err = tokens.Unwrap(context.Background(), key, testWETH, big.NewInt(0), txpipeline.SendOptions{}, 0)
	require.ErrorIs(t, err, chainerr.ErrBadInput)
	require.Len(t, f.submitted, 3)
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()
	cases := []struct {
		value    *big.Int
		decimals uint8
		want     string
	}{
		{value: nil, decimals: 18, want: "0"},
		{value: big.NewInt(7), decimals: 0, want: "7"},
		{value: big.NewInt(1_500_000), decimals: 6, want: "1.500000"},
		{value: big.NewInt(-5), decimals: 2, want: "-0.05"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, FormatAmount(tc.value, tc.decimals))
	}
}
