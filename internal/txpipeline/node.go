package txpipeline

//go:generate mockgen -source=node.go -destination=mock/node_mock.go -package=mock

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Node is the part of the JSON-RPC surface the pipeline and waiter consume.
// *chain.Client implements it.
type Node interface {
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	Nonce(ctx context.Context, account common.Address) (uint64, error)
	LatestHeader(ctx context.Context) (*types.Header, error)
	ChainID(ctx context.Context) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionBlock(ctx context.Context, hash common.Hash) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}
