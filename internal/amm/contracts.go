package amm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapPipeline/internal/txpipeline"
)

const (
	// DefaultFee is the 0.3% pool tier, used when a caller passes fee 0.
	DefaultFee uint32 = 3000
	// DefaultGasLimitMultiplier pads swap gas estimates, which vary between
	// otherwise identical calls.
	DefaultGasLimitMultiplier = 1.2
	// DefaultDeadline is added to the latest block time when a swap has no
	// deadline.
	DefaultDeadline = 10 * time.Minute
)

// Contracts holds the deployment the AMM components talk to.
type Contracts struct {
	Quoter  common.Address
	Router  common.Address
	Factory common.Address
	WETH    common.Address
	DAI     common.Address
}

// DefaultContracts returns the Ethereum mainnet deployment.
func DefaultContracts() Contracts {
	return Contracts{
		Quoter:  common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6"),
		Router:  common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
		Factory: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		WETH:    common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		DAI:     common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
	}
}

// Reader runs read-only contract calls.
type Reader interface {
	Call(ctx context.Context, from, to common.Address, data []byte, value *big.Int) ([]byte, error)
}

// Ledger is what the AMM components need from a ledger adapter.
// ledger.Adapter implements it.
type Ledger interface {
	Reader
	Submit(ctx context.Context, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions) (common.Hash, error)
	Await(ctx context.Context, hash common.Hash, timeout time.Duration, blocksToWait *uint64) (uint64, error)
	Nonce(ctx context.Context, account common.Address) (uint64, error)
	LatestHeader(ctx context.Context) (*types.Header, error)
}

// submit sends req and, when wait is positive, blocks until it is included.
func submit(ctx context.Context, l Ledger, req txpipeline.Request, key *ecdsa.PrivateKey, opts txpipeline.SendOptions, wait time.Duration) (common.Hash, error) {
	hash, err := l.Submit(ctx, req, key, opts)
	if err != nil {
		return common.Hash{}, err
	}
	if wait > 0 {
		if _, err := l.Await(ctx, hash, wait, nil); err != nil {
			return hash, err
		}
	}
	return hash, nil
}
