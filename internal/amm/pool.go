package amm

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
)

const poolCacheSize = 512

type poolTokens struct {
	token0, token1 common.Address
}

// Pools resolves pool addresses, token order, and prices through the
// factory and pool contracts.
type Pools struct {
	reader    Reader
	contracts Contracts
	caller    common.Address
	order     *lru.Cache[common.Address, poolTokens]
	logger    *zap.Logger
}

// NewPools builds a Pools. caller is the from address of every read.
func NewPools(reader Reader, contracts Contracts, caller common.Address, logger *zap.Logger) *Pools {
	if logger == nil {
		logger = zap.NewNop()
	}
	order, _ := lru.New[common.Address, poolTokens](poolCacheSize)
	return &Pools{
		reader:    reader,
		contracts: contracts,
		caller:    caller,
		order:     order,
		logger:    logger,
	}
}

// As returns a copy that reads from caller. The token order cache is shared.
func (p *Pools) As(caller common.Address) *Pools {
	out := *p
	out.caller = caller
	return &out
}

func (p *Pools) call(ctx context.Context, to common.Address, l *lazyABI, method string, args ...interface{}) ([]byte, error) {
	data, err := pack(l, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := p.reader.Call(ctx, p.caller, to, data, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

// PoolAddress asks the factory for the pool of tokenA, tokenB, and fee. Fee 0
// selects DefaultFee.
func (p *Pools) PoolAddress(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	if fee == 0 {
		fee = DefaultFee
	}
	if err := CheckFee(fee); err != nil {
		return common.Address{}, err
	}
	out, err := p.call(ctx, p.contracts.Factory, factoryABI, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	if len(out) >= 32 && bytes.Equal(out, make([]byte, len(out))) {
		return common.Address{}, chainerr.BadResponse("No such Uniswap pool")
	}
	values, err := unpack(factoryABI, "getPool", out)
	if err != nil {
		return common.Address{}, err
	}
	pool, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, chainerr.ContractCall(fmt.Sprintf("getPool: %v", err))
	}
	p.logger.Debug("pool resolved",
		zap.String("token_a", tokenA.Hex()),
		zap.String("token_b", tokenB.Hex()),
		zap.Uint32("fee", fee),
		zap.String("pool", pool.Hex()),
	)
	return pool, nil
}

// PoolTokens returns the pool's canonical token0 and token1. Both are
// immutable, so results are cached per pool.
func (p *Pools) PoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	if cached, ok := p.order.Get(pool); ok {
		return cached.token0, cached.token1, nil
	}
	token0, err := p.poolToken(ctx, pool, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1, err := p.poolToken(ctx, pool, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	p.order.Add(pool, poolTokens{token0: token0, token1: token1})
	return token0, token1, nil
}

func (p *Pools) poolToken(ctx context.Context, pool common.Address, method string) (common.Address, error) {
	out, err := p.call(ctx, pool, poolABI, method)
	if err != nil {
		return common.Address{}, err
	}
	values, err := unpack(poolABI, method, out)
	if err != nil {
		return common.Address{}, err
	}
	token, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, chainerr.ContractCall(fmt.Sprintf("%s: %v", method, err))
	}
	return token, nil
}

// Slot0 returns the raw slot0 output: sqrtPriceX96, tick, observation
// fields, feeProtocol, and unlocked, each in its own word.
func (p *Pools) Slot0(ctx context.Context, pool common.Address) ([]byte, error) {
	return p.call(ctx, pool, poolABI, "slot0")
}

// SqrtPrice reads the pool's current sqrtPriceX96, the low 160 bits of the
// first slot0 word.
func (p *Pools) SqrtPrice(ctx context.Context, pool common.Address) (*big.Int, error) {
	out, err := p.Slot0(ctx, pool)
	if err != nil {
		return nil, err
	}
	if len(out) < 32 {
		return nil, chainerr.ContractCall(fmt.Sprintf("slot0 returned %d bytes", len(out)))
	}
	return new(big.Int).SetBytes(out[12:32]), nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
