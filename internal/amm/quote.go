package amm

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/metrics"
)

// QuoteRequest describes an exact-input single-pool swap to price.
type QuoteRequest struct {
	TokenIn  common.Address
	TokenOut common.Address
	// Fee 0 selects DefaultFee.
	Fee      uint32
	AmountIn *big.Int
	// SqrtPriceLimit nil or 0 means no limit.
	SqrtPriceLimit *big.Int
}

// Quote is the quoter's answer together with the bound it was checked
// against.
type Quote struct {
	AmountOut    *big.Int
	AmountOutMin *big.Int
}

// QuoteEngine prices swaps through the quoter contract and derives the
// minimum output a price limit implies.
type QuoteEngine struct {
	reader    Reader
	pools     *Pools
	contracts Contracts
	caller    common.Address
	tokens    *Tokens
	metrics   *metrics.Pipeline
	logger    *zap.Logger
}

// NewQuoteEngine builds a QuoteEngine. m may be nil.
func NewQuoteEngine(reader Reader, contracts Contracts, caller common.Address, m *metrics.Pipeline, logger *zap.Logger) *QuoteEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteEngine{
		reader:    reader,
		pools:     NewPools(reader, contracts, caller, logger),
		contracts: contracts,
		caller:    caller,
		metrics:   m,
		logger:    logger,
	}
}

// As returns a copy that reads from caller. Caches are shared.
func (q *QuoteEngine) As(caller common.Address) *QuoteEngine {
	out := *q
	out.caller = caller
	out.pools = q.pools.As(caller)
	return &out
}

// WithTokens returns a copy that formats logged amounts with the decimals
// cached in t. Without it every token is treated as 18 decimals.
func (q *QuoteEngine) WithTokens(t *Tokens) *QuoteEngine {
	out := *q
	out.tokens = t
	return &out
}

func (q *QuoteEngine) decimals(token common.Address) uint8 {
	if q.tokens == nil {
		return 18
	}
	return q.tokens.Decimals(token)
}

// Pools exposes the pool resolver the engine uses.
func (q *QuoteEngine) Pools() *Pools {
	return q.pools
}

// MinimumAmountOut converts a sqrt price limit into the least output a swap
// of amountIn may return. A nil or zero limit yields 0. The product is
// computed in float64 and truncated, so very large amounts lose precision.
func (q *QuoteEngine) MinimumAmountOut(ctx context.Context, limit, amountIn *big.Int, tokenIn, tokenOut common.Address, fee uint32) (*big.Int, error) {
	if limit == nil || limit.Sign() == 0 {
		return new(big.Int), nil
	}
	if err := CheckPriceLimit(limit); err != nil {
		return nil, err
	}
	if amountIn == nil {
		return nil, chainerr.BadInput("amount in is required")
	}
	if err := CheckUint256("amount in", amountIn); err != nil {
		return nil, err
	}

	price := DecodeSqrtPrice(limit)
	pool, err := q.pools.PoolAddress(ctx, tokenIn, tokenOut, fee)
	if err != nil {
		return nil, err
	}
	_, token1, err := q.pools.PoolTokens(ctx, pool)
	if err != nil {
		return nil, err
	}
	zeroForOne := token1 == tokenOut
	if !zeroForOne {
		price = 1 / price
	}

	amount, _ := new(big.Float).SetInt(amountIn).Float64()
	product := math.Trunc(amount * price)
	if math.IsNaN(product) || math.IsInf(product, 0) || product < 0 {
		return nil, chainerr.BadResponse(fmt.Sprintf("minimum amount out %g is not representable", product))
	}
	out, _ := new(big.Float).SetFloat64(product).Int(nil)
	if out.BitLen() > 256 {
		return nil, chainerr.BadResponse(fmt.Sprintf("minimum amount out %s does not fit in uint256", out))
	}

	q.logger.Debug("minimum amount out",
		zap.String("pool", pool.Hex()),
		zap.Bool("zero_for_one", zeroForOne),
		zap.Float64("price", price),
		zap.String("amount_out_min", out.String()),
	)
	return out, nil
}

// Quote asks the quoter what req would return and rejects the result when it
// falls below the minimum implied by req.SqrtPriceLimit.
func (q *QuoteEngine) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	fee := req.Fee
	if fee == 0 {
		fee = DefaultFee
	}
	if err := CheckFee(fee); err != nil {
		return Quote{}, err
	}
	limit := req.SqrtPriceLimit
	if limit == nil {
		limit = new(big.Int)
	}
	if err := CheckPriceLimit(limit); err != nil {
		return Quote{}, err
	}
	if req.AmountIn == nil {
		return Quote{}, chainerr.BadInput("amount in is required")
	}
	if err := CheckUint256("amount in", req.AmountIn); err != nil {
		return Quote{}, err
	}

	data, err := pack(quoterABI, "quoteExactInputSingle",
		req.TokenIn, req.TokenOut, new(big.Int).SetUint64(uint64(fee)), req.AmountIn, limit)
	if err != nil {
		return Quote{}, err
	}
	out, err := q.reader.Call(ctx, q.caller, q.contracts.Quoter, data, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("call quoteExactInputSingle: %w", err)
	}
	if len(out) < 32 {
		q.reject("bad_response")
		return Quote{}, chainerr.ContractCall("Bad response from swap price")
	}
	amountOut := new(big.Int).SetBytes(out[:32])

	amountOutMin, err := q.MinimumAmountOut(ctx, limit, req.AmountIn, req.TokenIn, req.TokenOut, fee)
	if err != nil {
		q.reject(chainerr.Kind(err))
		return Quote{}, err
	}

	if amountOut.Cmp(amountOutMin) < 0 {
		q.logger.Warn("swap quote below price limit",
			zap.String("amount_in", FormatAmount(req.AmountIn, q.decimals(req.TokenIn))),
			zap.String("token_in", req.TokenIn.Hex()),
			zap.Float64("limit_price", DecodeSqrtPrice(limit)),
			zap.String("expected_at_least", FormatAmount(amountOutMin, q.decimals(req.TokenOut))),
			zap.String("quoted", FormatAmount(amountOut, q.decimals(req.TokenOut))),
		)
		q.reject("liquidity_too_low")
		return Quote{}, chainerr.BadResponse("Liquidity too low")
	}

	return Quote{AmountOut: amountOut, AmountOutMin: amountOutMin}, nil
}

func (q *QuoteEngine) reject(reason string) {
	if q.metrics == nil {
		return
	}
	q.metrics.QuoteRejections.WithLabelValues(reason).Inc()
}
