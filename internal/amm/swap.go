package amm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/metrics"
	"swapPipeline/internal/txpipeline"
)

// SwapRequest describes an exact-input single-pool swap. Nil pointer fields
// take defaults: the deadline is the latest block time plus DefaultDeadline,
// the minimum output comes from the price limit, and the router comes from
// the configured contracts.
type SwapRequest struct {
	TokenIn        common.Address
	TokenOut       common.Address
	Fee            uint32
	AmountIn       *big.Int
	Deadline       *big.Int
	AmountOutMin   *big.Int
	SqrtPriceLimit *big.Int
	Router         *common.Address
	Options        txpipeline.SendOptions
	// Wait bounds how long to wait for inclusion. Zero returns right after
	// broadcast.
	Wait time.Duration
}

// exactInputSingleParams mirrors the router's ExactInputSingleParams tuple.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Executor sends swaps through the router, approving the input token first
// when needed.
type Executor struct {
	ledger    Ledger
	contracts Contracts
	quotes    *QuoteEngine
	tokens    *Tokens
	logger    *zap.Logger
}

// NewExecutor builds an Executor over l. m may be nil.
func NewExecutor(l Ledger, contracts Contracts, m *metrics.Pipeline, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := NewTokens(l, common.Address{}, logger)
	return &Executor{
		ledger:    l,
		contracts: contracts,
		quotes:    NewQuoteEngine(l, contracts, common.Address{}, m, logger).WithTokens(tokens),
		tokens:    tokens,
		logger:    logger,
	}
}

// Swap trades req.AmountIn of req.TokenIn for req.TokenOut.
//
// When the router lacks an allowance an approval goes out first. Without a
// wait the swap takes the approval's nonce plus one so both can sit in the
// mempool together; with a wait the approval is confirmed before the swap is
// sent.
func (e *Executor) Swap(ctx context.Context, key *ecdsa.PrivateKey, req SwapRequest) (common.Hash, error) {
	return e.swap(ctx, key, req, false)
}

// SwapETHIn swaps native currency: the input token is the wrapped-native
// contract and the router receives AmountIn as the transaction value. No
// approval is needed.
func (e *Executor) SwapETHIn(ctx context.Context, key *ecdsa.PrivateKey, req SwapRequest) (common.Hash, error) {
	req.TokenIn = e.contracts.WETH
	return e.swap(ctx, key, req, true)
}

func (e *Executor) swap(ctx context.Context, key *ecdsa.PrivateKey, req SwapRequest, nativeIn bool) (common.Hash, error) {
	fee := req.Fee
	if fee == 0 {
		fee = DefaultFee
	}
	if err := CheckFee(fee); err != nil {
		return common.Hash{}, err
	}
	limit := req.SqrtPriceLimit
	if limit == nil {
		limit = new(big.Int)
	}
	if err := CheckPriceLimit(limit); err != nil {
		return common.Hash{}, err
	}
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return common.Hash{}, chainerr.BadInput("amount in must be positive")
	}
	if err := CheckUint256("amount in", req.AmountIn); err != nil {
		return common.Hash{}, err
	}
	if err := CheckUint256("amount out min", req.AmountOutMin); err != nil {
		return common.Hash{}, err
	}
	if err := CheckUint256("deadline", req.Deadline); err != nil {
		return common.Hash{}, err
	}
	if key == nil {
		return common.Hash{}, chainerr.BadInput("missing signing key")
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)
	router := e.contracts.Router
	if req.Router != nil {
		router = *req.Router
	}

	deadline := req.Deadline
	if deadline == nil {
		header, err := e.ledger.LatestHeader(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("get latest header: %w", err)
		}
		deadline = new(big.Int).SetUint64(header.Time + uint64(DefaultDeadline/time.Second))
	}

	amountOutMin := req.AmountOutMin
	if amountOutMin == nil {
		var err error
		amountOutMin, err = e.quotes.As(sender).MinimumAmountOut(ctx, req.SqrtPriceLimit, req.AmountIn, req.TokenIn, req.TokenOut, fee)
		if err != nil {
			return common.Hash{}, err
		}
	}

	data, err := pack(routerABI, "exactInputSingle", exactInputSingleParams{
		TokenIn:           req.TokenIn,
		TokenOut:          req.TokenOut,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		Recipient:         sender,
		Deadline:          deadline,
		AmountIn:          req.AmountIn,
		AmountOutMinimum:  amountOutMin,
		SqrtPriceLimitX96: limit,
	})
	if err != nil {
		return common.Hash{}, err
	}

	opts := req.Options.WithDefaultGasLimitMultiplier(DefaultGasLimitMultiplier)

	var value *big.Int
	if nativeIn {
		value = req.AmountIn
	} else {
		opts, err = e.ensureApproved(ctx, key, sender, req.TokenIn, router, opts, req.Wait)
		if err != nil {
			return common.Hash{}, err
		}
	}

	hash, err := submit(ctx, e.ledger, txpipeline.Request{To: router, Data: data, Value: value}, key, opts, req.Wait)
	if err != nil {
		return hash, fmt.Errorf("swap: %w", err)
	}
	e.logger.Info("swap sent",
		zap.String("token_in", req.TokenIn.Hex()),
		zap.String("token_out", req.TokenOut.Hex()),
		zap.Uint32("fee", fee),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("amount_out_min", amountOutMin.String()),
		zap.String("tx_hash", hash.Hex()),
	)
	return hash, nil
}

// ensureApproved approves router for token when needed and returns the
// options the swap itself should use.
func (e *Executor) ensureApproved(ctx context.Context, key *ecdsa.PrivateKey, sender, token, router common.Address, opts txpipeline.SendOptions, wait time.Duration) (txpipeline.SendOptions, error) {
	tokens := e.tokens.As(sender)
	approved, err := tokens.IsApproved(ctx, token, sender, router)
	if err != nil {
		return opts, fmt.Errorf("check allowance: %w", err)
	}
	if approved {
		return opts, nil
	}

	e.logger.Debug("approving router", zap.String("token", token.Hex()), zap.String("router", router.Hex()))
	nonce, err := e.ledger.Nonce(ctx, sender)
	if err != nil {
		return opts, fmt.Errorf("get nonce: %w", err)
	}
	if _, err := tokens.Approve(ctx, key, token, router, opts, wait); err != nil {
		return opts, err
	}
	if wait == 0 {
		opts = opts.WithNonce(nonce + 1)
	}
	return opts, nil
}

// Quotes exposes the executor's quote engine.
func (e *Executor) Quotes() *QuoteEngine {
	return e.quotes
}

// Tokens exposes the executor's token helper.
func (e *Executor) Tokens() *Tokens {
	return e.tokens
}
