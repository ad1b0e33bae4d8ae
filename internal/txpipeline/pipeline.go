package txpipeline

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/fees"
)

// Config holds pipeline settings.
type Config struct {
	// CheckSync attaches an affordable gas price and limit to simulated calls.
	CheckSync bool
}

// Request describes a contract call or transfer to submit.
type Request struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Pipeline builds, prices, signs, and broadcasts EIP-1559 transactions.
type Pipeline struct {
	node   Node
	cfg    Config
	logger *zap.Logger
}

// New builds a Pipeline with its dependencies.
func New(node Node, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{node: node, cfg: cfg, logger: logger}
}

type accountState struct {
	balance *big.Int
	nonce   uint64
	header  *types.Header
	chainID *big.Int
}

func (p *Pipeline) readAccount(ctx context.Context, from common.Address) (accountState, error) {
	var state accountState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		balance, err := p.node.Balance(gctx, from)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		state.balance = balance
		return nil
	})
	g.Go(func() error {
		nonce, err := p.node.Nonce(gctx, from)
		if err != nil {
			return fmt.Errorf("get nonce: %w", err)
		}
		state.nonce = nonce
		return nil
	})
	g.Go(func() error {
		header, err := p.node.LatestHeader(gctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		state.header = header
		return nil
	})
	g.Go(func() error {
		chainID, err := p.node.ChainID(gctx)
		if err != nil {
			return fmt.Errorf("get chain id: %w", err)
		}
		state.chainID = chainID
		return nil
	})
	if err := g.Wait(); err != nil {
		return accountState{}, err
	}
	return state, nil
}

// BuildAndSubmit prices req against the current base fee and the sender's
// balance, signs it with key, and broadcasts it. Nothing is sent unless every
// check passes.
//
// The nonce is read once. A caller queueing a dependent transaction without
// waiting must pass the next nonce explicitly.
func (p *Pipeline) BuildAndSubmit(ctx context.Context, req Request, key *ecdsa.PrivateKey, opts SendOptions) (*types.Transaction, error) {
	if key == nil {
		return nil, chainerr.BadInput("private key is required")
	}
	if opts.NetworkID != nil {
		return nil, chainerr.BadInput("network id option is invalid for eip-1559 transactions")
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	state, err := p.readAccount(ctx, from)
	if err != nil {
		return nil, err
	}

	baseFee, err := fees.BaseFee(state.header)
	if err != nil {
		return nil, err
	}
	if err := fees.CheckIntrinsic(state.balance); err != nil {
		return nil, err
	}

	pair := fees.DefaultFees(baseFee)
	if opts.MaxFeeMultiplier != nil {
		scaled, err := fees.ScaleBaseFee(baseFee, *opts.MaxFeeMultiplier)
		if err != nil {
			return nil, err
		}
		pair.MaxFee = scaled
	}
	if opts.MaxFee != nil {
		pair.MaxFee = new(big.Int).Set(opts.MaxFee)
	}
	if opts.PriorityFee != nil {
		pair.PriorityFee = new(big.Int).Set(opts.PriorityFee)
	}
	nonce := state.nonce
	if opts.Nonce != nil {
		nonce = *opts.Nonce
	}

	to := req.To
	var gasLimit uint64
	if opts.GasLimit != nil {
		gasLimit = *opts.GasLimit
	} else {
		gasLimit, err = p.node.EstimateGas(ctx, ethereum.CallMsg{
			From:       from,
			To:         &to,
			GasFeeCap:  pair.MaxFee,
			GasTipCap:  pair.PriorityFee,
			Value:      value,
			Data:       req.Data,
			AccessList: opts.AccessList,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate gas: %w", err)
		}
	}
	gasLimit, err = fees.ScaleGasLimit(gasLimit, opts.gasLimitMultiplier())
	if err != nil {
		return nil, err
	}

	maxFee, err := fees.Affordable(state.balance, baseFee, pair.MaxFee, gasLimit)
	if err != nil {
		return nil, err
	}
	if maxFee.Cmp(pair.MaxFee) != 0 {
		p.logger.Info("max fee downscaled to balance",
			zap.String("from", from.Hex()),
			zap.String("requested_max_fee", pair.MaxFee.String()),
			zap.String("max_fee", maxFee.String()),
			zap.Uint64("gas_limit", gasLimit),
		)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:    state.chainID,
		Nonce:      nonce,
		GasTipCap:  pair.PriorityFee,
		GasFeeCap:  maxFee,
		Gas:        gasLimit,
		To:         &to,
		Value:      value,
		Data:       req.Data,
		AccessList: opts.AccessList,
	})
	if err := validateUnsigned(tx); err != nil {
		return nil, err
	}

	signer := types.LatestSignerForChainID(state.chainID)
	signed, err := types.SignTx(tx, signer, key)
	if err != nil {
		return nil, chainerr.BadInput("sign transaction: %v", err)
	}
	if err := validateSigned(signed, signer, from); err != nil {
		return nil, err
	}

	if err := p.node.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send raw transaction: %w", err)
	}

	p.logger.Debug("transaction sent",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit),
		zap.String("max_fee", maxFee.String()),
		zap.String("priority_fee", pair.PriorityFee.String()),
		zap.Int("data_len", len(req.Data)),
	)

	return signed, nil
}

// Simulate executes a read-only call from the given account. With sync
// checking on, the call carries the largest gas allowance the account's
// balance sustains, since some nodes refuse to execute calls without one.
func (p *Pipeline) Simulate(ctx context.Context, from, to common.Address, data []byte, value *big.Int, block *big.Int) ([]byte, error) {
	msg := ethereum.CallMsg{From: from, To: &to, Data: data, Value: value}

	if p.cfg.CheckSync {
		balance, err := p.node.Balance(ctx, from)
		if err != nil {
			return nil, fmt.Errorf("get balance: %w", err)
		}
		if err := fees.CheckIntrinsic(balance); err != nil {
			return nil, err
		}
		gas, err := fees.SimulatedGasFor(ctx, p.node, balance)
		if err != nil {
			return nil, err
		}
		msg.Gas = gas.Limit
		msg.GasPrice = gas.Price
	}

	out, err := p.node.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", to.Hex(), err)
	}
	return out, nil
}
