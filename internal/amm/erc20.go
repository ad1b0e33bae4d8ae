package amm

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/model"
	"swapPipeline/internal/txpipeline"
)

const tokenCacheSize = 1024

var (
	// MaxAllowance is granted by Approve.
	MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// Allowances above half of MaxAllowance count as approved, so a long-lived
	// max approval stays approved as it is spent down.
	approvedThreshold = new(big.Int).Rsh(MaxAllowance, 1)
)

// Tokens wraps the ERC20 calls the swap flow needs.
type Tokens struct {
	ledger Ledger
	caller common.Address
	meta   *lru.Cache[common.Address, model.TokenMeta]
	logger *zap.Logger
}

// NewTokens builds a Tokens over l. caller is the from address of reads.
func NewTokens(l Ledger, caller common.Address, logger *zap.Logger) *Tokens {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, _ := lru.New[common.Address, model.TokenMeta](tokenCacheSize)
	return &Tokens{ledger: l, caller: caller, meta: meta, logger: logger}
}

// As returns a copy that reads from caller. The metadata cache is shared.
func (t *Tokens) As(caller common.Address) *Tokens {
	out := *t
	out.caller = caller
	return &out
}

func (t *Tokens) read(ctx context.Context, token common.Address, l *lazyABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := pack(l, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := t.ledger.Call(ctx, t.caller, token, data, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return unpack(l, method, out)
}

func (t *Tokens) readUint(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	values, err := t.read(ctx, token, erc20ABI, method, args...)
	if err != nil {
		return nil, err
	}
	v, err := asBigInt(values[0])
	if err != nil {
		return nil, chainerr.ContractCall(fmt.Sprintf("%s: %v", method, err))
	}
	return v, nil
}

// BalanceOf returns owner's token balance.
func (t *Tokens) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return t.readUint(ctx, token, "balanceOf", owner)
}

// Allowance returns how much spender may move on owner's behalf.
func (t *Tokens) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return t.readUint(ctx, token, "allowance", owner, spender)
}

// IsApproved reports whether spender holds an effectively unlimited
// allowance from owner.
func (t *Tokens) IsApproved(ctx context.Context, token, owner, spender common.Address) (bool, error) {
	allowance, err := t.Allowance(ctx, token, owner, spender)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(approvedThreshold) > 0, nil
}

// Approve grants spender MaxAllowance over the key holder's token balance.
func (t *Tokens) Approve(ctx context.Context, key *ecdsa.PrivateKey, token, spender common.Address, opts txpipeline.SendOptions, wait time.Duration) (common.Hash, error) {
	data, err := pack(erc20ABI, "approve", spender, MaxAllowance)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := submit(ctx, t.ledger, txpipeline.Request{To: token, Data: data}, key, opts, wait)
	if err != nil {
		return hash, fmt.Errorf("approve %s for %s: %w", token.Hex(), spender.Hex(), err)
	}
	t.logger.Info("approval sent",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("tx_hash", hash.Hex()),
	)
	return hash, nil
}

// Transfer moves amount of token from the key holder to to.
func (t *Tokens) Transfer(ctx context.Context, key *ecdsa.PrivateKey, token, to common.Address, amount *big.Int, opts txpipeline.SendOptions, wait time.Duration) (common.Hash, error) {
	if amount == nil || amount.Sign() < 0 {
		return common.Hash{}, chainerr.BadInput("transfer amount must not be negative")
	}
	data, err := pack(erc20ABI, "transfer", to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := submit(ctx, t.ledger, txpipeline.Request{To: token, Data: data}, key, opts, wait)
	if err != nil {
		return hash, fmt.Errorf("transfer %s: %w", token.Hex(), err)
	}
	t.logger.Info("transfer sent",
		zap.String("token", token.Hex()),
		zap.String("from", crypto.PubkeyToAddress(key.PublicKey).Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", hash.Hex()),
	)
	return hash, nil
}

// TokenMeta loads decimals, symbol, and name. Symbol and name fall back to
// the bytes32 encoding some older tokens use; failures there leave the field
// empty. Results are cached per token.
func (t *Tokens) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := t.meta.Get(token); ok {
		return meta, nil
	}
	meta := model.TokenMeta{Address: token.Hex()}

	values, err := t.read(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, chainerr.ContractCall(fmt.Sprintf("decimals: unsupported type %T", values[0]))
	}
	meta.Decimals = decimals
	meta.Symbol = t.readText(ctx, token, "symbol")
	meta.Name = t.readText(ctx, token, "name")

	t.meta.Add(token, meta)
	return meta, nil
}

func (t *Tokens) readText(ctx context.Context, token common.Address, method string) string {
	if values, err := t.read(ctx, token, erc20ABI, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := t.read(ctx, token, erc20Bytes32ABI, method)
	if err != nil {
		t.logger.Debug("token text call failed", zap.String("token", token.Hex()), zap.String("method", method), zap.Error(err))
		return ""
	}
	if b, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(b[:], "\x00"))
	}
	return ""
}

// Decimals returns cached token decimals, or 18 when the token has not been
// looked up.
func (t *Tokens) Decimals(token common.Address) uint8 {
	if meta, ok := t.meta.Peek(token); ok {
		return meta.Decimals
	}
	return 18
}

// FormatAmount renders value in whole-token units.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(new(big.Int).Abs(value), denom).FloatString(int(decimals))
	if value.Sign() < 0 {
		return "-" + text
	}
	return text
}
