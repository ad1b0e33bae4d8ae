package tron

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"math/bits"
	"net/http"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"swapPipeline/internal/chainerr"
)

const energyFeeParam = "getEnergyFee"

// Transaction is an unsigned or signed wallet-API transaction. Raw holds the
// node's JSON untouched so it can be broadcast back verbatim.
type Transaction struct {
	ID        common.Hash
	Raw       json.RawMessage
	Signature []string
}

// TransactionInfo is the subset of gettransactioninfobyid the client reads.
type TransactionInfo struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"blockNumber"`
	BlockTime   int64  `json:"blockTimeStamp"`
	Fee         uint64 `json:"fee"`
	Receipt     struct {
		Result     string `json:"result"`
		EnergyUsed uint64 `json:"energy_usage_total"`
	} `json:"receipt"`
}

// Included reports whether the transaction is in a block.
func (i *TransactionInfo) Included() bool {
	return i != nil && i.ID != "" && i.BlockNumber > 0
}

// Config configures a Wallet.
type Config struct {
	Endpoint     Endpoint
	Timeout      time.Duration
	PollInterval time.Duration
}

// Wallet talks to the node's /wallet HTTP API for everything the EVM
// compatibility layer does not support: fee-limit estimation, contract
// triggers, broadcast, and confirmation.
type Wallet struct {
	base     string
	headers  map[string]string
	http     *http.Client
	interval time.Duration
	logger   *zap.Logger
}

// NewWallet builds a Wallet for the endpoint's base URL.
func NewWallet(cfg Config, logger *zap.Logger) *Wallet {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Wallet{
		base:     cfg.Endpoint.Base,
		headers:  cfg.Endpoint.Headers(),
		http:     &http.Client{Timeout: timeout},
		interval: interval,
		logger:   logger,
	}
}

// SetHeader adds or replaces a header sent with every wallet request.
func (w *Wallet) SetHeader(key, value string) {
	w.headers[key] = value
}

// HeaderKeys lists the configured header names in sorted order.
func (w *Wallet) HeaderKeys() []string {
	keys := make([]string, 0, len(w.headers))
	for k := range w.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type apiResult struct {
	Result  bool   `json:"result"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// err decodes the node's hex-encoded message when the call failed.
func (r apiResult) err(op string) error {
	if r.Result {
		return nil
	}
	msg := r.Message
	if decoded, err := hex.DecodeString(msg); err == nil && len(decoded) > 0 {
		msg = string(decoded)
	}
	if r.Code != "" {
		msg = r.Code + ": " + msg
	}
	return chainerr.BadResponse(fmt.Sprintf("%s rejected: %s", op, msg))
}

type callParams struct {
	Owner     string `json:"owner_address"`
	Contract  string `json:"contract_address"`
	Data      string `json:"data"`
	CallValue uint64 `json:"call_value,omitempty"`
	FeeLimit  uint64 `json:"fee_limit,omitempty"`
}

func newCallParams(owner, contract common.Address, data []byte) callParams {
	return callParams{
		Owner:    ToHex(owner),
		Contract: ToHex(contract),
		Data:     hex.EncodeToString(data),
	}
}

// EstimateFeeLimit dry-runs the call and prices its energy at the network's
// current energy fee, in sun.
func (w *Wallet) EstimateFeeLimit(ctx context.Context, owner, contract common.Address, data []byte) (uint64, error) {
	var dryRun struct {
		Result     apiResult `json:"result"`
		EnergyUsed uint64    `json:"energy_used"`
	}
	if err := w.post(ctx, "/wallet/triggerconstantcontract", newCallParams(owner, contract, data), &dryRun); err != nil {
		return 0, fmt.Errorf("trigger constant contract: %w", err)
	}
	if err := dryRun.Result.err("trigger constant contract"); err != nil {
		return 0, err
	}

	energyFee, err := w.EnergyFee(ctx)
	if err != nil {
		return 0, err
	}
	hi, limit := bits.Mul64(dryRun.EnergyUsed, energyFee)
	if hi != 0 {
		return 0, chainerr.BadResponse(fmt.Sprintf("fee limit for %d energy at %d sun overflows uint64", dryRun.EnergyUsed, energyFee))
	}
	return limit, nil
}

// EnergyFee reads the current price of one unit of energy in sun.
func (w *Wallet) EnergyFee(ctx context.Context) (uint64, error) {
	var params struct {
		ChainParameter []struct {
			Key   string `json:"key"`
			Value uint64 `json:"value"`
		} `json:"chainParameter"`
	}
	if err := w.post(ctx, "/wallet/getchainparameters", struct{}{}, &params); err != nil {
		return 0, fmt.Errorf("get chain parameters: %w", err)
	}
	for _, p := range params.ChainParameter {
		if p.Key == energyFeeParam {
			return p.Value, nil
		}
	}
	return 0, chainerr.BadResponse("chain parameters missing " + energyFeeParam)
}

// TriggerContract asks the node to build a contract-call transaction.
func (w *Wallet) TriggerContract(ctx context.Context, owner, contract common.Address, data []byte, callValue, feeLimit uint64) (*Transaction, error) {
	params := newCallParams(owner, contract, data)
	params.CallValue = callValue
	params.FeeLimit = feeLimit

	var resp struct {
		Result      apiResult       `json:"result"`
		Transaction json.RawMessage `json:"transaction"`
	}
	if err := w.post(ctx, "/wallet/triggersmartcontract", params, &resp); err != nil {
		return nil, fmt.Errorf("trigger smart contract: %w", err)
	}
	if err := resp.Result.err("trigger smart contract"); err != nil {
		return nil, err
	}

	var head struct {
		TxID string `json:"txID"`
	}
	if err := json.Unmarshal(resp.Transaction, &head); err != nil {
		return nil, chainerr.BadResponse(fmt.Sprintf("decode triggered transaction: %v", err))
	}
	id, err := hex.DecodeString(head.TxID)
	if err != nil || len(id) != common.HashLength {
		return nil, chainerr.BadResponse(fmt.Sprintf("triggered transaction has malformed txID %q", head.TxID))
	}
	return &Transaction{ID: common.BytesToHash(id), Raw: resp.Transaction}, nil
}

// Sign appends a secp256k1 signature over the transaction id.
func (w *Wallet) Sign(tx *Transaction, key *ecdsa.PrivateKey) error {
	sig, err := crypto.Sign(tx.ID.Bytes(), key)
	if err != nil {
		return fmt.Errorf("sign transaction %s: %w", tx.ID.Hex(), err)
	}
	tx.Signature = append(tx.Signature, hex.EncodeToString(sig))
	return nil
}

// Broadcast submits a signed transaction.
func (w *Wallet) Broadcast(ctx context.Context, tx *Transaction) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(tx.Raw, &body); err != nil {
		return fmt.Errorf("decode transaction %s: %w", tx.ID.Hex(), err)
	}
	sig, err := json.Marshal(tx.Signature)
	if err != nil {
		return fmt.Errorf("encode signature: %w", err)
	}
	body["signature"] = sig

	var resp apiResult
	if err := w.post(ctx, "/wallet/broadcasttransaction", body, &resp); err != nil {
		return fmt.Errorf("broadcast transaction: %w", err)
	}
	return resp.err("broadcast transaction")
}

// SendContractCall estimates, builds, signs, and broadcasts a contract call,
// scaling the estimated fee limit by gasLimitMultiplier.
func (w *Wallet) SendContractCall(ctx context.Context, key *ecdsa.PrivateKey, contract common.Address, data []byte, value *big.Int, gasLimitMultiplier float64) (common.Hash, error) {
	if key == nil {
		return common.Hash{}, chainerr.BadInput("private key is required")
	}
	callValue := uint64(0)
	if value != nil {
		if value.Sign() < 0 || !value.IsUint64() {
			return common.Hash{}, chainerr.BadInput("call value %s does not fit in 64 bits", value)
		}
		callValue = value.Uint64()
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)

	estimated, err := w.EstimateFeeLimit(ctx, owner, contract, data)
	if err != nil {
		return common.Hash{}, err
	}
	scaled := math.Round(float64(estimated) * gasLimitMultiplier)
	if math.IsNaN(scaled) || scaled < 0 || scaled >= math.MaxUint64 {
		return common.Hash{}, chainerr.BadInput("fee limit %d x %g out of range", estimated, gasLimitMultiplier)
	}
	feeLimit := uint64(scaled)

	tx, err := w.TriggerContract(ctx, owner, contract, data, callValue, feeLimit)
	if err != nil {
		return common.Hash{}, err
	}
	if err := w.Sign(tx, key); err != nil {
		return common.Hash{}, err
	}
	if err := w.Broadcast(ctx, tx); err != nil {
		return common.Hash{}, err
	}

	w.logger.Debug("contract call broadcast",
		zap.String("tx_id", tx.ID.Hex()),
		zap.String("owner", ToBase58(owner)),
		zap.String("contract", ToBase58(contract)),
		zap.Uint64("fee_limit", feeLimit),
		zap.Uint64("call_value", callValue),
	)
	return tx.ID, nil
}

// TransactionInfo fetches execution info for a transaction. Unknown or
// unconfirmed transactions come back with Included() false.
func (w *Wallet) TransactionInfo(ctx context.Context, id common.Hash) (*TransactionInfo, error) {
	req := struct {
		Value string `json:"value"`
	}{Value: hex.EncodeToString(id.Bytes())}

	var info TransactionInfo
	if err := w.post(ctx, "/wallet/gettransactioninfobyid", req, &info); err != nil {
		return nil, fmt.Errorf("get transaction info: %w", err)
	}
	return &info, nil
}

// AwaitConfirmation polls until the transaction is in a block or timeout
// passes.
func (w *Wallet) AwaitConfirmation(ctx context.Context, id common.Hash, timeout time.Duration) (*TransactionInfo, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s after %s", chainerr.ErrTransactionTimeout, id.Hex(), timeout)
		case <-timer.C:
		}

		info, err := w.TransactionInfo(waitCtx, id)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: %s after %s", chainerr.ErrTransactionTimeout, id.Hex(), timeout)
			}
			return nil, err
		}
		if info.Included() {
			return info, nil
		}
		timer.Reset(w.interval)
	}
}

func (w *Wallet) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return chainerr.BadResponse(fmt.Sprintf("%s: decode response: %v", path, err))
	}
	return nil
}
