package chainerr

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Sentinel kinds. Match them with errors.Is.
var (
	ErrBadInput           = errors.New("bad input")
	ErrInsufficientGas    = errors.New("insufficient gas")
	ErrPreLondon          = errors.New("chain does not support eip-1559 transactions")
	ErrSyncingNode        = errors.New("node is syncing")
	ErrContractCall       = errors.New("contract call error")
	ErrBadResponse        = errors.New("bad response")
	ErrTransactionTimeout = errors.New("transaction timed out")
	ErrNoBlockProduced    = errors.New("no block produced")
)

// BadInput reports a client-side validation failure.
func BadInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadInput, fmt.Sprintf(format, args...))
}

// BadResponse reports a decoded value that failed a semantic check.
func BadResponse(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadResponse, msg)
}

// ContractCall reports call output that could not be decoded.
func ContractCall(msg string) error {
	return fmt.Errorf("%w: %s", ErrContractCall, msg)
}

// SyncingNode reports a read refused because the node is still syncing.
func SyncingNode(op string) error {
	return fmt.Errorf("%w: cannot perform %s", ErrSyncingNode, op)
}

// InsufficientGasError carries the balance and the gas requirement that it
// failed to cover.
type InsufficientGasError struct {
	Balance     *big.Int
	BaseGas     *big.Int
	GasRequired *big.Int
}

func (e *InsufficientGasError) Error() string {
	return fmt.Sprintf("insufficient gas: balance %s, base gas %s, gas required %s",
		bigString(e.Balance), bigString(e.BaseGas), bigString(e.GasRequired))
}

func (e *InsufficientGasError) Is(target error) bool {
	return target == ErrInsufficientGas
}

// NoBlockProducedError is returned when the chain head did not move within
// Timeout.
type NoBlockProducedError struct {
	Timeout time.Duration
}

func (e *NoBlockProducedError) Error() string {
	return fmt.Sprintf("no block produced in %s", e.Timeout)
}

func (e *NoBlockProducedError) Is(target error) bool {
	return target == ErrNoBlockProduced
}

// Kind returns a short label for err, used by metrics and the tx journal.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrBadInput):
		return "bad_input"
	case errors.Is(err, ErrInsufficientGas):
		return "insufficient_gas"
	case errors.Is(err, ErrPreLondon):
		return "pre_london"
	case errors.Is(err, ErrSyncingNode):
		return "syncing_node"
	case errors.Is(err, ErrContractCall):
		return "contract_call"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	case errors.Is(err, ErrTransactionTimeout):
		return "timeout"
	case errors.Is(err, ErrNoBlockProduced):
		return "no_block"
	default:
		return "network"
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
