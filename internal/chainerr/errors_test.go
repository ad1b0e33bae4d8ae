package chainerr

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"
)

func TestInsufficientGasMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("send: %w", &InsufficientGasError{
		Balance:     big.NewInt(10),
		BaseGas:     big.NewInt(21000),
		GasRequired: big.NewInt(21000),
	})

	if !errors.Is(err, ErrInsufficientGas) {
		t.Fatalf("expected ErrInsufficientGas, got %v", err)
	}
	var gasErr *InsufficientGasError
	if !errors.As(err, &gasErr) {
		t.Fatalf("expected InsufficientGasError")
	}
	if gasErr.Balance.Int64() != 10 {
		t.Fatalf("balance mismatch: %s", gasErr.Balance)
	}
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"none":             nil,
		"bad_input":        BadInput("fee %d too large", 1<<24),
		"bad_response":     BadResponse("Liquidity too low"),
		"contract_call":    ContractCall("short output"),
		"syncing_node":     SyncingNode("eth_getBalance"),
		"pre_london":       ErrPreLondon,
		"timeout":          fmt.Errorf("wait: %w", ErrTransactionTimeout),
		"no_block":         &NoBlockProducedError{Timeout: time.Second},
		"insufficient_gas": &InsufficientGasError{},
		"network":          errors.New("connection refused"),
	}
	for want, err := range cases {
		if got := Kind(err); got != want {
			t.Fatalf("kind mismatch for %v: %s != %s", err, got, want)
		}
	}
}
