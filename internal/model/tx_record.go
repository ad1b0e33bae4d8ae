package model

import "time"

// TxStatus is the lifecycle state of a journaled transaction.
type TxStatus string

const (
	TxSubmitted TxStatus = "submitted"
	TxConfirmed TxStatus = "confirmed"
	TxTimeout   TxStatus = "timeout"
	TxFailed    TxStatus = "failed"
)

// TxRecord is one row of the transaction journal. Rows are keyed by TxHash;
// later writes for the same hash replace earlier ones.
type TxRecord struct {
	TxHash    string    `json:"tx_hash"`
	Ledger    string    `json:"ledger"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Value     string    `json:"value,omitempty"`
	Status    TxStatus  `json:"status"`
	Block     uint64    `json:"block,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
