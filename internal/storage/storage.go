package storage

import (
	"context"

	"swapPipeline/internal/model"
)

// LogSink receives batches of scanned logs.
type LogSink interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// TxJournal records transaction lifecycle transitions.
type TxJournal interface {
	RecordTx(ctx context.Context, record model.TxRecord) error
}
