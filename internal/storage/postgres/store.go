package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapPipeline/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS tx_journal (
	tx_hash     TEXT PRIMARY KEY,
	ledger      TEXT NOT NULL,
	from_addr   TEXT,
	to_addr     TEXT,
	value       NUMERIC,
	status      TEXT NOT NULL,
	block       BIGINT,
	error_kind  TEXT,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS chain_logs (
	chain_id     BIGINT NOT NULL,
	block_number BIGINT NOT NULL,
	tx_hash      TEXT NOT NULL,
	log_index    BIGINT NOT NULL,
	block_hash   TEXT NOT NULL,
	address      TEXT NOT NULL,
	event        TEXT,
	topics       TEXT[] NOT NULL,
	data         TEXT NOT NULL,
	block_ts     BIGINT NOT NULL,
	PRIMARY KEY (chain_id, block_number, tx_hash, log_index)
);`

// Store persists the transaction journal and scanned logs in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordTx upserts a journal row. Block and error columns keep their previous
// value when the new row leaves them empty.
func (s *Store) RecordTx(ctx context.Context, r model.TxRecord) error {
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tx_journal (
			tx_hash, ledger, from_addr, to_addr, value, status, block, error_kind, error, updated_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, '')::numeric, $6, NULLIF($7, 0), NULLIF($8, ''), NULLIF($9, ''), $10)
		ON CONFLICT (tx_hash)
		DO UPDATE SET
			status = EXCLUDED.status,
			from_addr = COALESCE(EXCLUDED.from_addr, tx_journal.from_addr),
			to_addr = COALESCE(EXCLUDED.to_addr, tx_journal.to_addr),
			value = COALESCE(EXCLUDED.value, tx_journal.value),
			block = COALESCE(EXCLUDED.block, tx_journal.block),
			error_kind = EXCLUDED.error_kind,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`,
		r.TxHash,
		r.Ledger,
		r.From,
		r.To,
		r.Value,
		string(r.Status),
		int64(r.Block),
		r.ErrorKind,
		r.Error,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tx %s: %w", r.TxHash, err)
	}
	return nil
}

// LoadTx returns the journal row for hash.
func (s *Store) LoadTx(ctx context.Context, hash string) (model.TxRecord, bool, error) {
	var (
		r         model.TxRecord
		status    string
		from, to  *string
		value     *string
		block     *int64
		kind, msg *string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT tx_hash, ledger, from_addr, to_addr, value::text, status, block, error_kind, error, updated_at
		FROM tx_journal WHERE tx_hash = $1
	`, hash)
	if err := row.Scan(&r.TxHash, &r.Ledger, &from, &to, &value, &status, &block, &kind, &msg, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TxRecord{}, false, nil
		}
		return model.TxRecord{}, false, err
	}
	r.Status = model.TxStatus(status)
	r.From = deref(from)
	r.To = deref(to)
	r.Value = deref(value)
	r.ErrorKind = deref(kind)
	r.Error = deref(msg)
	if block != nil {
		r.Block = uint64(*block)
	}
	return r, true, nil
}

// PutLogBatch inserts scanned logs, skipping ones already stored.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range logs {
		batch.Queue(`
			INSERT INTO chain_logs (
				chain_id, block_number, tx_hash, log_index, block_hash, address, event, topics, data, block_ts
			) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
			ON CONFLICT (chain_id, block_number, tx_hash, log_index) DO NOTHING
		`,
			int64(l.ChainID),
			int64(l.BlockNumber),
			l.TxHash,
			int64(l.LogIndex),
			l.BlockHash,
			l.Address,
			l.Event,
			l.Topics,
			l.Data,
			int64(l.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range logs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
