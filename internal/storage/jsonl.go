package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swapPipeline/internal/model"
)

// JsonlStorage appends records to a JSONL file. The journal is append-only;
// readers take the last row per tx hash.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutLogBatch appends a batch of log records.
func (s *JsonlStorage) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	rows := make([]any, len(logs))
	for i := range logs {
		rows[i] = logs[i]
	}
	return s.append(rows)
}

// RecordTx appends one journal row.
func (s *JsonlStorage) RecordTx(_ context.Context, record model.TxRecord) error {
	return s.append([]any{record})
}

func (s *JsonlStorage) append(rows []any) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// ReadJournal loads a JSONL journal and keeps the latest row per tx hash, in
// first-seen order.
func ReadJournal(path string) ([]model.TxRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var (
		order  []string
		latest = make(map[string]model.TxRecord)
	)
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record model.TxRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("decode journal line %d: %w", line, err)
		}
		if _, ok := latest[record.TxHash]; !ok {
			order = append(order, record.TxHash)
		}
		latest[record.TxHash] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	records := make([]model.TxRecord, len(order))
	for i, hash := range order {
		records[i] = latest[hash]
	}
	return records, nil
}
