package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestNewLogRecordFlattensLog(t *testing.T) {
	pool := common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
	log := types.Log{
		Address:     pool,
		Topics:      []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")},
		Data:        []byte{0x0f, 0xa0},
		BlockNumber: 19_000_000,
		TxHash:      common.HexToHash("0x1234"),
		TxIndex:     3,
		BlockHash:   common.HexToHash("0x5678"),
		Index:       40,
		Removed:     true,
	}
	scannedAt := time.Date(2024, 6, 1, 1, 30, 0, 0, time.FixedZone("UTC+1", 3600))

	got := NewLogRecord(5, log, "", 1_717_000_000, scannedAt)
	want := LogRecord{
		ChainID:     5,
		BlockNumber: 19_000_000,
		BlockHash:   common.HexToHash("0x5678").Hex(),
		TxHash:      common.HexToHash("0x1234").Hex(),
		TxIndex:     3,
		LogIndex:    40,
		Address:     pool.Hex(),
		Topics:      []string{common.HexToHash("0x01").Hex(), common.HexToHash("0x02").Hex()},
		Data:        "0x0fa0",
		Removed:     true,
		Timestamp:   1_717_000_000,
		ScannedAt:   "2024-06-01T00:30:00Z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NewLogRecord mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLogRecordJSONOmitsEmptyDecodings(t *testing.T) {
	rec := NewLogRecord(1, types.Log{}, "", 0, time.Unix(0, 0))
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"event"`, `"swap"`} {
		if strings.Contains(string(raw), key) {
			t.Fatalf("%s should be omitted: %s", key, raw)
		}
	}

	rec.Swap = &SwapFields{Amount0: "-1", Tick: -5}
	raw, err = json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"swap":{"sender":"","recipient":"","amount0":"-1"`) {
		t.Fatalf("swap fields missing: %s", raw)
	}
}
