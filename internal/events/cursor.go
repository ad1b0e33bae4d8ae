package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cursor is the last block a scan finished.
type Cursor struct {
	LastBlock uint64 `json:"last_block"`
	UpdatedAt string `json:"updated_at"`
}

// CursorFile persists a Cursor as JSON. An empty path disables it.
type CursorFile struct {
	path string
}

func NewCursorFile(path string) *CursorFile {
	return &CursorFile{path: path}
}

// Load reports false when the cursor is disabled or not written yet.
func (c *CursorFile) Load() (Cursor, bool, error) {
	if c == nil || c.path == "" {
		return Cursor{}, false, nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{}, false, nil
		}
		return Cursor{}, false, fmt.Errorf("read cursor: %w", err)
	}
	var cur Cursor
	if err := json.Unmarshal(data, &cur); err != nil {
		return Cursor{}, false, fmt.Errorf("parse cursor: %w", err)
	}
	return cur, true, nil
}

// Save replaces the cursor through a rename.
func (c *CursorFile) Save(lastBlock uint64) error {
	if c == nil || c.path == "" {
		return nil
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}
	data, err := json.Marshal(Cursor{
		LastBlock: lastBlock,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}
	return nil
}
