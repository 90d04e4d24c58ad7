// Package jsonfile implements errq's file-backed stores. Every write goes
// through a temp file and rename so readers never observe partial content.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RecordsFile is the file name of the reporter queue inside the cache dir.
const RecordsFile = "SPErrors.dat"

// RecordStore persists an ordered list of flat maps as a JSON array.
type RecordStore struct {
	path string
	mu   sync.RWMutex
}

// NewRecordStore creates a store that reads and writes path.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path}
}

// Path returns the backing file path.
func (s *RecordStore) Path() string { return s.path }

// Load returns every non-empty object in the file, in file order. A missing
// or empty file yields no entries and no error. Array elements that are not
// objects, or are empty objects, are skipped.
func (s *RecordStore) Load(ctx context.Context) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	entries := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok || len(m) == 0 {
			continue
		}
		entries = append(entries, m)
	}

	return entries, nil
}

// Save replaces the file contents with entries. Output is deterministic:
// object keys are sorted, so saving the same entries twice produces the
// same bytes.
func (s *RecordStore) Save(ctx context.Context, entries []map[string]any) error {
	if entries == nil {
		entries = []map[string]any{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeAtomic(s.path, data)
}

// writeAtomic writes data to path through a sibling temp file.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	return nil
}
