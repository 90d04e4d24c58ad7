package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hay-kot/errq/internal/core/model"
)

// ModelsDir is the directory name for model snapshots inside the cache dir.
const ModelsDir = "SPModels"

// ModelStore persists one JSON object per (type name, key) at
// <baseDir>/<TypeName>/<key>.dat.
type ModelStore struct {
	baseDir string
	mu      sync.RWMutex
}

var _ model.DiskStore = (*ModelStore)(nil)

// NewModelStore creates a store rooted at baseDir.
func NewModelStore(baseDir string) *ModelStore {
	return &ModelStore{baseDir: baseDir}
}

// Path returns the file path for typeName and key.
func (s *ModelStore) Path(typeName, key string) string {
	return filepath.Join(s.baseDir, sanitize(typeName), sanitize(key)+".dat")
}

// Save writes m under typeName/key, replacing any previous content.
func (s *ModelStore) Save(typeName, key string, m map[string]any) error {
	data, err := json.MarshalIndent(model.FilterNulls(m), "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeAtomic(s.Path(typeName, key), data)
}

// Load reads the map stored under typeName/key. A missing file yields an
// empty map and no error.
func (s *ModelStore) Load(typeName, key string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(typeName, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	m := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

// Clear removes the file for typeName/key if it exists.
func (s *ModelStore) Clear(typeName, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(typeName, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// sanitize keeps path components inside the store root.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
