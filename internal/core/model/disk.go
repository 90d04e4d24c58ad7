package model

import "fmt"

// DefaultKey is the storage key used when none is given.
const DefaultKey = "default"

// DiskStore persists flat maps per (type name, key).
type DiskStore interface {
	Save(typeName, key string, m map[string]any) error
	Load(typeName, key string) (map[string]any, error)
	Clear(typeName, key string) error
}

// Model is implemented by entities that can be written to a DiskStore.
type Model interface {
	TypeName() string
	ToMap() map[string]any
}

func keyOrDefault(key string) string {
	if key == "" {
		return DefaultKey
	}
	return key
}

// SaveToDisk writes m's map form under key.
func SaveToDisk(store DiskStore, m Model, key string) error {
	if err := store.Save(m.TypeName(), keyOrDefault(key), m.ToMap()); err != nil {
		return fmt.Errorf("save %s/%s: %w", m.TypeName(), keyOrDefault(key), err)
	}
	return nil
}

// LoadFromDisk reads the map stored under key and builds an entity with
// ctor. A missing entry yields ctor of an empty map.
func LoadFromDisk[T any](store DiskStore, typeName, key string, ctor func(map[string]any) T) (T, error) {
	m, err := store.Load(typeName, keyOrDefault(key))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s/%s: %w", typeName, keyOrDefault(key), err)
	}
	return ctor(FilterNulls(m)), nil
}

// ClearInDisk removes the entry stored under key. Missing entries are not an
// error.
func ClearInDisk(store DiskStore, typeName, key string) error {
	if err := store.Clear(typeName, keyOrDefault(key)); err != nil {
		return fmt.Errorf("clear %s/%s: %w", typeName, keyOrDefault(key), err)
	}
	return nil
}
