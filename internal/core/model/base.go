// Package model provides the map-backed base shared by errq's domain types:
// construction from loosely typed maps, flattening back to maps through an
// explicit field registry, per-key disk persistence and property-change
// observation.
package model

import (
	"maps"
	"sync"

	"github.com/google/uuid"
)

// Base holds the map an entity was constructed from together with its
// observer registry. Embed it by value and always handle the outer type by
// pointer; Base must not be copied after first use.
type Base struct {
	dict map[string]any

	mu         sync.Mutex
	registry   map[uuid.UUID]*registration
	byProperty map[string][]uuid.UUID
}

// Init sets the backing map to a copy of m with nil values removed. A nil
// map is treated as empty.
func (b *Base) Init(m map[string]any) {
	b.dict = FilterNulls(m)
}

// Dict returns a copy of the backing map.
func (b *Base) Dict() map[string]any {
	out := make(map[string]any, len(b.dict))
	maps.Copy(out, b.dict)
	return out
}

// Value returns the raw backing value for key.
func (b *Base) Value(key string) (any, bool) {
	v, ok := b.dict[key]
	return v, ok
}

// FilterNulls returns a copy of m without nil values. The result is never nil.
func FilterNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// FilterNullMaps drops nil entries from ms and filters nil values out of the
// rest. Input order is preserved.
func FilterNullMaps(ms []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		if m == nil {
			continue
		}
		out = append(out, FilterNulls(m))
	}
	return out
}

// FromMaps constructs one entity per map using ctor, in input order.
func FromMaps[T any](ms []map[string]any, ctor func(map[string]any) T) []T {
	filtered := FilterNullMaps(ms)
	out := make([]T, 0, len(filtered))
	for _, m := range filtered {
		out = append(out, ctor(m))
	}
	return out
}
