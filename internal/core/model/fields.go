package model

import (
	"fmt"
	"strings"
)

// Field describes one serializable property of T.
type Field[T any] struct {
	Name string
	Get  func(*T) any
	// Set assigns v when it has a usable type and reports whether it did.
	// A nil Set marks the field read-only for Apply.
	Set func(*T, any) bool
}

// Fields is the ordered field registry for a model type.
type Fields[T any] []Field[T]

// Names returns the registered field names in declaration order.
func (fs Fields[T]) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Has reports whether name is a registered field.
func (fs Fields[T]) Has(name string) bool {
	for _, f := range fs {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ToMap flattens v into a map keyed by field name.
func (fs Fields[T]) ToMap(v *T) map[string]any {
	out := make(map[string]any, len(fs))
	for _, f := range fs {
		out[f.Name] = f.Get(v)
	}
	return out
}

// Apply copies every present and well-typed value from m onto v and returns
// the names of the fields it assigned.
func (fs Fields[T]) Apply(v *T, m map[string]any) []string {
	var applied []string
	for _, f := range fs {
		if f.Set == nil {
			continue
		}
		raw, ok := m[f.Name]
		if !ok || raw == nil {
			continue
		}
		if f.Set(v, raw) {
			applied = append(applied, f.Name)
		}
	}
	return applied
}

// Describe renders v one field per line as "name -> value", with empty
// strings shown as <blank> and nil values as <nil>.
func (fs Fields[T]) Describe(typeName string, v *T) string {
	var sb strings.Builder
	prefix := "{| "
	for _, f := range fs {
		var s string
		switch val := f.Get(v).(type) {
		case nil:
			s = "<nil>"
		case string:
			s = val
			if s == "" {
				s = "<blank>"
			}
		default:
			s = fmt.Sprint(val)
		}
		sb.WriteString(prefix + f.Name + " -> " + s + "\n")
		prefix = " | "
	}
	fmt.Fprintf(&sb, "} <= <%s: %p>", typeName, v)
	return sb.String()
}
