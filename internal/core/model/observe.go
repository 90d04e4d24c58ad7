package model

import (
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
)

// Observer receives property change notifications from observed entities.
type Observer interface {
	Observed(entity any, property string, oldValue any)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(entity any, property string, oldValue any)

// Observed calls f.
func (f ObserverFunc) Observed(entity any, property string, oldValue any) {
	f(entity, property, oldValue)
}

// Handle is the registration identity of one observer. The same handle may
// observe any number of entities; entities deduplicate registrations by
// handle. Once released, a handle never fires again and is pruned from
// every entity on that entity's next notification.
type Handle struct {
	id       uuid.UUID
	observer Observer
	released atomic.Bool
}

// NewHandle acquires a handle for o.
func NewHandle(o Observer) *Handle {
	return &Handle{id: uuid.New(), observer: o}
}

// ID returns the handle identity.
func (h *Handle) ID() uuid.UUID { return h.id }

// Release ends the handle's lifetime. It is safe to call more than once.
func (h *Handle) Release() { h.released.Store(true) }

// Alive reports whether Release has not been called.
func (h *Handle) Alive() bool { return !h.released.Load() }

type registration struct {
	handle *Handle
	props  map[string]struct{}
}

// Observe registers h for changes to the given properties. Registering a
// property that h already watches is a no-op.
func (b *Base) Observe(h *Handle, properties ...string) {
	if h == nil || !h.Alive() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.registry == nil {
		b.registry = make(map[uuid.UUID]*registration)
		b.byProperty = make(map[string][]uuid.UUID)
	}

	reg, ok := b.registry[h.id]
	if !ok {
		reg = &registration{handle: h, props: make(map[string]struct{})}
		b.registry[h.id] = reg
	}

	for _, p := range properties {
		if _, watching := reg.props[p]; watching {
			continue
		}
		reg.props[p] = struct{}{}
		if !slices.Contains(b.byProperty[p], h.id) {
			b.byProperty[p] = append(b.byProperty[p], h.id)
		}
	}
}

// Unobserve removes the given properties from h's registration. With no
// properties it removes the registration entirely.
func (b *Base) Unobserve(h *Handle, properties ...string) {
	if h == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	reg, ok := b.registry[h.id]
	if !ok {
		return
	}

	if len(properties) == 0 {
		for p := range reg.props {
			properties = append(properties, p)
		}
	}

	for _, p := range properties {
		if _, watching := reg.props[p]; !watching {
			continue
		}
		delete(reg.props, p)
		b.dropFromProperty(p, h.id)
	}

	if len(reg.props) == 0 {
		delete(b.registry, h.id)
	}
}

// ObservedProperties returns the sorted properties h watches on b.
func (b *Base) ObservedProperties(h *Handle) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg, ok := b.registry[h.id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(reg.props))
	for p := range reg.props {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// ObserverCount returns the number of registrations b currently holds,
// including released handles that have not been pruned yet.
func (b *Base) ObserverCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registry)
}

// NotifyChanged tells every live observer of property that it changed from
// oldValue. entity is the outer value passed through to observers. Released
// handles and registrations without properties are pruned. Callbacks run
// after the registry lock is released, so observers may re-enter b.
func (b *Base) NotifyChanged(entity any, property string, oldValue any) {
	b.mu.Lock()
	ids := b.byProperty[property]
	targets := make([]Observer, 0, len(ids))
	for _, id := range slices.Clone(ids) {
		reg, ok := b.registry[id]
		switch {
		case !ok:
			b.dropFromProperty(property, id)
		case !reg.handle.Alive():
			b.dropRegistration(reg)
		case len(reg.props) == 0:
			delete(b.registry, id)
			b.dropFromProperty(property, id)
		default:
			targets = append(targets, reg.handle.observer)
		}
	}
	b.mu.Unlock()

	for _, o := range targets {
		o.Observed(entity, property, oldValue)
	}
}

func (b *Base) dropRegistration(reg *registration) {
	for p := range reg.props {
		b.dropFromProperty(p, reg.handle.id)
	}
	delete(b.registry, reg.handle.id)
}

func (b *Base) dropFromProperty(property string, id uuid.UUID) {
	ids := slices.DeleteFunc(b.byProperty[property], func(x uuid.UUID) bool { return x == id })
	if len(ids) == 0 {
		delete(b.byProperty, property)
		return
	}
	b.byProperty[property] = ids
}
