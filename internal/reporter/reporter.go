// Package reporter queues error records and drains them through a delivery
// function, retrying failed deliveries until they succeed.
//
// A Reporter keeps two collections: every record not yet confirmed
// delivered, and the FIFO of records waiting for a delivery attempt. A
// record leaves the first only on a successful delivery; a failed attempt
// puts it back at the tail of the second. Persistence is caller-driven via
// SaveToDisk.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/errq/internal/core/logging"
	"github.com/hay-kot/errq/internal/core/record"
)

// Default loop cadence.
const (
	DefaultBusyInterval = 500 * time.Millisecond
	DefaultIdleInterval = 5 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("reporter already started")
	ErrNilDeliver     = errors.New("deliver function is required")
)

// Completion reports the outcome of one delivery attempt. Only the first
// call per attempt has any effect.
type Completion func(ok bool, r *record.Record)

// DeliverFunc attempts to transmit r and must eventually call done exactly
// once. It may call done synchronously or from another goroutine.
type DeliverFunc func(ctx context.Context, r *record.Record, done Completion)

// Store persists the reporter queue.
type Store interface {
	Load(ctx context.Context) ([]map[string]any, error)
	Save(ctx context.Context, entries []map[string]any) error
}

// Connectivity is consulted before dispatch when gating is enabled.
type Connectivity interface {
	Connected() bool
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Known     int    `json:"known"`
	Pending   int    `json:"pending"`
	InFlight  int    `json:"in_flight"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
}

// Reporter is the retry queue. Create it with New, call Start once, then
// Report from any goroutine.
type Reporter struct {
	store   Store
	factory *record.Factory
	logger  zerolog.Logger

	busyInterval time.Duration
	idleInterval time.Duration
	monitor      Connectivity
	gate         bool

	mu       sync.Mutex
	all      []*record.Record
	pending  []*record.Record
	attempts map[*record.Record]int
	inFlight int
	started  bool
	done     chan struct{}

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the reporter logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// WithIntervals sets the pause after a dispatch (busy) and after finding the
// queue empty (idle). Non-positive values keep the defaults.
func WithIntervals(busy, idle time.Duration) Option {
	return func(r *Reporter) {
		if busy > 0 {
			r.busyInterval = busy
		}
		if idle > 0 {
			r.idleInterval = idle
		}
	}
}

// WithConnectivity attaches a connectivity source. When gate is true the
// loop does not dispatch while it reports disconnected; otherwise delivery
// is always attempted and the source is only logged.
func WithConnectivity(c Connectivity, gate bool) Option {
	return func(r *Reporter) {
		r.monitor = c
		r.gate = gate
	}
}

// New creates a Reporter persisting to store. factory rebuilds records read
// back from the store.
func New(store Store, factory *record.Factory, opts ...Option) *Reporter {
	r := &Reporter{
		store:        store,
		factory:      factory,
		logger:       zerolog.Nop(),
		busyInterval: DefaultBusyInterval,
		idleInterval: DefaultIdleInterval,
		attempts:     make(map[*record.Record]int),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start loads persisted records into the queue and launches the delivery
// loop, which runs until ctx is cancelled. It may be called only once.
// An unreadable store is logged and treated as empty.
func (r *Reporter) Start(ctx context.Context, deliver DeliverFunc) error {
	if deliver == nil {
		return ErrNilDeliver
	}

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	loaded := r.load(ctx)

	r.mu.Lock()
	r.all = append(slices.Clone(loaded), r.all...)
	r.pending = append(slices.Clone(loaded), r.pending...)
	r.mu.Unlock()

	r.logger.Info().
		Int("loaded", len(loaded)).
		Dur("busy_interval", r.busyInterval).
		Dur("idle_interval", r.idleInterval).
		Bool("gated", r.gate && r.monitor != nil).
		Msg("reporter started")

	go r.loop(ctx, deliver)

	return nil
}

func (r *Reporter) load(ctx context.Context) []*record.Record {
	entries, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("load persisted records failed, starting empty")
		return nil
	}
	return r.factory.FromMaps(entries)
}

// Report enqueues rec for delivery. It is safe for concurrent use and may be
// called before Start; such records wait until the loop runs.
func (r *Reporter) Report(rec *record.Record) {
	if rec == nil {
		return
	}

	r.mu.Lock()
	r.all = append(r.all, rec)
	r.pending = append(r.pending, rec)
	r.mu.Unlock()

	r.logger.Debug().Int64("record_id", rec.ID).Str("user_id", rec.UserID).Msg("record reported")
}

// SaveToDisk writes every known record to the store, replacing its contents.
func (r *Reporter) SaveToDisk(ctx context.Context) error {
	r.mu.Lock()
	entries := make([]map[string]any, len(r.all))
	for i, rec := range r.all {
		entries[i] = rec.ToMap()
	}
	r.mu.Unlock()

	if err := r.store.Save(ctx, entries); err != nil {
		r.logger.Error().Err(err).Int("records", len(entries)).Msg("save records failed")
		return fmt.Errorf("save records: %w", err)
	}

	r.logger.Debug().Int("records", len(entries)).Msg("records saved")
	return nil
}

// All returns the records not yet confirmed delivered, oldest first.
func (r *Reporter) All() []*record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.all)
}

// Pending returns the records waiting for a delivery attempt, in dispatch
// order. Records in flight are absent here but still present in All.
func (r *Reporter) Pending() []*record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pending)
}

// Stats returns queue counters.
func (r *Reporter) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Known:     len(r.all),
		Pending:   len(r.pending),
		InFlight:  r.inFlight,
		Delivered: r.delivered.Load(),
		Failed:    r.failed.Load(),
	}
}

// Done is closed when the delivery loop exits.
func (r *Reporter) Done() <-chan struct{} {
	return r.done
}

func (r *Reporter) loop(ctx context.Context, deliver DeliverFunc) {
	defer close(r.done)

	for {
		wait := r.idleInterval
		if rec, attempt := r.next(); rec != nil {
			r.dispatch(ctx, deliver, rec, attempt)
			wait = r.busyInterval
		}

		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reporter stopped")
			return
		case <-time.After(wait):
		}
	}
}

// next pops the head of the pending queue and marks it in flight.
func (r *Reporter) next() (*record.Record, int) {
	if r.gate && r.monitor != nil && !r.monitor.Connected() {
		r.logger.Debug().Msg("offline, delivery deferred")
		return nil, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return nil, 0
	}

	rec := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	r.inFlight++
	r.attempts[rec]++

	return rec, r.attempts[rec]
}

func (r *Reporter) dispatch(ctx context.Context, deliver DeliverFunc, rec *record.Record, attempt int) {
	var once sync.Once
	done := func(ok bool, _ *record.Record) {
		once.Do(func() {
			go r.complete(rec, ok)
		})
	}

	rctx := logging.WithUserID(logging.WithRecordID(ctx, rec.ID), rec.UserID)
	r.logger.Debug().Ctx(rctx).Int("attempt", attempt).Msg("delivering record")

	if r.monitor != nil && !r.monitor.Connected() {
		r.logger.Debug().Ctx(rctx).Msg("connectivity reports offline, attempting anyway")
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Ctx(rctx).Interface("panic", p).Msg("deliver panicked")
			done(false, rec)
		}
	}()

	deliver(rctx, rec, done)
}

func (r *Reporter) complete(rec *record.Record, ok bool) {
	r.mu.Lock()
	r.inFlight--
	attempt := r.attempts[rec]
	if ok {
		r.all = slices.DeleteFunc(r.all, func(x *record.Record) bool { return x == rec })
		delete(r.attempts, rec)
		r.delivered.Add(1)
	} else {
		r.pending = append(r.pending, rec)
		r.failed.Add(1)
	}
	r.mu.Unlock()

	if ok {
		r.logger.Info().Int64("record_id", rec.ID).Int("attempt", attempt).Msg("record delivered")
		return
	}

	r.logger.Warn().Int64("record_id", rec.ID).Int("attempt", attempt).Msg("record delivery failed, requeued")
}
