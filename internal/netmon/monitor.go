package netmon

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHost is probed when no host is configured.
const DefaultHost = "www.baidu.com:443"

const defaultProbeTimeout = 3 * time.Second

// Prober reports the current reachability flags for a host.
type Prober interface {
	Probe(ctx context.Context) Flags
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) Flags

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context) Flags { return f(ctx) }

// DialProber probes reachability by opening a TCP connection.
type DialProber struct {
	Address string
	Timeout time.Duration
}

// Probe implements Prober. A successful dial yields Reachable, plus
// IsLocalAddress when the peer is a loopback or private address.
func (p DialProber) Probe(ctx context.Context) Flags {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return 0
	}
	defer func() { _ = conn.Close() }()

	flags := Reachable
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok && (addr.IP.IsLoopback() || addr.IP.IsPrivate()) {
		flags |= IsLocalAddress
	}
	return flags
}

// Monitor holds the latest reachability status. Update is the notification
// entry point for platform callbacks; Run polls the prober instead where no
// such callback exists.
type Monitor struct {
	prober Prober
	logger zerolog.Logger

	connected atomic.Bool

	mu        sync.Mutex
	status    Status
	flags     Flags
	listeners []func(Status)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates a monitor and runs an initial probe.
func New(ctx context.Context, prober Prober, opts ...Option) *Monitor {
	m := &Monitor{prober: prober, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	m.Check(ctx)
	return m
}

// Connected reports whether the last classification was reachable.
func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

// Status returns the last classification and the flags it came from.
func (m *Monitor) Status() (Status, Flags) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.flags
}

// OnChange registers fn to be called when the status changes.
func (m *Monitor) OnChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Update classifies flags and records the result.
func (m *Monitor) Update(flags Flags) Status {
	status := Classify(flags)

	m.mu.Lock()
	changed := status != m.status
	m.status = status
	m.flags = flags
	m.connected.Store(status.Connected())
	listeners := append([]func(Status){}, m.listeners...)
	m.mu.Unlock()

	if changed {
		m.logger.Info().
			Str("status", status.String()).
			Str("flags", flags.String()).
			Msg("reachability changed")
		for _, fn := range listeners {
			fn(status)
		}
	}

	return status
}

// Check probes once and updates the status.
func (m *Monitor) Check(ctx context.Context) Status {
	return m.Update(m.prober.Probe(ctx))
}

// Run probes every interval until ctx is cancelled. A non-positive interval
// disables polling and the status only changes through Update.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
