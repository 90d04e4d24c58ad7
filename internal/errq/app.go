// Package errq wires configuration, storage and the reporter into the
// object commands operate on.
package errq

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hay-kot/errq/internal/core/config"
	"github.com/hay-kot/errq/internal/core/logging"
	"github.com/hay-kot/errq/internal/core/model"
	"github.com/hay-kot/errq/internal/core/record"
	"github.com/hay-kot/errq/internal/data/db"
	"github.com/hay-kot/errq/internal/data/stores"
	"github.com/hay-kot/errq/internal/delivery"
	"github.com/hay-kot/errq/internal/netmon"
	"github.com/hay-kot/errq/internal/reporter"
	"github.com/hay-kot/errq/internal/store/jsonfile"
)

// App is the central entry point for all errq operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Config   *config.Config
	DB       *db.DB
	Settings *stores.SettingsStore
	Counter  *stores.Counter
	Factory  *record.Factory
	Records  *jsonfile.RecordStore
	Models   *jsonfile.ModelStore
	Inbox    *jsonfile.Inbox
}

// NewApp constructs an App from explicit dependencies.
func NewApp(cfg *config.Config, database *db.DB) *App {
	settings := stores.NewSettingsStore(database)
	counter := stores.NewCounter(settings, logging.Component("counter"))

	return &App{
		Config:   cfg,
		DB:       database,
		Settings: settings,
		Counter:  counter,
		Factory:  record.NewFactory(counter, cfg.AppVersion),
		Records:  jsonfile.NewRecordStore(cfg.RecordsFile()),
		Models:   jsonfile.NewModelStore(cfg.ModelsDir()),
		Inbox:    jsonfile.NewInbox(filepath.Join(cfg.CacheDir(), jsonfile.InboxDir)),
	}
}

// NewReporter builds a reporter using the configured cadence. conn may be
// nil; it is only consulted for dispatch when gating is configured.
func (a *App) NewReporter(conn reporter.Connectivity) *reporter.Reporter {
	opts := []reporter.Option{
		reporter.WithLogger(logging.Component("reporter")),
		reporter.WithIntervals(a.Config.Reporter.BusyInterval, a.Config.Reporter.IdleInterval),
	}
	if conn != nil {
		opts = append(opts, reporter.WithConnectivity(conn, a.Config.Reporter.GateOnConnectivity))
	}
	return reporter.New(a.Records, a.Factory, opts...)
}

// NewMonitor creates a connectivity monitor for the configured host and
// runs its first probe.
func (a *App) NewMonitor(ctx context.Context) *netmon.Monitor {
	prober := netmon.DialProber{Address: a.Config.Netmon.Host, Timeout: a.Config.Netmon.Timeout}
	return netmon.New(ctx, prober, netmon.WithLogger(logging.Component("netmon")))
}

// Deliverer returns the delivery function for endpoint, falling back to the
// configured endpoint, and a label describing it. With no endpoint at all
// records are logged.
func (a *App) Deliverer(endpoint string) (reporter.DeliverFunc, string, error) {
	if endpoint == "" {
		endpoint = a.Config.Delivery.Endpoint
	}
	if endpoint == "" {
		return delivery.Log(logging.Component("delivery")), "log", nil
	}

	h, err := delivery.NewHTTP(endpoint, a.Config.Delivery.Timeout, logging.Component("delivery"))
	if err != nil {
		return nil, "", err
	}
	return h.Deliver, h.Endpoint(), nil
}

// Submit spools rec for the running reporter to pick up. The id counter is
// raised to rec.ID first so ids carried in by imports are never reissued.
func (a *App) Submit(ctx context.Context, rec *record.Record) (string, error) {
	if err := a.Counter.Reserve(ctx, rec.ID); err != nil {
		return "", fmt.Errorf("submit record %d: %w", rec.ID, err)
	}

	name, err := a.Inbox.Put(ctx, rec.ID, rec.ToMap())
	if err != nil {
		return "", fmt.Errorf("submit record %d: %w", rec.ID, err)
	}
	return name, nil
}

// Ingest moves spooled records into r and persists the queue. Records whose
// id r already knows are skipped, so a drain retried after a failed save
// does not duplicate them.
func (a *App) Ingest(ctx context.Context, r *reporter.Reporter) (int, error) {
	added := 0
	_, err := a.Inbox.Drain(ctx, func(entries []map[string]any) error {
		known := make(map[int64]bool)
		for _, rec := range r.All() {
			known[rec.ID] = true
		}

		added = 0
		for _, rec := range a.Factory.FromMaps(entries) {
			if known[rec.ID] {
				continue
			}
			known[rec.ID] = true
			r.Report(rec)
			added++
		}
		return r.SaveToDisk(ctx)
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Queued returns the persisted queue followed by spooled records not yet
// ingested.
func (a *App) Queued(ctx context.Context) (queue, spooled []*record.Record, err error) {
	entries, err := a.Records.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load records: %w", err)
	}

	inbox, err := a.Inbox.Entries()
	if err != nil {
		return nil, nil, fmt.Errorf("read inbox: %w", err)
	}

	return a.Factory.FromMaps(entries), a.Factory.FromMaps(inbox), nil
}

// LastRun loads the summary of the most recent run. It is empty when no run
// has been recorded.
func (a *App) LastRun() (*RunSummary, error) {
	return model.LoadFromDisk(a.Models, SummaryTypeName, model.DefaultKey, SummaryFromMap)
}

// RecordRun persists the outcome of a run.
func (a *App) RecordRun(started, stopped time.Time, endpoint string, stats reporter.Stats) error {
	s := &RunSummary{
		StartedAt: unix(started),
		StoppedAt: unix(stopped),
		Endpoint:  endpoint,
		Delivered: int64(stats.Delivered),
		Failed:    int64(stats.Failed),
		Remaining: int64(stats.Known),
	}
	return model.SaveToDisk(a.Models, s, model.DefaultKey)
}

// ResetRun removes the stored run summary.
func (a *App) ResetRun() error {
	return model.ClearInDisk(a.Models, SummaryTypeName, model.DefaultKey)
}

// Status is a snapshot of on-disk state.
type Status struct {
	Queued  int   `json:"queued"`
	Spooled int   `json:"spooled"`
	LastID  int64 `json:"last_id"`
}

// Status reports queue sizes and the last allocated id.
func (a *App) Status(ctx context.Context) (Status, error) {
	queue, spooled, err := a.Queued(ctx)
	if err != nil {
		return Status{}, err
	}

	last, err := a.Counter.Peek(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read counter: %w", err)
	}

	return Status{
		Queued:  len(queue),
		Spooled: len(spooled),
		LastID:  last,
	}, nil
}

// Purge drops the persisted queue, the inbox and the run summary. It
// returns the number of records removed.
func (a *App) Purge(ctx context.Context) (int, error) {
	queue, err := a.Records.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	spooled, err := a.Inbox.Drain(ctx, func([]map[string]any) error { return nil })
	if err != nil {
		return 0, err
	}

	if err := a.Records.Save(ctx, nil); err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	if err := a.ResetRun(); err != nil {
		return 0, err
	}

	return len(queue) + spooled, nil
}

// Reseed raises the id counter above every id present on disk. It is used
// after the settings database had to be recreated.
func (a *App) Reseed(ctx context.Context) (int64, error) {
	entries, err := a.Records.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}
	spooled, err := a.Inbox.Entries()
	if err != nil {
		return 0, fmt.Errorf("read inbox: %w", err)
	}

	highest := int64(record.FirstID)
	for _, m := range append(entries, spooled...) {
		if id, ok := model.AsInt(m[record.KeyID]); ok {
			highest = max(highest, id)
		}
	}

	if err := a.Counter.Reserve(ctx, highest); err != nil {
		return 0, err
	}
	return a.Counter.Peek(ctx)
}
