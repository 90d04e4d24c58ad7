package record

import (
	"time"

	"github.com/hay-kot/errq/internal/core/model"
)

// Factory builds records with ids from a shared allocator.
type Factory struct {
	ids        IDAllocator
	appVersion string
	now        func() time.Time
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// NewFactory creates a Factory. An empty appVersion falls back to
// DefaultAppVersion.
func NewFactory(ids IDAllocator, appVersion string, opts ...FactoryOption) *Factory {
	if appVersion == "" {
		appVersion = DefaultAppVersion
	}
	f := &Factory{ids: ids, appVersion: appVersion, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AppVersion returns the version stamped on new records.
func (f *Factory) AppVersion() string { return f.appVersion }

// New builds a record for userID and message, locating it at the caller.
func (f *Factory) New(userID, message string) *Record {
	return f.NewAt(CallerLocation(1), userID, message)
}

// NewAt builds a record with an explicit location.
func (f *Factory) NewAt(location, userID, message string) *Record {
	return f.FromMap(map[string]any{
		KeyUserID:   userID,
		KeyMessage:  message,
		KeyLocation: location,
	})
}

// FromMap builds a record from a loosely typed map. Missing or wrongly typed
// fields take their defaults; a missing id allocates a fresh one.
func (f *Factory) FromMap(m map[string]any) *Record {
	r := &Record{
		UserID:       DefaultUserID,
		Message:      DefaultMessage,
		Location:     DefaultLocation,
		ErrorType:    DefaultErrorType,
		InternalCode: DefaultInternalCode,
		AppVersion:   f.appVersion,
	}
	r.Init(m)

	applied := Fields.Apply(r, r.Dict())

	var hasID, hasCreated bool
	for _, name := range applied {
		switch name {
		case KeyID:
			hasID = true
		case KeyCreatedAt:
			hasCreated = true
		}
	}
	if !hasCreated {
		r.CreatedAt = unixSeconds(f.now())
	}
	if !hasID {
		r.ID = f.ids.Next()
	}

	return r
}

// FromMaps builds one record per map, skipping nil and empty entries.
func (f *Factory) FromMaps(ms []map[string]any) []*Record {
	out := make([]*Record, 0, len(ms))
	for _, m := range model.FilterNullMaps(ms) {
		if len(m) == 0 {
			continue
		}
		out = append(out, f.FromMap(m))
	}
	return out
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
