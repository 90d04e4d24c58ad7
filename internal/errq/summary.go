package errq

import (
	"time"

	"github.com/hay-kot/errq/internal/core/model"
)

// SummaryTypeName is the model type name of RunSummary on disk.
const SummaryTypeName = "RunSummary"

// RunSummary describes the most recent `errq run`.
type RunSummary struct {
	model.Base

	StartedAt float64
	StoppedAt float64
	Endpoint  string
	Delivered int64
	Failed    int64
	Remaining int64
}

var summaryFields = model.Fields[RunSummary]{
	{Name: "startedAt", Get: func(s *RunSummary) any { return s.StartedAt }, Set: setFloat(func(s *RunSummary) *float64 { return &s.StartedAt })},
	{Name: "stoppedAt", Get: func(s *RunSummary) any { return s.StoppedAt }, Set: setFloat(func(s *RunSummary) *float64 { return &s.StoppedAt })},
	{Name: "endpoint", Get: func(s *RunSummary) any { return s.Endpoint }, Set: func(s *RunSummary, v any) bool {
		str, ok := model.AsString(v)
		if ok {
			s.Endpoint = str
		}
		return ok
	}},
	{Name: "delivered", Get: func(s *RunSummary) any { return s.Delivered }, Set: setInt64(func(s *RunSummary) *int64 { return &s.Delivered })},
	{Name: "failed", Get: func(s *RunSummary) any { return s.Failed }, Set: setInt64(func(s *RunSummary) *int64 { return &s.Failed })},
	{Name: "remaining", Get: func(s *RunSummary) any { return s.Remaining }, Set: setInt64(func(s *RunSummary) *int64 { return &s.Remaining })},
}

func setFloat(field func(*RunSummary) *float64) func(*RunSummary, any) bool {
	return func(s *RunSummary, v any) bool {
		f, ok := model.AsFloat(v)
		if ok {
			*field(s) = f
		}
		return ok
	}
}

func setInt64(field func(*RunSummary) *int64) func(*RunSummary, any) bool {
	return func(s *RunSummary, v any) bool {
		n, ok := model.AsInt(v)
		if ok {
			*field(s) = n
		}
		return ok
	}
}

// SummaryFromMap builds a RunSummary, ignoring unknown or mistyped keys.
func SummaryFromMap(m map[string]any) *RunSummary {
	s := &RunSummary{}
	s.Init(m)
	summaryFields.Apply(s, s.Dict())
	return s
}

func (s *RunSummary) TypeName() string       { return SummaryTypeName }
func (s *RunSummary) ToMap() map[string]any { return summaryFields.ToMap(s) }
func (s *RunSummary) String() string         { return summaryFields.Describe(SummaryTypeName, s) }

// Empty reports whether no run has been recorded.
func (s *RunSummary) Empty() bool { return s.StartedAt == 0 }

// Started returns StartedAt as a time.
func (s *RunSummary) Started() time.Time { return fromUnix(s.StartedAt) }

// Stopped returns StoppedAt as a time.
func (s *RunSummary) Stopped() time.Time { return fromUnix(s.StoppedAt) }

func fromUnix(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(sec*float64(time.Second)))
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
