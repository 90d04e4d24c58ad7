package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook lifts record_id and user_id from the event context into the
// log event.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}

	if id, ok := GetRecordID(ctx); ok {
		e.Int64("record_id", id)
	}

	if userID := GetUserID(ctx); userID != "" {
		e.Str("user_id", userID)
	}
}
