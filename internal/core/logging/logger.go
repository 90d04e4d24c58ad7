// Package logging holds errq's zerolog helpers: component loggers and a hook
// that copies record identifiers from the context onto log events.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a logger tagged with a component name under "cmp".
// The global logger's hooks are kept and ContextHook is added.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger().Hook(ContextHook{})
}
