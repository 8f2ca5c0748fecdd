package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Migrate bridges a component slog.Logger to golang-migrate's Printf/Verbose logger.
type Migrate struct {
	log *slog.Logger
}

// NewMigrate returns a migration logger writing under the given component name.
func NewMigrate(base *slog.Logger, component string) *Migrate {
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	return &Migrate{log: base.With("component", component)}
}

// Printf logs a migration progress line at info level.
func (m *Migrate) Printf(format string, v ...any) {
	m.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Verbose enables migrate's per-step output only when debug is on.
func (m *Migrate) Verbose() bool {
	return m.log.Enabled(context.Background(), slog.LevelDebug)
}
