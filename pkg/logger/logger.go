// Package logger adapts slog to the printf and key/value logger interfaces
// expected by third-party clients (resty, cron).
package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Adapter forwards library log calls into a slog.Logger tagged with a component.
type Adapter struct {
	log *slog.Logger
}

// New returns an adapter that logs under component.
func New(base *slog.Logger, component string) *Adapter {
	if base == nil {
		base = slog.Default()
	}
	return &Adapter{log: base.With("component", component)}
}

// Errorf satisfies resty.Logger.
func (a *Adapter) Errorf(format string, v ...any) {
	a.log.Error(trim(format, v...))
}

// Warnf satisfies resty.Logger.
func (a *Adapter) Warnf(format string, v ...any) {
	a.log.Warn(trim(format, v...))
}

// Debugf satisfies resty.Logger.
func (a *Adapter) Debugf(format string, v ...any) {
	a.log.Debug(trim(format, v...))
}

// Info satisfies cron.Logger. Cron reports routine wakeups here, so they go to debug.
func (a *Adapter) Info(msg string, keysAndValues ...any) {
	a.log.Debug(msg, keysAndValues...)
}

// Error satisfies cron.Logger.
func (a *Adapter) Error(err error, msg string, keysAndValues ...any) {
	a.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

func trim(format string, v ...any) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
