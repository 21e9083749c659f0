package glip

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so the caller skips message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for glip and all its sub-packages.
// By default, glip produces no log output.
//
// The logger is also handed to the wgpu HAL so that device-level messages
// from backend/native end up in the same place. Pass nil to restore the
// silent default.
//
// Log levels used by glip:
//   - [slog.LevelDebug]: per-draw diagnostics (filter, inputs, target cell)
//   - [slog.LevelInfo]: lifecycle events (context, pipeline, cell creation)
//   - [slog.LevelWarn]: non-fatal issues (release failures, broken filters)
//
// Example:
//
//	glip.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		loggerPtr.Store(newNopLogger())
		hal.SetLogger(nil)
		return
	}
	loggerPtr.Store(l)
	hal.SetLogger(l)
}

// Logger returns the current logger used by glip.
// Sub-packages call this to share one logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
