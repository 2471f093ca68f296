package render

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gg"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures logging for render and the underlying gg drawing
// library. By default nothing is logged. Pass nil to silence output again.
func SetLogger(l *slog.Logger) {
	gg.SetLogger(l)
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l.With("component", "render"))
}

func logger() *slog.Logger {
	return loggerPtr.Load()
}
