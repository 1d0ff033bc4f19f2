package logger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
)

// Handler adapts a Logger to slog.Handler so packages that accept a
// *slog.Logger write through the command's logger.
type Handler struct {
	logger *Logger
	group  string
}

// Handler returns a slog.Handler writing to l.
func (l *Logger) Handler() *Handler {
	return &Handler{logger: l}
}

// Slog returns a *slog.Logger writing to l.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.Handler())
}

func fromSlogLevel(level slog.Level) LogLevel {
	switch {
	case level >= slog.LevelError:
		return ERROR
	case level >= slog.LevelWarn:
		return WARN
	case level >= slog.LevelInfo:
		return INFO
	default:
		return DEBUG
	}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	floor := h.logger.Level()
	return floor != DISABLED && fromSlogLevel(level) >= floor
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]interface{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, a)
		return true
	})

	caller := "unknown"
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		if f, _ := frames.Next(); f.File != "" {
			caller = fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		}
	}

	h.logger.write(fromSlogLevel(r.Level), r.Message, caller, fields)
	return nil
}

func (h *Handler) addAttr(fields map[string]interface{}, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := &Handler{logger: h.logger, group: key}
		for _, ga := range a.Value.Group() {
			sub.addAttr(fields, ga)
		}
		return
	}
	fields[key] = a.Value.Any()
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]interface{}, len(attrs))
	for _, a := range attrs {
		h.addAttr(fields, a)
	}
	return &Handler{logger: h.logger.WithFields(fields), group: h.group}
}

// WithGroup implements slog.Handler. Groups prefix attribute keys.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &Handler{logger: h.logger, group: group}
}
