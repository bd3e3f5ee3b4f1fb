package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// slogHandler adapts a Logger (day/size-rolling Sink handle) to slog.Handler,
// so every component that already takes a *slog.Logger — service, gamehub,
// rpchub, conn — gets the §6.5 rolling-file contract for free instead of
// needing its own path to the Sink.
type slogHandler struct {
	l     *Logger
	attrs []slog.Attr
	group string
}

// NewSlogLogger returns a *slog.Logger backed by l: every record is
// formatted as "[YYYY-MM-DD HH:MM:SS.ffffff][LEVEL]msg key=val ..." and
// handed to l's Sink, subject to l's level threshold. The threshold is
// compared by severity (debug < info < warning < error), not by the numeric
// log_level value.
func NewSlogLogger(l *Logger) *slog.Logger {
	return slog.New(&slogHandler{l: l})
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= levelToSlog(h.l.level)
}

func (h *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value)
		return true
	})
	ts := time.Now().Format(timeLayout)
	h.l.sink.Send(h.l.path, fmt.Sprintf("[%s][%s]%s", ts, slogLevelToLevel(r.Level).String(), b.String()))
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &slogHandler{l: h.l, group: h.group, attrs: make([]slog.Attr, 0, len(h.attrs)+len(attrs))}
	out.attrs = append(out.attrs, h.attrs...)
	out.attrs = append(out.attrs, attrs...)
	return out
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	g := name
	if h.group != "" {
		g = h.group + "." + name
	}
	return &slogHandler{l: h.l, attrs: h.attrs, group: g}
}

func slogLevelToLevel(lv slog.Level) Level {
	switch {
	case lv < slog.LevelInfo:
		return LevelDebug
	case lv < slog.LevelWarn:
		return LevelInfo
	case lv < slog.LevelError:
		return LevelWarning
	default:
		return LevelError
	}
}

func levelToSlog(lv Level) slog.Level {
	switch lv {
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

var _ slog.Handler = (*slogHandler)(nil)
