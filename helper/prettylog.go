package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
)

// PrettyHandlerOptions wraps the slog.HandlerOptions a PrettyHandler is
// built from.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler is a slog.Handler that renders records as a single
// human-readable line: "[HH:MM:SS.mmm] LEVEL: message {attrs}". It delegates
// attribute/group bookkeeping to an inner JSON handler and only takes over
// rendering in Handle.
type PrettyHandler struct {
	Handler slog.Handler
	l       *log.Logger
}

// NewPrettyHandler builds a PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(w, &opts.SlogOpts),
		l:       log.New(w, "", 0),
	}
}

func (h *PrettyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.Handler.Enabled(ctx, level)
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{Handler: h.Handler.WithAttrs(attrs), l: h.l}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{Handler: h.Handler.WithGroup(name), l: h.l}
}

// Handle renders r as a single colored line and writes it via h.l.
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := levelString(r.Level)

	fields := make(map[string]interface{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})

	attrsText := "{}"
	if len(fields) > 0 {
		b, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		attrsText = string(b)
	}

	timestamp := r.Time.Format("15:04:05.000")
	h.l.Println(fmt.Sprintf("[%s] %s %s %s", timestamp, level, r.Message, attrsText))
	return nil
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return color.MagentaString("DEBUG:")
	case level < slog.LevelWarn:
		return color.BlueString("INFO:")
	case level < slog.LevelError:
		return color.YellowString("WARN:")
	default:
		return color.RedString("ERROR:")
	}
}
