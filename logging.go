package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"golang.org/x/exp/slog"
)

// LogHandler writes one line per record:
//
//	2006/01/02 15:04:05 INFO message key=value ...
type LogHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
	mu     *sync.Mutex
	out    io.Writer
}

func NewLogHandler(o io.Writer, opts *slog.HandlerOptions) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	var level slog.Leveler = slog.LevelInfo
	if opts.Level != nil {
		level = opts.Level
	}
	return &LogHandler{
		out:   o,
		level: level,
		mu:    &sync.Mutex{},
	}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	all := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	all = append(all, h.attrs...)
	for _, a := range attrs {
		all = append(all, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &LogHandler{level: h.level, attrs: all, prefix: h.prefix, out: h.out, mu: h.mu}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &LogHandler{level: h.level, attrs: h.attrs, prefix: h.prefix + name + ".", out: h.out, mu: h.mu}
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	strs := []string{formattedTime, r.Level.String(), r.Message}
	for _, a := range h.attrs {
		strs = _AppendAttr(strs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		strs = _AppendAttr(strs, h.prefix, a)
		return true
	})

	b := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.out.Write(b)
	return err
}

func _AppendAttr(strs []string, prefix string, a slog.Attr) []string {
	value := a.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		for _, g := range value.Group() {
			strs = _AppendAttr(strs, prefix+a.Key+".", g)
		}
		return strs
	}
	if a.Key == "" {
		return strs
	}
	return append(strs, prefix+a.Key+"="+value.String())
}

func InitLogging(out io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(NewLogHandler(out, &slog.HandlerOptions{Level: level})))
}
