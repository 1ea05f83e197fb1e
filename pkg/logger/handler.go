package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	lineCapacity = 256
	timeLayout   = "2006-01-02T15:04:05-07:00"
)

// LineHandler writes one line per record:
//
//	2006-01-02T15:04:05-07:00 LEVEL [pid] msg key=value
//
// Every hook run is its own process appending to the same file, so each
// line goes out in a single Write and carries the pid when one is set.
type LineHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	pid    int
	prefix string
	attrs  []byte
}

// NewLineHandler creates a handler writing to w. pid 0 omits the pid field.
func NewLineHandler(w io.Writer, level slog.Leveler, pid int) *LineHandler {
	return &LineHandler{out: w, mu: &sync.Mutex{}, level: level, pid: pid}
}

// Enabled implements slog.Handler.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, lineCapacity)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	buf = ts.Local().AppendFormat(buf, timeLayout)
	buf = append(buf, ' ')
	buf = append(buf, r.Level.String()...)

	if h.pid != 0 {
		buf = append(buf, " ["...)
		buf = strconv.AppendInt(buf, int64(h.pid), 10)
		buf = append(buf, ']')
	}

	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)

		return true
	})

	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.out.Write(buf)

	return err
}

// WithAttrs implements slog.Handler. Attributes are rendered once here.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]byte(nil), h.attrs...)

	for _, a := range attrs {
		clone.attrs = appendAttr(clone.attrs, h.prefix, a)
	}

	return &clone
}

// WithGroup implements slog.Handler. Groups become dotted key prefixes.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."

	return &clone
}

// Close closes the writer when it is an io.Closer.
func (h *LineHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.out.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		nested := prefix
		if a.Key != "" {
			nested += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, nested, ga)
		}

		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	return appendValue(buf, a.Value.String())
}

func appendValue(buf []byte, s string) []byte {
	if s == "" {
		return append(buf, `""`...)
	}

	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.AppendQuote(buf, s)
	}

	return append(buf, s...)
}
