package logging

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// LogCallback receives every entry stored in the ring buffer. The API server publishes
// them to SSE clients through it, which keeps this package free of an events import.
type LogCallback func(entry LogEntry)

// leaf is one attribute value with the full group path of its key.
type leaf struct {
	path  []string
	value slog.Value
}

// leaves calls fn for every non-group value under a, prefixed by the open groups.
func leaves(groups []string, a slog.Attr, fn func(path []string, v slog.Value)) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		path := groups
		if a.Key != "" {
			path = append(slices.Clip(groups), a.Key)
		}
		for _, ga := range a.Value.Group() {
			leaves(path, ga, fn)
		}
		return
	}
	fn(append(slices.Clip(groups), a.Key), a.Value)
}

// scope is the state WithAttrs and WithGroup accumulate on a handler.
type scope struct {
	leaves []leaf
	groups []string
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	out := scope{leaves: slices.Clip(s.leaves), groups: s.groups}
	for _, a := range attrs {
		leaves(s.groups, a, func(path []string, v slog.Value) {
			out.leaves = append(out.leaves, leaf{path: path, value: v})
		})
	}
	return out
}

func (s scope) withGroup(name string) scope {
	if name == "" {
		return s
	}
	return scope{leaves: s.leaves, groups: append(slices.Clip(s.groups), name)}
}

// visit calls fn for the scope's attributes, then the record's.
func (s scope) visit(r slog.Record, fn func(path []string, v slog.Value)) {
	for _, l := range s.leaves {
		fn(l.path, l.value)
	}
	r.Attrs(func(a slog.Attr) bool {
		leaves(s.groups, a, fn)
		return true
	})
}

// MultiHandler fans out log records to multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes to all provided handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled implements slog.Handler.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(m.handlers, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

// Handle implements slog.Handler. A failing handler does not keep the others from running.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = fn(h)
	}
	return &MultiHandler{handlers: handlers}
}

// JournalHandler sends records to the systemd journal. Attribute keys become upper-case
// journal fields, so device_id is queryable as DEVICE_ID and groups are joined with '_'.
type JournalHandler struct {
	level slog.Leveler
	scope scope
	send  func(message string, priority journal.Priority, fields map[string]string) error
}

// NewJournalHandler creates a journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, send: journal.Send}
}

// Enabled implements slog.Handler.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	return h.send(r.Message, journalPriority(r.Level), h.fields(r))
}

func (h *JournalHandler) fields(r slog.Record) map[string]string {
	fields := map[string]string{"SYSLOG_IDENTIFIER": SyslogIdentifier}
	h.scope.visit(r, func(path []string, v slog.Value) {
		if name := journalField(path); name != "" {
			fields[name] = journalValue(v)
		}
	})
	return fields
}

// WithAttrs implements slog.Handler.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{level: h.level, scope: h.scope.withAttrs(attrs), send: h.send}
}

// WithGroup implements slog.Handler.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	return &JournalHandler{level: h.level, scope: h.scope.withGroup(name), send: h.send}
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalField builds a valid journal field name: upper-case letters, digits and
// underscores, not starting with an underscore. Empty means the key is unusable.
func journalField(path []string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.Join(path, "_"))
	return strings.TrimLeft(name, "_")
}

func journalValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		return v.String()
	}
}

// IsJournalAvailable reports whether journald is listening.
func IsJournalAvailable() bool {
	return journal.Enabled()
}

// BufferHandler stores records in a ring buffer and hands each stored entry to a callback.
type BufferHandler struct {
	buffer   *RingBuffer
	level    slog.Leveler
	scope    scope
	callback LogCallback
}

// NewBufferHandler creates a handler that writes to buffer. callback may be nil.
func NewBufferHandler(buffer *RingBuffer, level slog.Leveler, callback LogCallback) *BufferHandler {
	return &BufferHandler{buffer: buffer, level: level, callback: callback}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler. The top-level "module" attribute becomes the entry's
// module; other keys are flattened with '.' between groups.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelName(r.Level),
		Module:    "app",
		Message:   r.Message,
	}
	h.scope.visit(r, func(path []string, v slog.Value) {
		if len(path) == 1 && path[0] == "module" {
			entry.Module = v.String()
			return
		}
		if entry.Attributes == nil {
			entry.Attributes = make(map[string]any)
		}
		entry.Attributes[strings.Join(path, ".")] = bufferValue(v)
	})

	entry = h.buffer.Write(entry)
	if h.callback != nil {
		h.callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{buffer: h.buffer, level: h.level, scope: h.scope.withAttrs(attrs), callback: h.callback}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{buffer: h.buffer, level: h.level, scope: h.scope.withGroup(name), callback: h.callback}
}

// bufferValue converts v to something encoding/json renders readably.
func bufferValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
