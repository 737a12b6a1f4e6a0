// Package telemetry is the game's error and event log. Entries go to slog
// with a category and session id, stay in a bounded in-memory ring for the
// admin API, and errors can be forwarded to an external form.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is how many entries the ring keeps.
const DefaultCapacity = 100

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// label bounds the metric label to the known levels.
func (l Level) label() Level {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l
	}
	return LevelInfo
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type Category string

const (
	LevelLoading    Category = "level_loading"
	ChessMove       Category = "chess_move"
	Betting         Category = "betting"
	GoogleSheets    Category = "google_sheets"
	GoogleForms     Category = "google_forms"
	UIRendering     Category = "ui_rendering"
	StateManagement Category = "state_management"
	Network         Category = "network"
	Validation      Category = "validation"
	GameLogic       Category = "game_logic"
)

var categories = map[Category]bool{
	LevelLoading: true, ChessMove: true, Betting: true, GoogleSheets: true,
	GoogleForms: true, UIRendering: true, StateManagement: true, Network: true,
	Validation: true, GameLogic: true,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool { return categories[c] }

// Entry is one logged event.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	SessionID string         `json:"sessionId"`
	LevelID   int            `json:"levelId,omitempty"`
	Action    string         `json:"action,omitempty"`
}

// Forwarder ships error entries somewhere outside the process.
type Forwarder interface {
	Forward(ctx context.Context, e Entry) error
}

// Sink records entries. It is safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool

	session   string
	logger    *slog.Logger
	forwarder Forwarder
	now       func() time.Time
}

type SinkOption func(*Sink)

func WithLogger(l *slog.Logger) SinkOption {
	return func(s *Sink) { s.logger = l }
}

// WithForwarder sends every error entry to f.
func WithForwarder(f Forwarder) SinkOption {
	return func(s *Sink) { s.forwarder = f }
}

func WithCapacity(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.entries = make([]Entry, n)
		}
	}
}

func withClock(now func() time.Time) SinkOption {
	return func(s *Sink) { s.now = now }
}

func NewSink(opts ...SinkOption) *Sink {
	s := &Sink{
		entries: make([]Entry, DefaultCapacity),
		session: uuid.NewString(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SessionID identifies this process's log stream.
func (s *Sink) SessionID() string { return s.session }

// Log records an entry. Forwarding failures are logged and dropped.
func (s *Sink) Log(ctx context.Context, level Level, category Category, msg string, details map[string]any) {
	s.Record(ctx, Entry{Level: level, Category: category, Message: msg, Details: details})
}

// Record stores e, filling in the timestamp and session id. Error entries
// go to the forwarder.
func (s *Sink) Record(ctx context.Context, e Entry) {
	s.record(ctx, e, true)
}

// Report stores an entry that came from outside the process. It is never
// forwarded, and an unknown category is counted as "other".
func (s *Sink) Report(ctx context.Context, e Entry) {
	s.record(ctx, e, false)
}

func (s *Sink) record(ctx context.Context, e Entry, forward bool) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	e.SessionID = s.session

	s.mu.Lock()
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()

	category := e.Category
	if !category.Valid() {
		category = "other"
	}
	logEntries.WithLabelValues(string(e.Level.label()), string(category)).Inc()

	attrs := []slog.Attr{
		slog.String("category", string(e.Category)),
		slog.String("session_id", e.SessionID),
	}
	if e.LevelID != 0 {
		attrs = append(attrs, slog.Int("level", e.LevelID))
	}
	if e.Action != "" {
		attrs = append(attrs, slog.String("action", e.Action))
	}
	for k, v := range e.Details {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.LogAttrs(ctx, e.Level.slog(), e.Message, attrs...)

	if forward && e.Level == LevelError && s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, e); err != nil {
			s.logger.Warn("failed to forward error entry", "error", err)
		}
	}
}

func (s *Sink) Error(ctx context.Context, c Category, msg string, details map[string]any) {
	s.Log(ctx, LevelError, c, msg, details)
}

func (s *Sink) Warn(ctx context.Context, c Category, msg string, details map[string]any) {
	s.Log(ctx, LevelWarn, c, msg, details)
}

func (s *Sink) Info(ctx context.Context, c Category, msg string, details map[string]any) {
	s.Log(ctx, LevelInfo, c, msg, details)
}

func (s *Sink) Debug(ctx context.Context, c Category, msg string, details map[string]any) {
	s.Log(ctx, LevelDebug, c, msg, details)
}

// Entries returns the retained entries, oldest first.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.full {
		return append([]Entry{}, s.entries[:s.next]...)
	}
	out := make([]Entry, 0, len(s.entries))
	out = append(out, s.entries[s.next:]...)
	return append(out, s.entries[:s.next]...)
}

// ErrorEntries returns the retained error-level entries.
func (s *Sink) ErrorEntries() []Entry {
	var out []Entry
	for _, e := range s.Entries() {
		if e.Level == LevelError {
			out = append(out, e)
		}
	}
	return out
}

func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.entries)
	s.next = 0
	s.full = false
}
