package rules

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// AnalysisWindow is the number of most recent decisions the analyzer reads.
const AnalysisWindow = 100

// Engine owns the rule registry, the decision log and the evolution history.
// All methods are safe for concurrent use; RecordDecision analyzes and
// evolves under one lock.
type Engine struct {
	mu sync.Mutex

	now      func() time.Time
	jitter   Jitter
	cooldown time.Duration
	logger   *slog.Logger
	onEvolve func(EvolutionEvent)

	order     []string
	rules     map[string]*Rule
	decisions []Decision
	history   []EvolutionEvent
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithJitter sets the noise source for the placeholder estimators.
func WithJitter(j Jitter) Option {
	return func(e *Engine) { e.jitter = j }
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// OnEvolve registers a callback invoked, under the engine lock, for every
// applied evolution. It must not call back into the engine.
func OnEvolve(fn func(EvolutionEvent)) Option {
	return func(e *Engine) { e.onEvolve = fn }
}

// NewEngine returns an engine seeded with the six base rules.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		cooldown: DefaultCooldown,
		logger:   slog.Default(),
		rules:    make(map[string]*Rule),
	}
	for _, o := range opts {
		o(e)
	}
	if e.jitter == nil {
		e.jitter = rand.New(rand.NewSource(e.now().UnixNano()))
	}

	for _, r := range seedRules(e.now()) {
		e.order = append(e.order, r.ID)
		e.rules[r.ID] = r
	}
	return e
}

// RecordDecision appends d to the log, re-analyzes the most recent
// AnalysisWindow decisions and evolves every rule that is due. A decision
// that fails validation is rejected and nothing changes.
func (e *Engine) RecordDecision(d Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if d.Timestamp.IsZero() {
		d.Timestamp = now
	}
	e.decisions = append(e.decisions, d)
	e.analyze(tail(e.decisions, AnalysisWindow))
	e.checkTriggers(now)
	return nil
}

// RuleValue returns the current value of rule id. ok is false for unknown ids.
func (e *Engine) RuleValue(id string) (v Value, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.rules[id]
	if !ok {
		return nil, false
	}
	return r.Current, true
}

// Rule returns a copy of rule id.
func (e *Engine) Rule(id string) (Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.rules[id]
	if !ok {
		return Rule{}, false
	}
	return r.clone(), true
}

// ActiveRules returns copies of the active rules in seed order.
func (e *Engine) ActiveRules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Rule, 0, len(e.order))
	for _, id := range e.order {
		if r := e.rules[id]; r.Active {
			out = append(out, r.clone())
		}
	}
	return out
}

// EvolutionHistory returns every applied evolution, oldest first.
func (e *Engine) EvolutionHistory() []EvolutionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]EvolutionEvent{}, e.history...)
}

// PlayerStats aggregates the full decision log, not the analysis window.
func (e *Engine) PlayerStats() StatsSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return summarize(e.decisions)
}

// Decisions returns the full decision log, oldest first.
func (e *Engine) Decisions() []Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Decision{}, e.decisions...)
}

// Reset restores every rule to its base value and clears influence, all
// evolution history and the decision log. LastEvolvedAt is kept, so the
// cooldown is not re-armed.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.rules {
		r.Current = r.Base
		r.Influence = 0
		r.History = nil
	}
	e.history = nil
	e.decisions = nil
	e.logger.Info("rules reset to base values")
}

// Snapshot is the engine's full state, for persistence.
type Snapshot struct {
	Rules     []Rule
	History   []EvolutionEvent
	Decisions []Decision
}

// Snapshot copies the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		History:   append([]EvolutionEvent{}, e.history...),
		Decisions: append([]Decision{}, e.decisions...),
	}
	for _, id := range e.order {
		s.Rules = append(s.Rules, e.rules[id].clone())
	}
	return s
}

// Restore builds an engine from a snapshot. Persisted rules overlay the seed
// set by ID; seeded rules missing from the snapshot keep their seed state and
// unknown IDs are skipped. A rule whose value category does not match its
// seed is an error.
func Restore(s Snapshot, opts ...Option) (*Engine, error) {
	e := NewEngine(opts...)

	for _, pr := range s.Rules {
		r, ok := e.rules[pr.ID]
		if !ok {
			e.logger.Warn("skipping unknown persisted rule", "rule", pr.ID)
			continue
		}
		if pr.Current == nil || pr.Current.Category() != r.Category {
			return nil, fmt.Errorf("restore rule %s: value category mismatch", pr.ID)
		}
		r.Current = pr.Current
		r.Influence = pr.Influence
		r.LastEvolvedAt = pr.LastEvolvedAt
		r.Active = pr.Active
		r.History = nil
	}

	for _, ev := range s.History {
		if r, ok := e.rules[ev.RuleID]; ok {
			r.History = append(r.History, ev)
		}
		e.history = append(e.history, ev)
	}
	e.decisions = append(e.decisions, s.Decisions...)
	return e, nil
}
