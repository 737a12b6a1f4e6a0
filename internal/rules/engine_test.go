package rules

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixedJitter float64

func (j fixedJitter) Float64() float64 { return float64(j) }

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	base := []Option{
		WithClock(clock.Now),
		WithJitter(fixedJitter(0.5)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewEngine(append(base, opts...)...), clock
}

func bet(amount float64) Decision {
	return Decision{
		ActorID:   "player-1",
		PieceKind: "p",
		Position:  "e4",
		BetAmount: amount,
		Outcome:   OutcomeContinue,
	}
}

func TestSeededRules(t *testing.T) {
	e, clock := newTestEngine(t)

	rules := e.ActiveRules()
	require.Len(t, rules, 6)

	want := []struct {
		id        string
		value     Value
		threshold float64
	}{
		{BettingMinimum, Currency(50), 0.7},
		{BettingMaximum, Currency(500), 0.7},
		{MoralWeightBase, MoralWeight(5), 0.6},
		{GodsAuthority, Authority(1.0), 0.8},
		{ScoringStrategicWeight, ScoreWeight(0.5), 0.7},
		{ScoringMoralWeight, ScoreWeight(0.5), 0.7},
	}
	for i, w := range want {
		r := rules[i]
		assert.Equal(t, w.id, r.ID)
		assert.Equal(t, w.value, r.Current)
		assert.Equal(t, w.value, r.Base)
		assert.Equal(t, w.value.Category(), r.Category)
		assert.Equal(t, w.threshold, r.Threshold)
		assert.Equal(t, clock.Now(), r.LastEvolvedAt)
		assert.Zero(t, r.Influence)
		assert.True(t, r.Active)
	}
}

func TestBettingMinimumEvolvesAfterSevenPasses(t *testing.T) {
	var seen []EvolutionEvent
	e, clock := newTestEngine(t, OnEvolve(func(ev EvolutionEvent) { seen = append(seen, ev) }))
	clock.Advance(8 * 24 * time.Hour)

	for i := 0; i < 6; i++ {
		require.NoError(t, e.RecordDecision(bet(80)))
	}
	v, ok := e.RuleValue(BettingMinimum)
	require.True(t, ok)
	assert.Equal(t, Currency(50), v, "no evolution before the seventh pass")
	assert.Empty(t, e.EvolutionHistory())

	require.NoError(t, e.RecordDecision(bet(80)))

	history := e.EvolutionHistory()
	require.Len(t, history, 1)
	ev := history[0]
	assert.Equal(t, BettingMinimum, ev.RuleID)
	assert.Equal(t, CategoryBetting, ev.Category)
	assert.Equal(t, Currency(50), ev.Previous)
	assert.Equal(t, Currency(68), ev.New)
	assert.Equal(t, "Player influence: 0.70", ev.Trigger)
	assert.InDelta(t, 0.7, ev.Influence, 1e-9)
	assert.Equal(t, MutationRecombination, ev.Kind)
	assert.Equal(t, clock.Now(), ev.Timestamp)
	assert.Equal(t, 0.5, ev.EstimatedSuccessRate)
	assert.Equal(t, 0.5, ev.EstimatedAdoptionRate)

	r, ok := e.Rule(BettingMinimum)
	require.True(t, ok)
	assert.Equal(t, Currency(68), r.Current)
	assert.Zero(t, r.Influence)
	assert.Equal(t, clock.Now(), r.LastEvolvedAt)
	if diff := cmp.Diff(history, r.History); diff != "" {
		t.Errorf("rule history differs from global history (-global +rule):\n%s", diff)
	}
	require.Len(t, seen, 1)
	assert.Equal(t, ev, seen[0])
}

func TestCooldownBlocksEvolution(t *testing.T) {
	e, clock := newTestEngine(t)

	for i := 0; i < 7; i++ {
		require.NoError(t, e.RecordDecision(bet(80)))
	}
	r, _ := e.Rule(BettingMinimum)
	assert.GreaterOrEqual(t, r.Influence, r.Threshold)
	assert.Empty(t, e.EvolutionHistory(), "cooldown has not elapsed since seeding")

	clock.Advance(7*24*time.Hour - time.Second)
	require.NoError(t, e.RecordDecision(bet(80)))
	assert.Empty(t, e.EvolutionHistory())

	clock.Advance(time.Second)
	require.NoError(t, e.RecordDecision(bet(80)))
	history := e.EvolutionHistory()
	require.Len(t, history, 1)
	// Nine passes of 0.1 accumulated before the trigger fired.
	assert.InDelta(t, 0.9, history[0].Influence, 1e-9)
	assert.Equal(t, MutationModification, history[0].Kind)
	assert.Equal(t, Currency(73), history[0].New)

	// A second evolution must wait another full cooldown.
	for i := 0; i < 10; i++ {
		require.NoError(t, e.RecordDecision(bet(200)))
	}
	assert.Len(t, e.EvolutionHistory(), 1)
}

func TestInvalidDecisionRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name string
		d    Decision
	}{
		{"missing actor", Decision{BetAmount: 10, Outcome: OutcomeWin}},
		{"negative bet", Decision{ActorID: "a", BetAmount: -1, Outcome: OutcomeWin}},
		{"NaN bet", Decision{ActorID: "a", BetAmount: math.NaN(), Outcome: OutcomeWin}},
		{"unknown outcome", Decision{ActorID: "a", Outcome: "draw"}},
		{"NaN strategic score", Decision{ActorID: "a", StrategicScore: math.NaN(), Outcome: OutcomeWin}},
		{"infinite moral score", Decision{ActorID: "a", MoralScore: math.Inf(-1), Outcome: OutcomeWin}},
		{"moral weight out of range", Decision{
			ActorID:      "a",
			Outcome:      OutcomeLose,
			MoralOutcome: &MoralOutcome{PieceKind: "n", MoralWeight: 11},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.RecordDecision(tt.d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDecision))
		})
	}
	assert.Zero(t, e.PlayerStats().TotalDecisions)
}

func TestScoresAreUnbounded(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordDecision(Decision{ActorID: "a", StrategicScore: 5000, MoralScore: -2500, Outcome: OutcomeWin}))
	stats := e.PlayerStats()
	assert.Equal(t, 5000.0, stats.AverageStrategicScore)
	assert.Equal(t, -2500.0, stats.AverageMoralScore)
}

func TestMoralAndAuthorityNudges(t *testing.T) {
	e, _ := newTestEngine(t)

	spare := bet(10)
	spare.FollowedSuggestion = true
	spare.MoralOutcome = &MoralOutcome{PieceKind: "p", MoralWeight: 10}
	require.NoError(t, e.RecordDecision(spare))

	r, _ := e.Rule(MoralWeightBase)
	assert.InDelta(t, 0.1, r.Influence, 1e-9)
	r, _ = e.Rule(GodsAuthority)
	assert.InDelta(t, 0.1, r.Influence, 1e-9)

	capture := bet(10)
	capture.MoralOutcome = &MoralOutcome{PieceKind: "p", WasCaptured: true, MoralWeight: 10}
	for i := 0; i < 4; i++ {
		require.NoError(t, e.RecordDecision(capture))
	}
	// Spare rate drops below 0.3 on passes 4 and 5; follow rate drops
	// below 0.4 on passes 3 to 5.
	r, _ = e.Rule(MoralWeightBase)
	assert.InDelta(t, -0.1, r.Influence, 1e-9)
	r, _ = e.Rule(GodsAuthority)
	assert.InDelta(t, -0.2, r.Influence, 1e-9)
}

func TestScoringNudgesAreUpwardOnly(t *testing.T) {
	e, _ := newTestEngine(t)

	d := bet(10)
	d.StrategicScore = 90
	d.MoralScore = 10
	require.NoError(t, e.RecordDecision(d))

	r, _ := e.Rule(ScoringStrategicWeight)
	assert.InDelta(t, 0.1, r.Influence, 1e-9)
	r, _ = e.Rule(ScoringMoralWeight)
	assert.Zero(t, r.Influence)
}

func TestAnalysisWindowIgnoresOldDecisions(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.RecordDecision(bet(100000)))
	r, _ := e.Rule(BettingMinimum)
	before := r.Influence
	for i := 0; i < AnalysisWindow; i++ {
		require.NoError(t, e.RecordDecision(bet(0)))
	}
	// The large bet keeps nudging both betting rules until it leaves the window.
	r, _ = e.Rule(BettingMaximum)
	assert.InDelta(t, 0.1*AnalysisWindow, r.Influence, 1e-6)
	r, _ = e.Rule(BettingMinimum)
	assert.Greater(t, r.Influence, before)

	require.NoError(t, e.RecordDecision(bet(0)))
	r, _ = e.Rule(BettingMaximum)
	assert.InDelta(t, 0.1*AnalysisWindow, r.Influence, 1e-6, "large bet has left the window")
	assert.Equal(t, AnalysisWindow+2, e.PlayerStats().TotalDecisions)
}

func TestRuleValueUnknown(t *testing.T) {
	e, _ := newTestEngine(t)

	v, ok := e.RuleValue("nonexistent-id")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestPlayerStats(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, StatsSummary{}, e.PlayerStats())

	a := bet(100)
	a.FollowedSuggestion = true
	a.StrategicScore = 60
	a.MoralScore = 20
	a.MoralOutcome = &MoralOutcome{PieceKind: "n", MoralWeight: 9}
	b := bet(50)
	b.StrategicScore = 40
	b.MoralScore = 80
	b.MoralOutcome = &MoralOutcome{PieceKind: "q", WasCaptured: true, MoralWeight: 5}
	c := bet(0)

	for _, d := range []Decision{a, b, c} {
		require.NoError(t, e.RecordDecision(d))
	}

	got := e.PlayerStats()
	assert.Equal(t, 3, got.TotalDecisions)
	assert.InDelta(t, 50, got.AverageBet, 1e-9)
	assert.InDelta(t, 1.0/3, got.FollowRate, 1e-9)
	assert.InDelta(t, 0.5, got.SpareRate, 1e-9)
	assert.InDelta(t, 100.0/3, got.AverageStrategicScore, 1e-9)
	assert.InDelta(t, 100.0/3, got.AverageMoralScore, 1e-9)
}

func TestSpareRateZeroWithoutMoralOutcomes(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.RecordDecision(bet(10)))
	assert.Zero(t, e.PlayerStats().SpareRate)
}

func TestReset(t *testing.T) {
	e, clock := newTestEngine(t)
	clock.Advance(8 * 24 * time.Hour)
	for i := 0; i < 7; i++ {
		require.NoError(t, e.RecordDecision(bet(80)))
	}
	require.NotEmpty(t, e.EvolutionHistory())

	e.Reset()

	assert.Empty(t, e.EvolutionHistory())
	assert.Zero(t, e.PlayerStats().TotalDecisions)
	for _, r := range e.ActiveRules() {
		assert.Equal(t, r.Base, r.Current, r.ID)
		assert.Zero(t, r.Influence, r.ID)
		assert.Empty(t, r.History, r.ID)
	}

	require.NoError(t, e.RecordDecision(bet(10)))
	assert.Equal(t, 1, e.PlayerStats().TotalDecisions)
}

func TestActiveRulesAreCopies(t *testing.T) {
	e, _ := newTestEngine(t)

	rules := e.ActiveRules()
	rules[0].Current = Currency(1)
	rules[0].History = append(rules[0].History, EvolutionEvent{RuleID: "x"})

	v, _ := e.RuleValue(BettingMinimum)
	assert.Equal(t, Currency(50), v)
	r, _ := e.Rule(BettingMinimum)
	assert.Empty(t, r.History)
}

func TestSnapshotRestore(t *testing.T) {
	e, clock := newTestEngine(t)
	clock.Advance(8 * 24 * time.Hour)
	for i := 0; i < 7; i++ {
		require.NoError(t, e.RecordDecision(bet(80)))
	}

	snap := e.Snapshot()
	restored, err := Restore(snap, WithClock(clock.Now), WithJitter(fixedJitter(0.5)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	if diff := cmp.Diff(e.ActiveRules(), restored.ActiveRules()); diff != "" {
		t.Errorf("restored rules differ (-want +got):\n%s", diff)
	}
	assert.Equal(t, e.EvolutionHistory(), restored.EvolutionHistory())
	assert.Equal(t, e.PlayerStats(), restored.PlayerStats())
}

func TestRestoreRejectsCategoryMismatch(t *testing.T) {
	snap := Snapshot{Rules: []Rule{{ID: BettingMinimum, Current: ScoreWeight(0.5)}}}
	_, err := Restore(snap)
	assert.Error(t, err)
}

func TestConcurrentRecord(t *testing.T) {
	e, clock := newTestEngine(t)
	clock.Advance(30 * 24 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = e.RecordDecision(bet(80))
				_ = e.PlayerStats()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, e.PlayerStats().TotalDecisions)
	// One cooldown window: betting-minimum evolves exactly once.
	n := 0
	for _, ev := range e.EvolutionHistory() {
		if ev.RuleID == BettingMinimum {
			n++
		}
	}
	assert.Equal(t, 1, n)
}
