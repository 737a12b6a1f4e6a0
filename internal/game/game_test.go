package game

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsenarchitect/ManVsGod/internal/decisions"
	"github.com/zsenarchitect/ManVsGod/internal/levels"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

type fixed float64

func (f fixed) Float64() float64 { return float64(f) }

type flatNoise struct{}

func (flatNoise) At(time.Time, float64) float64 { return 0.5 }

type memStore struct {
	mu sync.Mutex
	ds []decisions.ScenarioDecision
}

func (m *memStore) Append(_ context.Context, d decisions.ScenarioDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ds = append(m.ds, d)
	return nil
}

func (m *memStore) ReadAll(context.Context) ([]decisions.ScenarioDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]decisions.ScenarioDecision{}, m.ds...), nil
}

type fixture struct {
	svc    *Service
	engine *rules.Engine
	store  *memStore
	hooked []rules.Decision
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	catalog, err := levels.NewCatalog(nil, nil)
	require.NoError(t, err)

	f := &fixture{store: &memStore{}}
	f.engine = rules.NewEngine(rules.WithClock(clock), rules.WithJitter(fixed(0.5)), rules.WithLogger(quiet))
	f.svc = NewService(catalog, f.engine,
		WithStore(f.store),
		WithJitter(fixed(0.5)),
		WithNoise(flatNoise{}),
		WithSink(telemetry.NewSink(telemetry.WithLogger(quiet))),
		WithClock(clock),
		OnDecision(func(d rules.Decision) { f.hooked = append(f.hooked, d) }),
	)
	return f
}

func TestStart(t *testing.T) {
	f := newFixture(t)

	s := f.svc.Start("alice")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "alice", s.PlayerID)
	assert.Equal(t, 1, s.Level)
	assert.True(t, decimal.NewFromInt(1000).Equal(s.Currency))
	assert.Equal(t, 1, f.svc.Count())

	anon := f.svc.Start("")
	assert.Contains(t, anon.PlayerID, "player_")

	got, err := f.svc.Session(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestPlayFollowingGod(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Start("alice")

	res, err := f.svc.Play(context.Background(), s.ID, Turn{Choice: levels.ChoiceSpare, Move: "e4e5", Bet: 100, Confidence: 50})
	require.NoError(t, err)

	assert.Equal(t, 70, res.GodBet)
	assert.True(t, res.FollowedGod)
	assert.Equal(t, 75, res.Score)
	assert.True(t, decimal.Zero.Equal(res.DisobedienceCost))
	assert.True(t, decimal.NewFromInt(975).Equal(res.Currency))
	assert.Equal(t, rules.OutcomeContinue, res.Outcome)
	assert.InDelta(t, 67, res.Probabilities.ChoiceA, 1e-9)

	got, err := f.svc.Session(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
	assert.Equal(t, 75, got.TotalScore)
	assert.Equal(t, 100.0, got.MoralScore)
	assert.InDelta(t, 87.5, got.Weighted, 1e-9)
	assert.Len(t, got.Turns, 1)

	ds := f.engine.Decisions()
	require.Len(t, ds, 1)
	assert.Equal(t, "alice", ds[0].ActorID)
	assert.Equal(t, "spare", ds[0].SuggestedMove)
	assert.True(t, ds[0].FollowedSuggestion)
	require.NotNil(t, ds[0].MoralOutcome)
	assert.False(t, ds[0].MoralOutcome.WasCaptured)
	assert.Equal(t, "innocent-pawn", ds[0].MoralOutcome.Backstory)
	assert.Len(t, f.hooked, 1)

	require.Len(t, f.store.ds, 1)
	assert.Equal(t, 1, f.store.ds[0].ScenarioID)
	assert.Equal(t, levels.ChoiceSpare, f.store.ds[0].Choice)
	assert.Equal(t, "alice", f.store.ds[0].PlayerID)
}

func TestPlayDisobeying(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Start("bob")
	ctx := context.Background()

	_, err := f.svc.Play(ctx, s.ID, Turn{Choice: levels.ChoiceSpare, Move: "e4e5", Bet: 100, Confidence: 50})
	require.NoError(t, err)

	res, err := f.svc.Play(ctx, s.ID, Turn{Choice: levels.ChoiceCapture, Move: "f3e5", Bet: 50, Confidence: 95})
	require.NoError(t, err)

	assert.False(t, res.FollowedGod)
	assert.True(t, decimal.NewFromInt(150).Equal(res.DisobedienceCost))
	assert.True(t, decimal.NewFromInt(800).Equal(res.Currency))
	// base 75, rebellion 35, confidence 9, capture -9
	assert.Equal(t, 110, res.Score)
	assert.True(t, res.MoralChoice.Captured)

	got, err := f.svc.Session(s.ID)
	require.NoError(t, err)
	assert.InDelta(t, 10.0/19*100, got.MoralScore, 1e-9)
}

func TestPlayFullCampaign(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Start("carol")
	ctx := context.Background()

	turns := []Turn{
		{Choice: levels.ChoiceSpare, Move: "e4e5", Bet: 50, Confidence: 50},
		{Choice: levels.ChoiceSpare, Move: "f3e5", Bet: 50, Confidence: 50},
		{Choice: levels.ChoiceSpare, Move: "b1c3", Bet: 50, Confidence: 50},
		{Choice: levels.ChoiceSpare, Move: "c1e3", Bet: 50, Confidence: 50},
		{Choice: levels.ChoiceCapture, Move: "d1e2", Bet: 50, Confidence: 50},
	}
	for i, turn := range turns {
		res, err := f.svc.Play(ctx, s.ID, turn)
		require.NoError(t, err, "level %d", i+1)
		assert.True(t, res.FollowedGod, "level %d", i+1)
	}

	got, err := f.svc.Session(s.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, rules.OutcomeWin, got.Outcome)
	assert.Equal(t, 588, got.TotalScore)
	assert.Equal(t, "Master", got.Ranking)
	assert.Equal(t, "Virtuous", got.MoralRanking)
	assert.True(t, decimal.NewFromInt(875).Equal(got.Currency))
	assert.Len(t, f.engine.Decisions(), 5)
	assert.Equal(t, rules.OutcomeWin, f.engine.Decisions()[4].Outcome)

	_, err = f.svc.Play(ctx, s.ID, turns[0])
	assert.ErrorIs(t, err, ErrSessionComplete)
	_, err = f.svc.CurrentLevel(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionComplete)
}

func TestPlayLosesWhenPurseEmpties(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Start("dave")
	f.svc.sessions[s.ID].state.Currency = decimal.NewFromInt(60)

	res, err := f.svc.Play(context.Background(), s.ID, Turn{Choice: levels.ChoiceCapture, Move: "e4d5", Bet: 50, Confidence: 50})
	require.NoError(t, err)
	assert.Equal(t, rules.OutcomeLose, res.Outcome)
	assert.True(t, res.Currency.IsZero())

	got, err := f.svc.Session(s.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 1, got.Level)
}

func TestPlayRejections(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Start("erin")
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		turn Turn
		want error
	}{
		{"unknown session", "nope", Turn{Choice: 1, Move: "e4e5", Bet: 100}, ErrSessionNotFound},
		{"bad choice", s.ID, Turn{Choice: 3, Move: "e4e5", Bet: 100}, ErrInvalidTurn},
		{"missing move", s.ID, Turn{Choice: 1, Bet: 100}, ErrInvalidTurn},
		{"illegal move", s.ID, Turn{Choice: 1, Move: "a2a4", Bet: 100}, ErrInvalidMove},
		{"bet under minimum", s.ID, Turn{Choice: 1, Move: "e4e5", Bet: 10}, ErrBetOutOfRange},
		{"bet over maximum", s.ID, Turn{Choice: 1, Move: "e4e5", Bet: 501}, ErrBetOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Play(ctx, tt.id, tt.turn)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	f.svc.sessions[s.ID].state.Currency = decimal.NewFromInt(60)
	_, err := f.svc.Play(ctx, s.ID, Turn{Choice: 1, Move: "e4e5", Bet: 100})
	assert.ErrorIs(t, err, ErrInsufficientCurrency)

	assert.Empty(t, f.engine.Decisions())
	got, err := f.svc.Session(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Level)
}

func TestCurrentLevel(t *testing.T) {
	f := newFixture(t)
	s := f.svc.Start("frank")

	l, err := f.svc.CurrentLevel(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, l.ID)
	assert.Equal(t, "Spare Peasant Tom", l.ChoiceB)

	_, err = f.svc.CurrentLevel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBetLimitsFollowRules(t *testing.T) {
	f := newFixture(t)
	lo, hi := f.svc.BetLimits()
	assert.Equal(t, int64(50), lo)
	assert.Equal(t, int64(500), hi)
}
