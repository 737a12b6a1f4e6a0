package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsenarchitect/ManVsGod/internal/rules"
)

func TestSimulateIsDeterministic(t *testing.T) {
	s := simulation{Decisions: 120, FollowRate: 0.8, SpareRate: 0.6, Bet: 80, Interval: time.Hour, Seed: 7}

	a, err := simulate(s)
	require.NoError(t, err)
	b, err := simulate(s)
	require.NoError(t, err)

	assert.Equal(t, 120, a.Stats.TotalDecisions)
	assert.Equal(t, 120*time.Hour, a.Elapsed)
	if diff := cmp.Diff(a.Events, b.Events); diff != "" {
		t.Errorf("evolutions differ between runs (-first +second):\n%s", diff)
	}
	assert.Len(t, a.Snapshot.History, len(a.Events))
}

func TestPrintRules(t *testing.T) {
	var buf bytes.Buffer
	now := time.Now()
	printRules(&buf, rules.NewEngine(rules.WithClock(func() time.Time { return now })).Snapshot(), now)

	out := buf.String()
	for _, id := range []string{rules.BettingMinimum, rules.BettingMaximum, rules.GodsAuthority} {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, "0 decisions, 0 evolutions")
}

func TestPrintSimulation(t *testing.T) {
	res, err := simulate(simulation{Decisions: 10, FollowRate: 1, SpareRate: 1, Bet: 80, Interval: time.Minute, Seed: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSimulation(&buf, res)
	assert.True(t, strings.HasPrefix(buf.String(), "Simulated 10 decisions over 10m0s"))
}

func TestAnalyzeCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"analyze", "4k3/8/8/3q4/4P3/8/8/R3K1N1 w - - 0 1", "--square", "g1"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "g1 ♘ White Knight: g1e2 g1f3 g1h3\n", buf.String())
}

func TestPieceLabel(t *testing.T) {
	assert.Equal(t, "♛ Black Queen", pieceLabel('q'))
	assert.Equal(t, "empty", pieceLabel(0))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1,500", formatValue(rules.Currency(1500)))
	assert.Equal(t, "0.7", formatValue(rules.ScoreWeight(0.7)))
}
