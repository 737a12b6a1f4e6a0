package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/zsenarchitect/ManVsGod/internal/entropy"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
)

var simulateFlags struct {
	decisions  int
	followRate float64
	spareRate  float64
	bet        float64
	interval   time.Duration
	seed       int64
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed synthetic decisions through a fresh engine and print its evolutions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if simulateFlags.decisions < 1 {
			return fmt.Errorf("--decisions must be at least 1")
		}
		if simulateFlags.followRate < 0 || simulateFlags.followRate > 1 ||
			simulateFlags.spareRate < 0 || simulateFlags.spareRate > 1 {
			return fmt.Errorf("rates must be between 0 and 1")
		}
		setupLogging(slog.LevelWarn)
		res, err := simulate(simulation{
			Decisions:  simulateFlags.decisions,
			FollowRate: simulateFlags.followRate,
			SpareRate:  simulateFlags.spareRate,
			Bet:        simulateFlags.bet,
			Interval:   simulateFlags.interval,
			Seed:       simulateFlags.seed,
		})
		if err != nil {
			return err
		}
		printSimulation(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simulateFlags.decisions, "decisions", 200, "Number of synthetic decisions")
	f.Float64Var(&simulateFlags.followRate, "follow-rate", 0.7, "Probability a player follows God's suggestion")
	f.Float64Var(&simulateFlags.spareRate, "spare-rate", 0.5, "Probability a player spares the piece")
	f.Float64Var(&simulateFlags.bet, "bet", 80, "Mean bet amount")
	f.DurationVar(&simulateFlags.interval, "interval", time.Hour, "Simulated time between decisions")
	f.Int64Var(&simulateFlags.seed, "seed", 42, "Random seed")
}

type simulation struct {
	Decisions  int
	FollowRate float64
	SpareRate  float64
	Bet        float64
	Interval   time.Duration
	Seed       int64
}

type simulationResult struct {
	Events   []rules.EvolutionEvent
	Snapshot rules.Snapshot
	Stats    rules.StatsSummary
	Elapsed  time.Duration
	End      time.Time
}

// simulate runs the decisions against a simulated clock starting at a fixed
// instant, so a given seed always produces the same evolutions.
func simulate(s simulation) (simulationResult, error) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	rng := rand.New(rand.NewSource(s.Seed))

	var events []rules.EvolutionEvent
	engine := rules.NewEngine(
		rules.WithClock(func() time.Time { return now }),
		rules.WithJitter(entropy.NewNoise(s.Seed)),
		rules.WithLogger(slog.Default()),
		rules.OnEvolve(func(ev rules.EvolutionEvent) { events = append(events, ev) }),
	)

	for i := 0; i < s.Decisions; i++ {
		now = now.Add(s.Interval)
		followed := rng.Float64() < s.FollowRate
		spared := rng.Float64() < s.SpareRate

		moral := 30.0
		if spared {
			moral = 100
		}
		d := rules.Decision{
			ActorID:             fmt.Sprintf("sim-%d", i%25),
			LevelIndex:          i%5 + 1,
			ChosenMove:          "e4e5",
			BetAmount:           s.Bet * (0.5 + rng.Float64()),
			SuggestedMove:       "spare",
			SuggestedConfidence: 70,
			FollowedSuggestion:  followed,
			MoralOutcome: &rules.MoralOutcome{
				PieceKind:   "pawn",
				WasCaptured: !spared,
				MoralWeight: 5,
			},
			StrategicScore: float64(50 + rng.Intn(100)),
			MoralScore:     moral,
			Outcome:        rules.OutcomeContinue,
		}
		if !followed {
			d.DisobedienceCost = 150
		}
		if err := engine.RecordDecision(d); err != nil {
			return simulationResult{}, fmt.Errorf("decision %d: %w", i, err)
		}
	}

	return simulationResult{
		Events:   events,
		Snapshot: engine.Snapshot(),
		Stats:    engine.PlayerStats(),
		Elapsed:  now.Sub(start),
		End:      now,
	}, nil
}

func printSimulation(w io.Writer, res simulationResult) {
	fmt.Fprintf(w, "Simulated %d decisions over %s\n", res.Stats.TotalDecisions, res.Elapsed)
	fmt.Fprintf(w, "follow rate %.2f, spare rate %.2f, average bet %.1f\n\n",
		res.Stats.FollowRate, res.Stats.SpareRate, res.Stats.AverageBet)

	for _, ev := range res.Events {
		fmt.Fprintf(w, "%s  %-26s %s -> %s  (%s, influence %+.2f)\n",
			ev.Timestamp.Format(time.DateTime), ev.RuleID,
			formatValue(ev.Previous), formatValue(ev.New), ev.Kind, ev.Influence)
	}
	if len(res.Events) == 0 {
		fmt.Fprintln(w, "no evolutions")
	}
	fmt.Fprintln(w)
	printRules(w, res.Snapshot, res.End)
}
