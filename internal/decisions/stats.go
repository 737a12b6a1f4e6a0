package decisions

import (
	"math"
	"time"
)

// ScenarioStats is the crowd split on one scenario.
type ScenarioStats struct {
	ScenarioID        int     `json:"scenarioId"`
	TotalPlayers      int     `json:"totalPlayers"`
	ChoiceACount      int     `json:"choiceACount"`
	ChoiceBCount      int     `json:"choiceBCount"`
	ChoiceAPercentage float64 `json:"choiceAPercentage"`
	ChoiceBPercentage float64 `json:"choiceBPercentage"`
}

// Stats tallies scenarioID. With no decisions both sides are 50%.
func Stats(ds []ScenarioDecision, scenarioID int) ScenarioStats {
	s := ScenarioStats{ScenarioID: scenarioID}
	for _, d := range ds {
		if d.ScenarioID != scenarioID {
			continue
		}
		s.TotalPlayers++
		switch d.Choice {
		case 0:
			s.ChoiceACount++
		case 1:
			s.ChoiceBCount++
		}
	}
	if s.TotalPlayers == 0 {
		s.ChoiceAPercentage, s.ChoiceBPercentage = 50, 50
		return s
	}
	n := float64(s.TotalPlayers)
	s.ChoiceAPercentage = float64(s.ChoiceACount) / n * 100
	s.ChoiceBPercentage = float64(s.ChoiceBCount) / n * 100
	return s
}

// AllStats tallies every scenario present, in first-seen order.
func AllStats(ds []ScenarioDecision) []ScenarioStats {
	seen := make(map[int]bool)
	var out []ScenarioStats
	for _, d := range ds {
		if seen[d.ScenarioID] {
			continue
		}
		seen[d.ScenarioID] = true
		out = append(out, Stats(ds, d.ScenarioID))
	}
	return out
}

// TimeNoise varies smoothly with time. entropy.Noise implements it.
type TimeNoise interface {
	At(t time.Time, lane float64) float64
}

// DynamicProbabilities shifts base by up to 10 points over time and by a
// fixed per-scenario offset, keeping choice A within 10..90.
func DynamicProbabilities(scenarioID int, base float64, noise TimeNoise, t time.Time) Probabilities {
	var phase float64
	if noise != nil {
		phase = noise.At(t, float64(scenarioID))
	} else {
		phase = float64(t.UnixMilli()%10000) / 10000
	}
	timeVariation := phase*20 - 10
	scenarioVariation := float64((scenarioID*7)%20 - 10)

	a := math.Max(10, math.Min(90, base+timeVariation+scenarioVariation))
	return Probabilities{ChoiceA: a, ChoiceB: 100 - a}
}
