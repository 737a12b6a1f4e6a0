package levels

import (
	"math"
	"slices"

	"github.com/zsenarchitect/ManVsGod/internal/dilemma"
	"github.com/zsenarchitect/ManVsGod/internal/entropy"
)

// rebellionGap is how far the player's bet must stray from God's to earn
// the rebellion bonus.
const rebellionGap = 20

// LevelScore scores a played level. Unknown levels score 0.
func (c *Catalog) LevelScore(id, choice, playerBet, godBet int) int {
	l, ok := c.find(id)
	if !ok {
		return 0
	}

	score := l.BaseScore
	if abs(playerBet-godBet) > rebellionGap {
		score += l.RebellionBonus
	}
	score += int(math.Floor(float64(playerBet) / 10))

	w, _ := c.MoralWeight(id)
	if choice == ChoiceCapture {
		score -= int(math.Floor(w))
	} else {
		score += int(math.Floor(w * 2))
	}
	return score
}

// GodBet is God's confidence for a level, 10 to 90. Characters heavier than
// 5 pull it to 70, lighter ones to 30, and src adds up to 10 either way.
// Unknown levels get 50.
func (c *Catalog) GodBet(id int, src entropy.Source) int {
	if _, ok := c.find(id); !ok {
		return 50
	}

	confidence := 50 + float64(id)*5
	if w, ok := c.MoralWeight(id); ok {
		confidence = 30
		if w > 5 {
			confidence = 70
		}
	}
	confidence += (entropy.FromSource(src) - 0.5) * 20
	confidence = math.Max(10, math.Min(90, confidence))
	return int(math.Floor(confidence + 0.5))
}

// MaxScore is the best total without moral adjustments or bet bonuses.
func (c *Catalog) MaxScore() int {
	total := 0
	for _, l := range c.levels {
		total += l.BaseScore + l.RebellionBonus
	}
	return total
}

func ValidateMove(move string, available []string) bool {
	return slices.Contains(available, move)
}

// MoralChoice is the resolved dilemma of a played level.
type MoralChoice struct {
	Captured              bool     `json:"captured"`
	MoralWeight           float64  `json:"moralWeight"`
	Consequences          []string `json:"consequences"`
	PhilosophicalAnalysis string   `json:"philosophicalAnalysis"`
}

// ProcessMoralChoice resolves choice on level id.
func (c *Catalog) ProcessMoralChoice(id, choice int) (MoralChoice, error) {
	d, ok := c.dilemmas[id]
	if !ok {
		return MoralChoice{}, ErrLevelNotFound
	}
	captured := choice == ChoiceCapture
	return MoralChoice{
		Captured:              captured,
		MoralWeight:           d.Backstory.MoralWeight,
		Consequences:          dilemma.Consequences(captured, d.Backstory),
		PhilosophicalAnalysis: dilemma.PhilosophicalAnalysis(captured),
	}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
