// Package dilemma turns chess captures into moral choices: each piece gets
// a character, and the player decides whether to capture or spare it.
package dilemma

import (
	"fmt"
	"math/rand"
)

const fallbackKey = "innocent-pawn"

// levelBackstories pins the campaign levels to fixed characters.
var levelBackstories = map[int]string{
	1: "innocent-pawn",
	2: "young-knight",
	3: "old-knight",
	4: "refusing-knight",
	5: "killing-queen",
	6: "former-enemy-bishop",
}

var themes = []string{
	"Utilitarianism vs Deontology",
	"Individual vs Collective Good",
	"Justice vs Mercy",
	"Short-term vs Long-term Consequences",
	"Forgiveness vs Revenge",
	"Past vs Present Priorities",
}

// Difficulty grades a dilemma by level.
type Difficulty string

const (
	Easy    Difficulty = "easy"
	Medium  Difficulty = "medium"
	Hard    Difficulty = "hard"
	Extreme Difficulty = "extreme"
)

// CaptureChoice is the strategic option.
type CaptureChoice struct {
	Text             string   `json:"text"`
	Consequences     []string `json:"consequences"`
	MoralCost        float64  `json:"moralCost"`
	StrategicBenefit float64  `json:"strategicBenefit"`
}

// SpareChoice is the merciful option.
type SpareChoice struct {
	Text          string   `json:"text"`
	Consequences  []string `json:"consequences"`
	MoralBenefit  float64  `json:"moralBenefit"`
	StrategicCost float64  `json:"strategicCost"`
}

// Dilemma is the content shown for one capture decision.
type Dilemma struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Piece       string        `json:"piece"`
	Position    string        `json:"position"`
	Backstory   Backstory     `json:"backstory"`
	Capture     CaptureChoice `json:"capture"`
	Spare       SpareChoice   `json:"spare"`
	Themes      []string      `json:"philosophicalThemes"`
	Difficulty  Difficulty    `json:"difficulty"`
}

// Generator builds dilemmas. Levels without a fixed character draw one at
// random from the catalogue.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator whose random draws come from rng. A nil
// rng uses a fixed seed.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Generator{rng: rng}
}

// Generate builds the dilemma for a piece at position on level. The piece
// and position in the result come from the chosen character.
func (g *Generator) Generate(piece, position string, level int) Dilemma {
	b := g.backstory(level)
	w := b.MoralWeight

	return Dilemma{
		ID:          fmt.Sprintf("dilemma-%d-%s-%s", level, piece, position),
		Title:       fmt.Sprintf("The %s's Choice", b.Role),
		Description: fmt.Sprintf("You face %s, %s", b.Name, b.Story),
		Piece:       b.Piece,
		Position:    b.Position,
		Backstory:   b,
		Capture: CaptureChoice{
			Text: "Capture " + b.Name,
			Consequences: []string{
				b.OnCapture,
				"You gain a tactical advantage",
				"You may lose moral standing",
			},
			MoralCost:        w,
			StrategicBenefit: 10 - w,
		},
		Spare: SpareChoice{
			Text: "Spare " + b.Name,
			Consequences: []string{
				b.OnSpare,
				"You maintain your honor",
				"You may face strategic consequences",
			},
			MoralBenefit:  w,
			StrategicCost: w,
		},
		Themes:     append([]string(nil), themes...),
		Difficulty: DifficultyFor(level),
	}
}

func (g *Generator) backstory(level int) Backstory {
	key, ok := levelBackstories[level]
	if !ok {
		key = catalogue[g.rng.Intn(len(catalogue))].Key
	}
	if b, ok := Lookup(key); ok {
		return b
	}
	b, _ := Lookup(fallbackKey)
	return b
}

func DifficultyFor(level int) Difficulty {
	switch {
	case level <= 2:
		return Easy
	case level <= 3:
		return Medium
	case level <= 4:
		return Hard
	default:
		return Extreme
	}
}

// Choice is one resolved dilemma.
type Choice struct {
	Captured    bool    `json:"captured"`
	MoralWeight float64 `json:"moralWeight"`
}

// MoralScore is the weight-share of spared pieces, 0 to 100. With no
// choices it is a neutral 50.
func MoralScore(choices []Choice) float64 {
	var spared, total float64
	for _, c := range choices {
		total += c.MoralWeight
		if !c.Captured {
			spared += c.MoralWeight
		}
	}
	if total == 0 {
		return 50
	}
	return spared / total * 100
}

// Consequences describes the aftermath of a choice.
func Consequences(captured bool, b Backstory) []string {
	if captured {
		return []string{
			b.OnCapture,
			"You chose tactical advantage over moral considerations",
			"Your reputation may suffer",
			"You may face guilt or regret",
		}
	}
	return []string{
		b.OnSpare,
		"You chose moral principles over tactical advantage",
		"Your honor is preserved",
		"You may face strategic consequences",
	}
}

// PhilosophicalAnalysis frames the choice philosophically.
func PhilosophicalAnalysis(captured bool) string {
	if captured {
		return "This choice reflects utilitarian thinking - maximizing overall benefit by eliminating a threat, even at moral cost. However, it may violate deontological principles of treating individuals as ends rather than means."
	}
	return "This choice reflects deontological thinking - upholding moral principles regardless of consequences. However, it may lead to greater overall harm if the spared piece causes more damage later."
}
