// Package levels holds the campaign: five boards, each paired with a moral
// dilemma, plus the scoring and ranking rules applied to a played level.
package levels

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/zsenarchitect/ManVsGod/internal/chess"
	"github.com/zsenarchitect/ManVsGod/internal/dilemma"
)

//go:embed levels.yaml
var levelsYAML []byte

var ErrLevelNotFound = errors.New("level not found")

// Choice indexes follow the board UI: A captures, B spares.
const (
	ChoiceCapture = 0
	ChoiceSpare   = 1
)

type Cost struct {
	Move                int `yaml:"move" json:"moveCost"`
	DisobediencePenalty int `yaml:"disobediencePenalty" json:"disobediencePenalty"`
	SurvivalBonus       int `yaml:"survivalBonus" json:"survivalBonus"`
}

// GodMove is the crowd's suggestion for a level: "spare" or "capture".
type GodMove struct {
	Suggestion string  `yaml:"suggestion" json:"suggestedMove"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
	Reasoning  string  `yaml:"reasoning" json:"reasoning"`
}

type Consequences struct {
	ChoiceA string `yaml:"choiceA" json:"choiceA"`
	ChoiceB string `yaml:"choiceB" json:"choiceB"`
}

// Level is one campaign step.
type Level struct {
	ID                   int              `yaml:"id" json:"id"`
	Title                string           `yaml:"title" json:"title"`
	Description          string           `yaml:"description" json:"description"`
	Piece                string           `yaml:"piece" json:"piece"`
	Position             string           `yaml:"position" json:"position"`
	Board                string           `yaml:"board" json:"boardState"`
	Moves                []string         `yaml:"moves" json:"availableMoves"`
	ChoiceA              string           `yaml:"choiceA" json:"choiceA"`
	ChoiceB              string           `yaml:"choiceB" json:"choiceB"`
	Hazard               string           `yaml:"hazard" json:"hazard"`
	Difficulty           string           `yaml:"difficulty" json:"difficulty"`
	Category             string           `yaml:"category" json:"category"`
	Themes               []string         `yaml:"themes" json:"philosophicalThemes"`
	BaseScore            int              `yaml:"baseScore" json:"baseScore"`
	RebellionBonus       int              `yaml:"rebellionBonus" json:"rebellionBonus"`
	ProbabilityIntensity float64          `yaml:"probabilityIntensity" json:"probabilityIntensity"`
	Background           string           `yaml:"background" json:"background"`
	Consequences         Consequences     `yaml:"consequences" json:"consequences"`
	Cost                 Cost             `yaml:"cost" json:"currencyCost"`
	GodMove              GodMove          `yaml:"godMove" json:"godMove"`
	Puzzle               *chess.Puzzle    `yaml:"-" json:"chessProblem,omitempty"`
	Dilemma              *dilemma.Dilemma `yaml:"-" json:"moralDilemma,omitempty"`
}

func (l Level) clone() Level {
	l.Moves = slices.Clone(l.Moves)
	l.Themes = slices.Clone(l.Themes)
	if l.Puzzle != nil {
		p := *l.Puzzle
		l.Puzzle = &p
	}
	if l.Dilemma != nil {
		d := *l.Dilemma
		l.Dilemma = &d
	}
	return l
}

type Rankings struct {
	Master int `yaml:"master" json:"master"`
	Expert int `yaml:"expert" json:"expert"`
	Adept  int `yaml:"adept" json:"adept"`
	Novice int `yaml:"novice" json:"novice"`
}

type MoralThresholds struct {
	Saint    float64 `yaml:"saint" json:"saint"`
	Virtuous float64 `yaml:"virtuous" json:"virtuous"`
	Neutral  float64 `yaml:"neutral" json:"neutral"`
	Corrupt  float64 `yaml:"corrupt" json:"corrupt"`
}

// GameConfig holds the campaign-wide constants.
type GameConfig struct {
	StartingCurrency int             `yaml:"startingCurrency" json:"startingCurrency"`
	Rankings         Rankings        `yaml:"rankings" json:"rankingThresholds"`
	Moral            MoralThresholds `yaml:"moral" json:"moralThresholds"`
}

// Ranking grades a total score.
func (c GameConfig) Ranking(score int) string {
	switch {
	case score >= c.Rankings.Master:
		return "Master"
	case score >= c.Rankings.Expert:
		return "Expert"
	case score >= c.Rankings.Adept:
		return "Adept"
	default:
		return "Novice"
	}
}

// MoralRanking grades a 0..100 moral score.
func (c GameConfig) MoralRanking(score float64) string {
	switch {
	case score >= c.Moral.Saint:
		return "Saint"
	case score >= c.Moral.Virtuous:
		return "Virtuous"
	case score >= c.Moral.Neutral:
		return "Neutral"
	default:
		return "Corrupt"
	}
}

type file struct {
	Game   GameConfig `yaml:"game"`
	Levels []Level    `yaml:"levels"`
}

func parse(data []byte) (file, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return file{}, fmt.Errorf("decode levels: %w", err)
	}
	if len(f.Levels) == 0 {
		return file{}, errors.New("decode levels: no levels defined")
	}
	for i, l := range f.Levels {
		if l.ID != i+1 {
			return file{}, fmt.Errorf("decode levels: level %d has id %d", i+1, l.ID)
		}
		if _, err := chess.ParseBoard(l.Board); err != nil {
			return file{}, fmt.Errorf("decode levels: level %d: %w", l.ID, err)
		}
	}
	return f, nil
}

// PuzzleSource supplies the chess problem shown on a level's board.
type PuzzleSource interface {
	ForLevel(ctx context.Context, level int) chess.Puzzle
}

// Catalog is the loaded campaign. It is read-only after construction and
// safe for concurrent use.
type Catalog struct {
	config   GameConfig
	levels   []Level
	dilemmas map[int]dilemma.Dilemma
	puzzles  PuzzleSource
}

// NewCatalog decodes the embedded campaign and generates each level's
// dilemma with gen. A nil puzzles keeps the embedded boards.
func NewCatalog(gen *dilemma.Generator, puzzles PuzzleSource) (*Catalog, error) {
	f, err := parse(levelsYAML)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		gen = dilemma.NewGenerator(nil)
	}

	c := &Catalog{
		config:   f.Game,
		levels:   f.Levels,
		dilemmas: make(map[int]dilemma.Dilemma, len(f.Levels)),
		puzzles:  puzzles,
	}
	for _, l := range f.Levels {
		c.dilemmas[l.ID] = gen.Generate(l.Piece, l.Position, l.ID)
	}
	return c, nil
}

func (c *Catalog) Config() GameConfig { return c.config }

func (c *Catalog) Count() int { return len(c.levels) }

// All returns the levels as embedded, without dilemma or puzzle enrichment.
func (c *Catalog) All() []Level {
	out := make([]Level, len(c.levels))
	for i, l := range c.levels {
		out[i] = l.clone()
	}
	return out
}

func (c *Catalog) find(id int) (Level, bool) {
	if id < 1 || id > len(c.levels) {
		return Level{}, false
	}
	return c.levels[id-1], true
}

// Load returns level id enriched with its dilemma and chess problem. The
// dilemma rewrites the choices, background and god move; the puzzle, when
// one is available, replaces the board and move list.
func (c *Catalog) Load(ctx context.Context, id int) (Level, error) {
	base, ok := c.find(id)
	if !ok {
		return Level{}, fmt.Errorf("level %d: %w", id, ErrLevelNotFound)
	}
	l := base.clone()

	d := c.dilemmas[id]
	w := d.Backstory.MoralWeight
	l.Dilemma = &d
	l.ChoiceA = d.Capture.Text
	l.ChoiceB = d.Spare.Text
	l.Background = d.Description
	l.Themes = slices.Clone(d.Themes)
	l.Consequences = Consequences{ChoiceA: d.Capture.Consequences[0], ChoiceB: d.Spare.Consequences[0]}
	l.GodMove = godMoveFor(w)

	if c.puzzles != nil {
		p := c.puzzles.ForLevel(ctx, id)
		if p.FEN == "" || len(p.Moves) == 0 {
			slog.Warn("no chess problem for level, keeping embedded board", "level", id)
		} else {
			l.Puzzle = &p
			l.Board = p.FEN
			l.Moves = slices.Clone(p.Moves)
		}
	}

	slog.Debug("level loaded", "level", id, "title", l.Title)
	return l, nil
}

func godMoveFor(weight float64) GodMove {
	m := GodMove{
		Suggestion: "capture",
		Confidence: math.Min(95, 50+weight*5),
		Reasoning:  fmt.Sprintf("Moral weight of %v/10 influences the collective wisdom", weight),
	}
	if weight > 5 {
		m.Suggestion = "spare"
	}
	return m
}

// MoralWeight returns the weight of the character on level id.
func (c *Catalog) MoralWeight(id int) (float64, bool) {
	d, ok := c.dilemmas[id]
	if !ok {
		return 0, false
	}
	return d.Backstory.MoralWeight, true
}
