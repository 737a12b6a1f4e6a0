// Package rules implements the dynamic rules engine: a registry of gameplay
// parameters that drift over time in response to aggregate player behavior.
//
// Callers record one Decision per completed turn. Each record re-analyzes the
// most recent AnalysisWindow decisions, nudges per-rule influence, and evolves
// any rule whose influence has crossed its threshold once the cooldown has
// elapsed since its last evolution.
package rules

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidDecision is returned by RecordDecision when a decision fails
// shape validation. Nothing is recorded in that case.
var ErrInvalidDecision = errors.New("invalid decision")

var validate = validator.New()

// Outcome is the game state after the turn a decision describes.
type Outcome string

const (
	OutcomeWin      Outcome = "win"
	OutcomeLose     Outcome = "lose"
	OutcomeContinue Outcome = "continue"
)

// MoralOutcome is present on decisions that resolved a moral dilemma.
type MoralOutcome struct {
	PieceKind   string  `json:"pieceKind"`
	WasCaptured bool    `json:"wasCaptured"`
	MoralWeight float64 `json:"moralWeight" validate:"gte=1,lte=10"`
	Backstory   string  `json:"backstory,omitempty"`
}

// Decision is one player's situational snapshot for a completed turn.
// Decisions are immutable once recorded.
type Decision struct {
	ActorID             string        `json:"actorId" validate:"required"`
	Timestamp           time.Time     `json:"timestamp"`
	LevelIndex          int           `json:"levelIndex" validate:"gte=0"`
	PieceKind           string        `json:"pieceKind"`
	Position            string        `json:"position"`
	ChosenMove          string        `json:"chosenMove"`
	BetAmount           float64       `json:"betAmount" validate:"gte=0"`
	SuggestedMove       string        `json:"suggestedMove"`
	SuggestedConfidence float64       `json:"suggestedConfidence" validate:"gte=0,lte=100"`
	FollowedSuggestion  bool          `json:"followedSuggestion"`
	DisobedienceCost    float64       `json:"disobedienceCost" validate:"gte=0"`
	MoralOutcome        *MoralOutcome `json:"moralOutcome,omitempty"`
	StrategicScore      float64       `json:"strategicScore"`
	MoralScore          float64       `json:"moralScore"`
	Outcome             Outcome       `json:"outcome" validate:"required,oneof=win lose continue"`
	DecisionTime        time.Duration `json:"decisionTime,omitempty"`
}

// Validate checks the decision's shape. Scores are unbounded but must be
// finite, so they never poison the aggregate statistics.
func (d Decision) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	for name, v := range map[string]float64{"strategicScore": d.StrategicScore, "moralScore": d.MoralScore} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidDecision, name)
		}
	}
	return nil
}

// Spared reports whether the decision carried a moral outcome that spared the piece.
func (d Decision) Spared() bool {
	return d.MoralOutcome != nil && !d.MoralOutcome.WasCaptured
}
