package rules

import "time"

// Seeded rule IDs.
const (
	BettingMinimum         = "betting-minimum"
	BettingMaximum         = "betting-maximum"
	MoralWeightBase        = "moral-weight-base"
	GodsAuthority          = "gods-authority"
	ScoringStrategicWeight = "scoring-strategic-weight"
	ScoringMoralWeight     = "scoring-moral-weight"
)

// MutationKind classifies an evolution by the influence that drove it.
type MutationKind string

const (
	MutationAddition      MutationKind = "addition"
	MutationModification  MutationKind = "modification"
	MutationRemoval       MutationKind = "removal"
	MutationRecombination MutationKind = "recombination"
)

// Rule is a named, mutable gameplay parameter.
type Rule struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"name"`
	Category      Category         `json:"category"`
	Current       Value            `json:"currentValue"`
	Base          Value            `json:"baseValue"`
	Influence     float64          `json:"influence"`
	Threshold     float64          `json:"threshold"`
	LastEvolvedAt time.Time        `json:"lastEvolvedAt"`
	History       []EvolutionEvent `json:"history"`
	Active        bool             `json:"active"`
}

// EvolutionEvent records one applied mutation. Events are append-only.
type EvolutionEvent struct {
	RuleID                string       `json:"ruleId"`
	Category              Category     `json:"category"`
	Previous              Value        `json:"previousValue"`
	New                   Value        `json:"newValue"`
	Trigger               string       `json:"trigger"`
	Influence             float64      `json:"influence"`
	EstimatedSuccessRate  float64      `json:"estimatedSuccessRate"`
	EstimatedAdoptionRate float64      `json:"estimatedAdoptionRate"`
	Timestamp             time.Time    `json:"timestamp"`
	Kind                  MutationKind `json:"mutationKind"`
}

func (r *Rule) clone() Rule {
	c := *r
	c.History = append([]EvolutionEvent(nil), r.History...)
	return c
}

type seed struct {
	id        string
	name      string
	base      Value
	threshold float64
}

var seeds = []seed{
	{BettingMinimum, "Minimum Bet Amount", Currency(50), 0.7},
	{BettingMaximum, "Maximum Bet Amount", Currency(500), 0.7},
	{MoralWeightBase, "Base Moral Weight", MoralWeight(5), 0.6},
	{GodsAuthority, "God's Authority Level", Authority(1.0), 0.8},
	{ScoringStrategicWeight, "Strategic Score Weight", ScoreWeight(0.5), 0.7},
	{ScoringMoralWeight, "Moral Score Weight", ScoreWeight(0.5), 0.7},
}

// seedRules returns the fixed rule set in seed order, stamped with now.
func seedRules(now time.Time) []*Rule {
	out := make([]*Rule, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, &Rule{
			ID:            s.id,
			DisplayName:   s.name,
			Category:      s.base.Category(),
			Current:       s.base,
			Base:          s.base,
			Threshold:     s.threshold,
			LastEvolvedAt: now,
			Active:        true,
		})
	}
	return out
}
