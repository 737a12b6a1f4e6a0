package rules

import (
	"fmt"
	"math"
)

// Category groups rules that share value semantics and an evolution formula.
type Category string

const (
	CategoryBetting   Category = "betting"
	CategoryMoral     Category = "moral"
	CategoryAuthority Category = "authority"
	CategoryScoring   Category = "scoring"
	CategoryPiece     Category = "piece"
)

// Value is a rule's parameter. The concrete type is fixed by the rule's
// category and owns the category's evolution formula.
type Value interface {
	Category() Category
	Float64() float64
	evolve(influence float64) Value
}

// Currency is a betting amount in whole units.
type Currency int64

// MoralWeight is bounded to [1, 10].
type MoralWeight float64

// Authority scales how strongly the god's suggestion binds, bounded to [0.1, 2.0].
type Authority float64

// ScoreWeight is a share of the final score, bounded to [0.1, 0.9].
type ScoreWeight float64

// PieceFactor is a per-piece multiplier. It never evolves.
type PieceFactor float64

func (Currency) Category() Category    { return CategoryBetting }
func (MoralWeight) Category() Category { return CategoryMoral }
func (Authority) Category() Category   { return CategoryAuthority }
func (ScoreWeight) Category() Category { return CategoryScoring }
func (PieceFactor) Category() Category { return CategoryPiece }

func (v Currency) Float64() float64    { return float64(v) }
func (v MoralWeight) Float64() float64 { return float64(v) }
func (v Authority) Float64() float64   { return float64(v) }
func (v ScoreWeight) Float64() float64 { return float64(v) }
func (v PieceFactor) Float64() float64 { return float64(v) }

// Betting values grow without an upper bound.
func (v Currency) evolve(influence float64) Value {
	return Currency(roundHalfUp(float64(v) * (1 + influence*0.5)))
}

func (v MoralWeight) evolve(influence float64) Value {
	return MoralWeight(clamp(float64(v)+influence*2, 1, 10))
}

func (v Authority) evolve(influence float64) Value {
	return Authority(clamp(float64(v)+influence*0.3, 0.1, 2.0))
}

func (v ScoreWeight) evolve(influence float64) Value {
	return ScoreWeight(clamp(float64(v)+influence*0.2, 0.1, 0.9))
}

func (v PieceFactor) evolve(float64) Value { return v }

// NewValue rebuilds a typed value from its category and numeric form, as
// stored by persistence layers.
func NewValue(c Category, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("value for %s is not finite", c)
	}
	switch c {
	case CategoryBetting:
		return Currency(roundHalfUp(f)), nil
	case CategoryMoral:
		return MoralWeight(f), nil
	case CategoryAuthority:
		return Authority(f), nil
	case CategoryScoring:
		return ScoreWeight(f), nil
	case CategoryPiece:
		return PieceFactor(f), nil
	default:
		return nil, fmt.Errorf("unknown rule category %q", c)
	}
}

// roundHalfUp rounds ties toward positive infinity.
func roundHalfUp(f float64) int64 {
	return int64(math.Floor(f + 0.5))
}

func clamp(f, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, f))
}
