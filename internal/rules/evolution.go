package rules

import (
	"fmt"
	"time"
)

// DefaultCooldown is the minimum time between two evolutions of one rule.
const DefaultCooldown = 7 * 24 * time.Hour

func (e *Engine) shouldEvolve(r *Rule, now time.Time) bool {
	return r.Influence >= r.Threshold && now.Sub(r.LastEvolvedAt) >= e.cooldown
}

// mutationKind buckets influence. Order matters: the widest bucket wins.
func mutationKind(influence float64) MutationKind {
	switch {
	case influence > 1.5:
		return MutationAddition
	case influence > 0.8:
		return MutationModification
	case influence < -0.5:
		return MutationRemoval
	default:
		return MutationRecombination
	}
}

// checkTriggers evolves every active rule that is due, in seed order.
func (e *Engine) checkTriggers(now time.Time) {
	for _, id := range e.order {
		r := e.rules[id]
		if !r.Active || !e.shouldEvolve(r, now) {
			continue
		}
		e.evolve(r, now)
	}
}

// evolve derives the new value from the base value, never the current one,
// so repeated evolutions do not compound.
func (e *Engine) evolve(r *Rule, now time.Time) {
	ev := EvolutionEvent{
		RuleID:                r.ID,
		Category:              r.Category,
		Previous:              r.Current,
		New:                   r.Base.evolve(r.Influence),
		Trigger:               fmt.Sprintf("Player influence: %.2f", r.Influence),
		Influence:             r.Influence,
		EstimatedSuccessRate:  e.estimateSuccessRate(),
		EstimatedAdoptionRate: e.estimateAdoptionRate(),
		Timestamp:             now,
		Kind:                  mutationKind(r.Influence),
	}

	r.Current = ev.New
	r.History = append(r.History, ev)
	r.LastEvolvedAt = now
	r.Influence = 0
	e.history = append(e.history, ev)

	e.logger.Info("rule evolved",
		"rule", r.ID,
		"previous", ev.Previous.Float64(),
		"new", ev.New.Float64(),
		"kind", ev.Kind,
		"influence", fmt.Sprintf("%.2f", ev.Influence),
	)
	if e.onEvolve != nil {
		e.onEvolve(ev)
	}
}
