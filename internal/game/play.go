package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/zsenarchitect/ManVsGod/internal/decisions"
	"github.com/zsenarchitect/ManVsGod/internal/dilemma"
	"github.com/zsenarchitect/ManVsGod/internal/levels"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

// Play resolves the session's current level. The move must be one the
// board offers and the bet must fit both the purse and the live betting
// limits. Ignoring God's suggestion costs the level's disobedience penalty
// scaled by God's current authority. A purse that runs dry loses the game;
// clearing the last level wins it.
func (svc *Service) Play(ctx context.Context, id string, t Turn) (TurnResult, error) {
	if err := validate.Struct(t); err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrInvalidTurn, err)
	}
	s, err := svc.lookup(id)
	if err != nil {
		return TurnResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := &s.state
	if st.Completed {
		return TurnResult{}, ErrSessionComplete
	}

	l, err := svc.catalog.Load(ctx, st.Level)
	if err != nil {
		svc.sink.Error(ctx, telemetry.LevelLoading, "failed to load level", map[string]any{"level": st.Level, "error": err.Error()})
		return TurnResult{}, err
	}
	if !levels.ValidateMove(t.Move, l.Moves) {
		svc.sink.Warn(ctx, telemetry.ChessMove, "invalid chess move", map[string]any{"move": t.Move, "level": l.ID})
		return TurnResult{}, fmt.Errorf("%w: %s on level %d", ErrInvalidMove, t.Move, l.ID)
	}

	lo, hi := svc.BetLimits()
	if t.Bet < lo || t.Bet > hi {
		svc.sink.Warn(ctx, telemetry.Betting, "bet outside limits", map[string]any{"bet": t.Bet, "min": lo, "max": hi})
		return TurnResult{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrBetOutOfRange, t.Bet, lo, hi)
	}
	if decimal.NewFromInt(t.Bet).GreaterThan(st.Currency) {
		svc.sink.Warn(ctx, telemetry.Betting, "insufficient currency", map[string]any{"bet": t.Bet, "currency": st.Currency.String()})
		return TurnResult{}, fmt.Errorf("%w: bet %d, have %s", ErrInsufficientCurrency, t.Bet, st.Currency)
	}

	now := svc.now()
	godBet := svc.catalog.GodBet(l.ID, svc.jitter)
	followed := choiceName(t.Choice) == l.GodMove.Suggestion

	moveCost := decimal.NewFromInt(int64(l.Cost.Move))
	disobedience := decimal.Zero
	if !followed {
		authority := decimal.NewFromFloat(svc.ruleFloat(rules.GodsAuthority, 1))
		disobedience = decimal.NewFromInt(int64(l.Cost.DisobediencePenalty)).Mul(authority).Round(2)
	}
	survival := decimal.NewFromInt(int64(l.Cost.SurvivalBonus))
	purse := st.Currency.Sub(moveCost).Sub(disobedience).Add(survival)
	if purse.IsNegative() {
		purse = decimal.Zero
	}

	score := svc.catalog.LevelScore(l.ID, t.Choice, t.Confidence, godBet)
	mc, err := svc.catalog.ProcessMoralChoice(l.ID, t.Choice)
	if err != nil {
		return TurnResult{}, err
	}
	choices := append(append([]dilemma.Choice(nil), st.MoralChoices...),
		dilemma.Choice{Captured: mc.Captured, MoralWeight: mc.MoralWeight})
	moral := dilemma.MoralScore(choices)

	outcome := rules.OutcomeContinue
	switch {
	case purse.Sign() == 0:
		outcome = rules.OutcomeLose
	case st.Level >= svc.catalog.Count():
		outcome = rules.OutcomeWin
	}

	var backstory string
	if l.Dilemma != nil {
		backstory = l.Dilemma.Backstory.Key
	}
	d := rules.Decision{
		ActorID:             st.PlayerID,
		Timestamp:           now,
		LevelIndex:          l.ID - 1,
		PieceKind:           l.Piece,
		Position:            l.Position,
		ChosenMove:          t.Move,
		BetAmount:           float64(t.Bet),
		SuggestedMove:       l.GodMove.Suggestion,
		SuggestedConfidence: l.GodMove.Confidence,
		FollowedSuggestion:  followed,
		DisobedienceCost:    disobedience.InexactFloat64(),
		MoralOutcome: &rules.MoralOutcome{
			PieceKind:   l.Piece,
			WasCaptured: mc.Captured,
			MoralWeight: mc.MoralWeight,
			Backstory:   backstory,
		},
		StrategicScore: float64(score),
		MoralScore:     moral,
		Outcome:        outcome,
		DecisionTime:   t.DecisionTime,
	}
	if err := svc.engine.RecordDecision(d); err != nil {
		svc.sink.Error(ctx, telemetry.StateManagement, "rules engine rejected decision", map[string]any{"error": err.Error()})
		return TurnResult{}, fmt.Errorf("record decision: %w", err)
	}
	telemetry.DecisionsRecorded.Inc()
	if svc.onDecision != nil {
		svc.onDecision(d)
	}

	probs := decisions.DynamicProbabilities(l.ID, float64(godBet), svc.noise, now)
	if svc.store != nil {
		sd := decisions.ScenarioDecision{
			Timestamp:     now,
			ScenarioID:    l.ID,
			Choice:        t.Choice,
			Probabilities: probs,
			PlayerID:      st.PlayerID,
		}
		if err := svc.store.Append(ctx, sd); err != nil {
			svc.sink.Warn(ctx, telemetry.GoogleSheets, "failed to store scenario decision", map[string]any{"error": err.Error()})
		}
	}

	st.Currency = purse
	st.TotalScore += score
	st.MoralChoices = choices
	st.MoralScore = moral
	st.Weighted = float64(st.TotalScore)*svc.ruleFloat(rules.ScoringStrategicWeight, 0.5) +
		moral*svc.ruleFloat(rules.ScoringMoralWeight, 0.5)
	st.Outcome = outcome
	if outcome == rules.OutcomeContinue {
		st.Level++
	} else {
		st.Completed = true
		cfg := svc.catalog.Config()
		st.Ranking = cfg.Ranking(st.TotalScore)
		st.MoralRanking = cfg.MoralRanking(st.MoralScore)
	}

	res := TurnResult{
		Level:            l.ID,
		Choice:           t.Choice,
		Move:             t.Move,
		Bet:              t.Bet,
		GodBet:           godBet,
		FollowedGod:      followed,
		Score:            score,
		MoveCost:         moveCost,
		DisobedienceCost: disobedience,
		SurvivalBonus:    survival,
		Currency:         purse,
		MoralChoice:      mc,
		Probabilities:    probs,
		Outcome:          outcome,
	}
	st.Turns = append(st.Turns, res)

	slog.Info("turn played", "session", st.ID, "level", l.ID, "choice", choiceName(t.Choice),
		"followed_god", followed, "score", score, "currency", purse.String())
	return res, nil
}

func choiceName(choice int) string {
	if choice == levels.ChoiceCapture {
		return "capture"
	}
	return "spare"
}

func (svc *Service) ruleFloat(id string, fallback float64) float64 {
	if v, ok := svc.engine.RuleValue(id); ok {
		return v.Float64()
	}
	return fallback
}

// BetLimits returns the live minimum and maximum bet.
func (svc *Service) BetLimits() (lo, hi int64) {
	return int64(svc.ruleFloat(rules.BettingMinimum, 50)), int64(svc.ruleFloat(rules.BettingMaximum, 500))
}
