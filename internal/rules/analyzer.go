package rules

// Influence nudge applied when a pattern threshold is crossed.
const nudge = 0.1

// analyze nudges rule influence from the decisions in window. Betting and
// scoring only ever nudge upward.
func (e *Engine) analyze(window []Decision) {
	if len(window) == 0 {
		return
	}
	e.analyzeBetting(window)
	e.analyzeMoral(window)
	e.analyzeAuthority(window)
	e.analyzeScoring(window)
}

func (e *Engine) analyzeBetting(window []Decision) {
	var sum, maxBet float64
	for i, d := range window {
		sum += d.BetAmount
		if i == 0 || d.BetAmount > maxBet {
			maxBet = d.BetAmount
		}
	}
	avg := sum / float64(len(window))

	if r := e.rules[BettingMinimum]; r != nil && avg > r.Current.Float64()*1.5 {
		r.Influence += nudge
	}
	if r := e.rules[BettingMaximum]; r != nil && maxBet > r.Current.Float64()*0.8 {
		r.Influence += nudge
	}
}

func (e *Engine) analyzeMoral(window []Decision) {
	var moral, spared int
	for _, d := range window {
		if d.MoralOutcome == nil {
			continue
		}
		moral++
		if !d.MoralOutcome.WasCaptured {
			spared++
		}
	}
	if moral == 0 {
		return
	}

	r := e.rules[MoralWeightBase]
	if r == nil {
		return
	}
	switch rate := float64(spared) / float64(moral); {
	case rate > 0.7:
		r.Influence += nudge
	case rate < 0.3:
		r.Influence -= nudge
	}
}

func (e *Engine) analyzeAuthority(window []Decision) {
	followed := 0
	for _, d := range window {
		if d.FollowedSuggestion {
			followed++
		}
	}

	r := e.rules[GodsAuthority]
	if r == nil {
		return
	}
	switch rate := float64(followed) / float64(len(window)); {
	case rate > 0.8:
		r.Influence += nudge
	case rate < 0.4:
		r.Influence -= nudge
	}
}

func (e *Engine) analyzeScoring(window []Decision) {
	var strategic, moral float64
	for _, d := range window {
		strategic += d.StrategicScore
		moral += d.MoralScore
	}
	n := float64(len(window))

	if r := e.rules[ScoringStrategicWeight]; r != nil && strategic/n > 70 {
		r.Influence += nudge
	}
	if r := e.rules[ScoringMoralWeight]; r != nil && moral/n > 70 {
		r.Influence += nudge
	}
}
