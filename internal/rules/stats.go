package rules

// StatsSummary aggregates the full decision log.
type StatsSummary struct {
	TotalDecisions        int     `json:"totalDecisions"`
	AverageBet            float64 `json:"averageBet"`
	FollowRate            float64 `json:"followGodRate"`
	SpareRate             float64 `json:"spareRate"`
	AverageStrategicScore float64 `json:"averageStrategicScore"`
	AverageMoralScore     float64 `json:"averageMoralScore"`
}

// summarize returns the zero summary for an empty log. SpareRate is 0 when
// no decision carries a moral outcome.
func summarize(ds []Decision) StatsSummary {
	if len(ds) == 0 {
		return StatsSummary{}
	}

	var bet, strategic, moral float64
	var followed, withMoral, spared int
	for _, d := range ds {
		bet += d.BetAmount
		strategic += d.StrategicScore
		moral += d.MoralScore
		if d.FollowedSuggestion {
			followed++
		}
		if d.MoralOutcome != nil {
			withMoral++
			if !d.MoralOutcome.WasCaptured {
				spared++
			}
		}
	}

	n := float64(len(ds))
	s := StatsSummary{
		TotalDecisions:        len(ds),
		AverageBet:            bet / n,
		FollowRate:            float64(followed) / n,
		AverageStrategicScore: strategic / n,
		AverageMoralScore:     moral / n,
	}
	if withMoral > 0 {
		s.SpareRate = float64(spared) / float64(withMoral)
	}
	return s
}
