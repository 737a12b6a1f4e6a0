package rules

// Jitter supplies values in [0, 1). *math/rand.Rand satisfies it.
type Jitter interface {
	Float64() float64
}

// estimatorWindow is how many recent decisions the estimators consider.
const estimatorWindow = 50

// estimateSuccessRate is a placeholder estimator: jitter around 0.5 with a
// spread of ±0.15. It carries no statistical meaning yet.
func (e *Engine) estimateSuccessRate() float64 {
	if len(tail(e.decisions, estimatorWindow)) == 0 {
		return 0.5
	}
	return 0.5 + (e.jitter.Float64()-0.5)*0.3
}

// estimateAdoptionRate is a placeholder estimator: jitter around 0.5 with a
// spread of ±0.2.
func (e *Engine) estimateAdoptionRate() float64 {
	if len(tail(e.decisions, estimatorWindow)) == 0 {
		return 0.5
	}
	return 0.5 + (e.jitter.Float64()-0.5)*0.4
}

func tail(ds []Decision, n int) []Decision {
	if len(ds) <= n {
		return ds
	}
	return ds[len(ds)-n:]
}
