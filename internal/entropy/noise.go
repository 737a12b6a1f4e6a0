package entropy

import (
	"math"
	"sync"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Noise walks a normalized opensimplex field. Successive draws are
// correlated, which keeps god bets and probabilities from jumping wildly
// between turns.
type Noise struct {
	mu    sync.Mutex
	field opensimplex.Noise
	x     float64
	step  float64
}

// NewNoise returns a noise source that yields the same sequence for a seed.
func NewNoise(seed int64) *Noise {
	return &Noise{
		field: opensimplex.NewNormalized(seed),
		step:  0.37,
	}
}

// Float64 advances the walk and returns the next value in [0, 1).
func (n *Noise) Float64() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.x += n.step
	return unit(octave(n.field, n.x, 0, 3, 1, 0.5))
}

// At samples the field at wall-clock time t on the given lane. The period
// is roughly ten seconds, matching the drift of the scenario probabilities.
func (n *Noise) At(t time.Time, lane float64) float64 {
	x := float64(t.UnixMilli()%10000) / 1000
	return unit(octave(n.field, x, lane, 2, 1, 0.5))
}

// octave layers frequencies of the field.
func octave(field opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += field.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

func unit(v float64) float64 {
	return math.Min(math.Max(v, 0), math.Nextafter(1, 0))
}
