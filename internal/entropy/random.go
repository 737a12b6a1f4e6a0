// Package entropy supplies the jitter behind god bets, scenario
// probabilities and the rule estimators. Noise is a seeded, reproducible
// opensimplex walk; Crypto draws from crypto/rand for unseeded use.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
)

// Source yields values in [0, 1).
type Source interface {
	Float64() float64
}

// Crypto draws from crypto/rand.
type Crypto struct{}

func (Crypto) Float64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0.5
	}
	// 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// FromSource returns s.Float64(), or a crypto draw when s is nil.
func FromSource(s Source) float64 {
	if s == nil {
		return Crypto{}.Float64()
	}
	return s.Float64()
}
