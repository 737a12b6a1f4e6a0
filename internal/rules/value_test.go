package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvolveFormulas(t *testing.T) {
	tests := []struct {
		name      string
		base      Value
		influence float64
		want      Value
	}{
		{"betting rounds half up", Currency(50), 0.7, Currency(68)},
		{"betting is unbounded", Currency(500), 20, Currency(5500)},
		{"moral", MoralWeight(5), 1, MoralWeight(7)},
		{"moral clamps high", MoralWeight(5), 4, MoralWeight(10)},
		{"moral clamps low", MoralWeight(5), -4, MoralWeight(1)},
		{"authority clamps high", Authority(1.0), 10, Authority(2.0)},
		{"authority clamps low", Authority(1.0), -10, Authority(0.1)},
		{"scoring clamps high", ScoreWeight(0.5), 5, ScoreWeight(0.9)},
		{"scoring clamps low", ScoreWeight(0.5), -5, ScoreWeight(0.1)},
		{"piece never changes", PieceFactor(1.5), 3, PieceFactor(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base.evolve(tt.influence)
			assert.Equal(t, tt.base.Category(), got.Category())
			assert.InDelta(t, tt.want.Float64(), got.Float64(), 1e-9)
		})
	}
}

func TestMutationKindBoundaries(t *testing.T) {
	assert.Equal(t, MutationAddition, mutationKind(1.51))
	assert.Equal(t, MutationModification, mutationKind(1.5))
	assert.Equal(t, MutationModification, mutationKind(0.81))
	assert.Equal(t, MutationRecombination, mutationKind(0.8))
	assert.Equal(t, MutationRecombination, mutationKind(-0.5))
	assert.Equal(t, MutationRemoval, mutationKind(-0.51))
}

func TestNewValue(t *testing.T) {
	v, err := NewValue(CategoryBetting, 67.5)
	require.NoError(t, err)
	assert.Equal(t, Currency(68), v)

	v, err = NewValue(CategoryAuthority, 1.3)
	require.NoError(t, err)
	assert.Equal(t, Authority(1.3), v)

	_, err = NewValue("luck", 1)
	assert.Error(t, err)
	_, err = NewValue(CategoryMoral, math.Inf(1))
	assert.Error(t, err)
}
