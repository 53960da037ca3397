package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMaxNormalize(t *testing.T) {
	data := []float64{2, 4, 6}
	assert.True(t, MinMaxNormalize(data))
	assert.Equal(t, []float64{0, 0.5, 1}, data)
}

func TestMinMaxNormalizeRejectsDegenerateInput(t *testing.T) {
	flat := []float64{3, 3, 3}
	assert.False(t, MinMaxNormalize(flat))
	assert.Equal(t, []float64{3, 3, 3}, flat)

	assert.False(t, MinMaxNormalize([]float64{1, math.NaN(), 2}))
	assert.False(t, MinMaxNormalize(nil))
}

func TestArgMaxPrefersLowestIndex(t *testing.T) {
	assert.Equal(t, 1, ArgMax([]float64{0, 5, 5, 1}))
	assert.Equal(t, 0, ArgMax([]float64{0, 0}))
	assert.Equal(t, -1, ArgMax(nil))
}

func TestModAndClamp(t *testing.T) {
	assert.Equal(t, 11, Mod(-1, 12))
	assert.Equal(t, 0, Mod(24, 12))
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, 0, Clamp(-2, 0, 5))
}
