package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymmetricHannMatchesReference(t *testing.T) {
	// numpy.hanning(5)
	want := []float64{0, 0.5, 1, 0.5, 0}
	got := NewHann(5, true).GetCoefficients()

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "coefficient %d", i)
	}
}

func TestPeriodicHann(t *testing.T) {
	got := NewHann(4, false).GetCoefficients()
	want := []float64{0, 0.5, 1, 0.5}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12)
	}
}

func TestDegenerateSizes(t *testing.T) {
	assert.Equal(t, []float64{1}, NewHann(1, true).GetCoefficients())
	assert.Empty(t, NewHann(0, true).GetCoefficients())
	assert.Equal(t, 0, NewHann(-3, true).GetSize())
}

func TestApplyPadded(t *testing.T) {
	h := NewHann(3, true)
	dst := []float64{9, 9, 9, 9, 9}

	require.NoError(t, h.ApplyPadded([]float64{2, 2, 2}, dst))
	assert.Equal(t, []float64{0, 2, 0, 0, 0}, dst)

	assert.Error(t, h.ApplyPadded([]float64{1, 2}, dst))
	assert.Error(t, h.ApplyPadded([]float64{1, 2, 3}, make([]float64, 2)))
}

func TestApplyRejectsWrongLength(t *testing.T) {
	h := NewHann(4, true)
	assert.Nil(t, h.Apply([]float64{1, 2, 3}))
	assert.Len(t, h.Apply([]float64{1, 2, 3, 4}), 4)
}
