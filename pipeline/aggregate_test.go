package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func oneHot(pc int) []float64 {
	row := make([]float64, 12)
	row[pc] = 1
	return row
}

func TestAggregateSumsPerNote(t *testing.T) {
	probs := mat.NewDense(5, 12, nil)
	probs.SetRow(0, oneHot(3))
	probs.SetRow(1, oneHot(3))
	probs.SetRow(2, oneHot(7))
	probs.SetRow(3, oneHot(1))
	probs.SetRow(4, oneHot(11))

	pitches, err := Aggregate(probs, []int{3, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 11}, pitches)
}

func TestAggregateTieGoesToLowestClass(t *testing.T) {
	probs := mat.NewDense(2, 12, nil)
	probs.SetRow(0, oneHot(9))
	probs.SetRow(1, oneHot(4))

	pitches, err := Aggregate(probs, []int{2})
	require.NoError(t, err)
	assert.Equal(t, []int{4}, pitches)
}

func TestAggregateCountMismatch(t *testing.T) {
	probs := mat.NewDense(3, 12, nil)

	_, err := Aggregate(probs, []int{1, 1})
	assert.Error(t, err)
	_, err = Aggregate(probs, []int{2, 2})
	assert.Error(t, err)
	_, err = Aggregate(probs, []int{4, -1})
	assert.Error(t, err)
}

func TestAggregateEmpty(t *testing.T) {
	pitches, err := Aggregate(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, pitches)
}

func TestScore(t *testing.T) {
	r := Score([]int{0, 2, 4, 6}, []int{0, 2, 4, 7})
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 3, r.Correct)
	assert.InDelta(t, 75.0, r.Accuracy(), 1e-9)
	assert.Equal(t, 1.0, r.Confusion.At(6, 7))
	assert.Equal(t, 0.0, r.Confusion.At(6, 6))
}

func TestReportWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := Score([]int{0, 2, 4, 6}, []int{0, 2, 4, 7}).WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "pred\tC_\tC#\tD_\tD#\tE_\tF_\tF#\tG_\tG#\tA_\tA#\tB_\t", lines[0])
	assert.Equal(t, "true", lines[1])
	assert.Equal(t, "F#\t0\t0\t0\t0\t0\t0\t0\t1\t0\t0\t0\t0\t", lines[8])
	assert.Contains(t, buf.String(), "\naccuracy: 75.0%\n")
}

func TestReportWriteToEmpty(t *testing.T) {
	var buf bytes.Buffer
	_, err := Score(nil, nil).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "accuracy: n/a")
}
