package pipeline

import (
	"fmt"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Aggregate folds frame-level pitch scores back into one pitch per note.
// counts[i] is the number of consecutive rows of probs that belong to note i;
// their scores are summed and the best class wins, lowest class on a tie.
func Aggregate(probs *mat.Dense, counts []int) ([]int, error) {
	total := 0
	for i, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("note %d has negative frame count %d", i, c)
		}
		total += c
	}

	rows, cols := 0, notes.PitchClasses
	if probs != nil && !probs.IsEmpty() {
		rows, cols = probs.Dims()
	}
	if total != rows {
		return nil, fmt.Errorf("frame counts add up to %d but classifier returned %d rows", total, rows)
	}

	pitches := make([]int, len(counts))
	sum := make([]float64, cols)
	offset := 0
	for i, c := range counts {
		clear(sum)
		for r := offset; r < offset+c; r++ {
			floats.Add(sum, probs.RawRowView(r))
		}
		pitches[i] = common.ArgMax(sum)
		offset += c
	}

	return pitches, nil
}
