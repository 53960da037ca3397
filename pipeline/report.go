package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"gonum.org/v1/gonum/mat"
)

// Report compares authored pitches with detected ones
type Report struct {
	// Confusion counts notes by authored pitch (row) and detected pitch
	// (column).
	Confusion *mat.Dense
	Correct   int
	Total     int
}

// Score builds a Report. Pitches are compared pairwise up to the shorter
// slice.
func Score(original, corrected []int) *Report {
	r := &Report{
		Confusion: mat.NewDense(tonal.PitchClasses, tonal.PitchClasses, nil),
	}
	n := min(len(original), len(corrected))
	for i := range n {
		t := common.Mod(original[i], tonal.PitchClasses)
		p := common.Mod(corrected[i], tonal.PitchClasses)
		r.Confusion.Set(t, p, r.Confusion.At(t, p)+1)
		if t == p {
			r.Correct++
		}
	}
	r.Total = n
	return r
}

// Accuracy returns the share of unchanged pitches in percent
func (r *Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total) * 100
}

// WriteTo prints the labelled confusion matrix followed by the accuracy
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprint(bw, "pred\t")
	for pc := range tonal.PitchClasses {
		fmt.Fprintf(bw, "%s\t", tonal.PitchName(pc))
	}
	fmt.Fprint(bw, "\ntrue\n")

	for t := range tonal.PitchClasses {
		fmt.Fprintf(bw, "%s\t", tonal.PitchName(t))
		for p := range tonal.PitchClasses {
			fmt.Fprintf(bw, "%d\t", int(r.Confusion.At(t, p)))
		}
		fmt.Fprintln(bw)
	}

	if r.Total == 0 {
		fmt.Fprint(bw, "\naccuracy: n/a\n")
	} else {
		fmt.Fprintf(bw, "\naccuracy: %.1f%%\n", r.Accuracy())
	}

	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
