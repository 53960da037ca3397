package classifier

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/features"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// c0Hz is the frequency of pitch class 0 four octaves below middle C
var c0Hz = 440 * math.Pow(2, -4.75)

// Harmonic is a model-free classifier. For every candidate fundamental
// between minHz and maxHz it sums the bin with a third of the bins around its
// second harmonic and a fifth of the bins around its third; each pitch class
// scores the best candidate that falls into it.
type Harmonic struct {
	// bin k sits at (k+binOffset)*binHz
	binHz     float64
	binOffset float64
	minBin    int
	maxBin    int
}

// NewHarmonic creates a harmonic classifier for spectra produced by transform
// over windowLength samples at sampleRate. An empty transform means fft.
func NewHarmonic(transform features.Transform, sampleRate, windowLength int, minHz, maxHz float64) (*Harmonic, error) {
	if sampleRate <= 0 || windowLength <= 0 {
		return nil, fmt.Errorf("sample rate and window length must be positive, got %d and %d", sampleRate, windowLength)
	}

	h := &Harmonic{}
	switch transform {
	case features.TransformFFT, "":
		h.binHz = float64(sampleRate) / float64(windowLength)
	case features.TransformDCT4:
		h.binHz = float64(sampleRate) / float64(2*windowLength)
		h.binOffset = 0.5
	default:
		return nil, fmt.Errorf("unsupported transform %q", transform)
	}

	h.minBin = max(int(minHz/h.binHz-h.binOffset), 1)
	h.maxBin = int(maxHz/h.binHz - h.binOffset)
	return h, nil
}

// PredictBatch scores every row of batch
func (h *Harmonic) PredictBatch(ctx context.Context, batch *mat.Dense) (*mat.Dense, error) {
	rows, _ := batch.Dims()
	out := mat.NewDense(rows, notes.PitchClasses, nil)
	for r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.SetRow(r, h.score(batch.RawRowView(r)))
	}
	return out, nil
}

// Frequency returns the centre frequency of a transform bin in Hz
func (h *Harmonic) Frequency(bin int) float64 {
	return (float64(bin) + h.binOffset) * h.binHz
}

// PitchClass returns the pitch class of a transform bin
func (h *Harmonic) PitchClass(bin int) int {
	return common.Mod(int(math.Round(12*math.Log2(h.Frequency(bin)/c0Hz))), notes.PitchClasses)
}

// harmonicBin returns the bin nearest to the n-th harmonic of bin
func (h *Harmonic) harmonicBin(bin, n int) int {
	return int(math.Round(float64(n)*(float64(bin)+h.binOffset) - h.binOffset))
}

func (h *Harmonic) score(spectrum []float64) []float64 {
	scores := make([]float64, notes.PitchClasses)
	for i := h.minBin; i < h.maxBin && i < len(spectrum); i++ {
		weight := spectrum[i]
		second, third := h.harmonicBin(i, 2), h.harmonicBin(i, 3)
		weight += sumRange(spectrum, second-1, second+1) / 3
		weight += sumRange(spectrum, third-2, third+2) / 5

		pc := h.PitchClass(i)
		if weight > scores[pc] {
			scores[pc] = weight
		}
	}

	total := floats.Sum(scores)
	if total <= 0 || math.IsNaN(total) {
		for i := range scores {
			scores[i] = 1.0 / notes.PitchClasses
		}
		return scores
	}
	floats.Scale(1/total, scores)
	return scores
}

// sumRange sums data[from:to], clipped to the slice
func sumRange(data []float64, from, to int) float64 {
	from = common.Clamp(from, 0, len(data))
	to = common.Clamp(to, from, len(data))
	return floats.Sum(data[from:to])
}
