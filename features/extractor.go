// Package features turns an audio slice of arbitrary length into a stack of
// fixed-width, normalised magnitude spectra.
package features

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/algorithms/windowing"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// FeatureSet is the framed spectrum of one audio slice. Every frame has the
// extractor's Width.
type FeatureSet struct {
	Frames [][]float64

	// Degenerate marks a slice that produced no usable frame (silence, NaN
	// input); Frames then holds a single all-zero frame.
	Degenerate bool
}

// Extractor computes FeatureSets. It keeps no per-call state and may be
// shared between goroutines.
type Extractor struct {
	config    Config
	window    *windowing.Hann
	fft       *spectral.FFT
	dct       *spectral.DCT4
	bins      int
	width     int
	cutoffBin int
	logger    logging.Logger
}

// NewExtractor creates a new extractor with configuration
func NewExtractor(config *Config) (*Extractor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}

	e := &Extractor{
		config: *config,
		window: windowing.NewHann(config.WindowLength, true),
		fft:    spectral.NewFFT(),
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}

	switch config.Transform {
	case TransformDCT4:
		dct, err := spectral.NewDCT4(config.WindowLength)
		if err != nil {
			return nil, err
		}
		e.dct = dct
		e.bins = config.WindowLength
	default:
		e.bins = spectral.RealBins(config.WindowLength)
	}

	e.width = e.bins
	if config.HalfSpectrum {
		e.width = e.bins / 2
	}
	e.cutoffBin = int(math.Floor(config.CutoffHz * float64(config.WindowLength) / float64(config.SampleRate)))

	return e, nil
}

// Config returns a copy of the extractor configuration
func (e *Extractor) Config() Config {
	return e.config
}

// Width returns the number of values per frame
func (e *Extractor) Width() int {
	return e.width
}

// FrameCount returns how many frames a slice of n samples yields with window
// length l and stride s. Short slices give one zero-padded frame; a trailing
// frame that would start past the end is not counted.
func FrameCount(n, l, s int) int {
	if n < l {
		return 1
	}
	// two floor divisions, not (n-l)/s
	steps := n/s - l/s + 2
	if (steps-1)*s >= n {
		steps--
	}
	return steps
}

// Extract frames, windows, transforms and normalises segment. It never fails:
// slices that produce nothing usable come back flagged Degenerate.
func (e *Extractor) Extract(segment []float64) FeatureSet {
	l := e.config.WindowLength
	s := e.config.Stride
	steps := FrameCount(len(segment), l, s)

	frames := make([][]float64, 0, steps)
	padded := make([]float64, l)
	sawNaN := false

	for i := range steps {
		start := i * s
		end := min(start+l, len(segment))
		chunk := segment[start:end]

		window := e.window
		if i == steps-1 || len(chunk) < l {
			window = windowing.NewHann(len(chunk), true)
		}
		if err := window.ApplyPadded(chunk, padded); err != nil {
			// lengths are derived from the window, so this is unreachable
			e.logger.Error(err, "Failed to window frame", logging.Fields{"frame": i})
			continue
		}

		frame := e.transform(padded)
		clear(frame[:min(e.cutoffBin, len(frame))])
		frame = frame[:e.width]

		if !common.MinMaxNormalize(frame) {
			if hasNonFinite(frame) {
				sawNaN = true
				break
			}
			continue
		}
		frames = append(frames, frame)
	}

	if sawNaN || len(frames) == 0 {
		e.logger.Warn("Segment produced no usable frames", logging.Fields{
			"samples": len(segment),
			"frames":  steps,
			"nan":     sawNaN,
		})
		return FeatureSet{
			Frames:     [][]float64{make([]float64, e.width)},
			Degenerate: true,
		}
	}

	return FeatureSet{Frames: frames}
}

// Average sums the frames of a FeatureSet and rescales the result to [0, 1].
// A degenerate or flat set averages to zeros.
func (e *Extractor) Average(set FeatureSet) []float64 {
	avg := make([]float64, e.width)
	for _, frame := range set.Frames {
		for i, v := range frame {
			avg[i] += v
		}
	}
	if !common.MinMaxNormalize(avg) {
		clear(avg)
	}
	return avg
}

func (e *Extractor) transform(frame []float64) []float64 {
	if e.dct != nil {
		// frame length always matches the transform size
		mag, err := e.dct.Magnitude(frame)
		if err != nil {
			e.logger.Error(err, "DCT-IV failed")
			return make([]float64, e.bins)
		}
		return mag
	}
	return e.fft.Magnitude(frame)
}

func hasNonFinite(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
