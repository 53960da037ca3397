// Package classifier maps spectral feature frames to pitch-class
// probabilities.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-pitch/features"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"gonum.org/v1/gonum/mat"
)

// Kind names a classifier implementation
type Kind string

const (
	KindHarmonic Kind = "harmonic"
	KindRemote   Kind = "remote"
)

// Classifier scores a batch of feature frames. Row i of the result holds the
// 12 pitch-class scores of row i of the batch.
type Classifier interface {
	PredictBatch(ctx context.Context, batch *mat.Dense) (*mat.Dense, error)
}

// Config holds classifier selection and settings
type Config struct {
	Kind    Kind          `json:"kind" yaml:"kind"`
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	MinHz   float64       `json:"min_hz" yaml:"min_hz"`
	MaxHz   float64       `json:"max_hz" yaml:"max_hz"`
}

// DefaultConfig returns the built-in harmonic classifier configuration
func DefaultConfig() *Config {
	return &Config{
		Kind:    KindHarmonic,
		Timeout: 5 * time.Minute,
		MinHz:   140,
		MaxHz:   880,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch c.Kind {
	case KindHarmonic:
		if c.MinHz <= 0 || c.MaxHz <= c.MinHz {
			return fmt.Errorf("harmonic classifier needs 0 < min_hz < max_hz, got %g and %g", c.MinHz, c.MaxHz)
		}
	case KindRemote:
		if c.URL == "" {
			return fmt.Errorf("remote classifier needs a url")
		}
		if c.Timeout < 0 {
			return fmt.Errorf("timeout cannot be negative: %v", c.Timeout)
		}
	default:
		return fmt.Errorf("unknown classifier kind %q", c.Kind)
	}
	return nil
}

// New builds the classifier selected by cfg. The feature configuration tells
// the harmonic classifier how bins map to frequencies.
func New(cfg *Config, feat *features.Config) (Classifier, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier config: %w", err)
	}

	switch cfg.Kind {
	case KindRemote:
		return NewRemote(cfg.URL, cfg.Timeout), nil
	default:
		if feat == nil {
			feat = features.DefaultConfig()
		}
		return NewHarmonic(feat.Transform, feat.SampleRate, feat.WindowLength, cfg.MinHz, cfg.MaxHz)
	}
}

// ValidateOutput checks that out has one row of notes.PitchClasses scores per
// row of in.
func ValidateOutput(in, out *mat.Dense) error {
	if out == nil {
		return fmt.Errorf("classifier returned no output")
	}
	inRows, _ := in.Dims()
	outRows, outCols := out.Dims()
	if outRows != inRows {
		return fmt.Errorf("classifier returned %d rows for %d frames", outRows, inRows)
	}
	if outCols != notes.PitchClasses {
		return fmt.Errorf("classifier returned %d columns, want %d", outCols, notes.PitchClasses)
	}
	return nil
}
