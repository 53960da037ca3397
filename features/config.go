package features

import (
	"fmt"
	"runtime"
)

// Transform selects the spectral transform applied to each frame
type Transform string

const (
	TransformFFT  Transform = "fft"
	TransformDCT4 Transform = "dct4"
)

// Config holds configuration for spectral feature extraction
type Config struct {
	SampleRate   int       `json:"sample_rate" yaml:"sample_rate"`
	WindowLength int       `json:"window_length" yaml:"window_length"`
	Stride       int       `json:"stride" yaml:"stride"`
	CutoffHz     float64   `json:"cutoff_hz" yaml:"cutoff_hz"`
	Transform    Transform `json:"transform" yaml:"transform"`
	HalfSpectrum bool      `json:"half_spectrum" yaml:"half_spectrum"`
	Workers      int       `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the configuration the bundled models were trained with
func DefaultConfig() *Config {
	return &Config{
		SampleRate:   16000,
		WindowLength: 2048,
		Stride:       512,
		CutoffHz:     80,
		Transform:    TransformFFT,
		HalfSpectrum: false,
		Workers:      runtime.NumCPU(),
	}
}

// Validate checks the configuration for values the extractor cannot work with
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.WindowLength <= 0 {
		return fmt.Errorf("window length must be positive, got %d", c.WindowLength)
	}
	if c.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %d", c.Stride)
	}
	if c.Stride > c.WindowLength {
		return fmt.Errorf("stride (%d) cannot exceed window length (%d)", c.Stride, c.WindowLength)
	}
	if c.CutoffHz < 0 {
		return fmt.Errorf("cutoff frequency cannot be negative, got %g", c.CutoffHz)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", c.Workers)
	}

	switch c.Transform {
	case TransformFFT:
	case TransformDCT4:
		if c.WindowLength%2 != 0 {
			return fmt.Errorf("dct4 needs an even window length, got %d", c.WindowLength)
		}
	default:
		return fmt.Errorf("unknown transform %q", c.Transform)
	}

	return nil
}
