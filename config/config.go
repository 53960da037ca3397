// Package config loads the YAML configuration of the pitch detector and
// turns it into the component configurations.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/classifier"
	"github.com/RyanBlaney/sonido-pitch/features"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"github.com/RyanBlaney/sonido-pitch/transcode"
	"gopkg.in/yaml.v3"
)

type Log struct {
	Level string `yaml:"level"`
}
type Audio struct {
	SampleRate int           `yaml:"sample_rate"`
	FFmpegPath string        `yaml:"ffmpeg_path"`
	Timeout    time.Duration `yaml:"timeout"`
}
type Features struct {
	WindowLength int     `yaml:"window_length"`
	Stride       int     `yaml:"stride"`
	CutoffHz     float64 `yaml:"cutoff_hz"`
	Transform    string  `yaml:"transform"`
	HalfSpectrum bool    `yaml:"half_spectrum"`
	Workers      int     `yaml:"workers"`
}
type Classifier struct {
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	MinHz   float64       `yaml:"min_hz"`
	MaxHz   float64       `yaml:"max_hz"`
}
type Postprocessing struct {
	Enabled bool   `yaml:"enabled"`
	Profile string `yaml:"profile"`
}
type Encoding struct {
	Fallback string `yaml:"fallback"`
}
type Root struct {
	Log            Log            `yaml:"log"`
	Audio          Audio          `yaml:"audio"`
	Features       Features       `yaml:"features"`
	Classifier     Classifier     `yaml:"classifier"`
	Postprocessing Postprocessing `yaml:"postprocessing"`
	Encoding       Encoding       `yaml:"encoding"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Root {
	dec := transcode.DefaultDecoderConfig()
	feat := features.DefaultConfig()
	clf := classifier.DefaultConfig()

	return &Root{
		Log: Log{Level: strings.ToLower(logging.InfoLevel.String())},
		Audio: Audio{
			SampleRate: dec.SampleRate,
			FFmpegPath: dec.FFmpegPath,
			Timeout:    dec.Timeout,
		},
		Features: Features{
			WindowLength: feat.WindowLength,
			Stride:       feat.Stride,
			CutoffHz:     feat.CutoffHz,
			Transform:    string(feat.Transform),
			HalfSpectrum: feat.HalfSpectrum,
			Workers:      feat.Workers,
		},
		Classifier: Classifier{
			Kind:    string(clf.Kind),
			Timeout: clf.Timeout,
			MinHz:   clf.MinHz,
			MaxHz:   clf.MaxHz,
		},
		Postprocessing: Postprocessing{
			Enabled: true,
			Profile: string(tonal.KeyProfileWeighted),
		},
		Encoding: Encoding{
			Fallback: notes.DefaultFallbackEncoding,
		},
	}
}

// Load reads the YAML file at path on top of the defaults. Keys missing from
// the file keep their default; unknown keys are an error. An empty path
// returns the defaults.
func Load(path string) (*Root, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section
func (c *Root) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Timeout < 0 {
		return fmt.Errorf("audio.timeout cannot be negative, got %v", c.Audio.Timeout)
	}
	if err := c.FeatureConfig().Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if err := c.ClassifierConfig().Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if _, err := tonal.ParseKeyProfile(c.Postprocessing.Profile); err != nil {
		return fmt.Errorf("postprocessing: %w", err)
	}
	if _, err := notes.LookupEncoding(c.Encoding.Fallback); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level
func (c *Root) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}

// DecoderConfig returns the audio decoder configuration
func (c *Root) DecoderConfig() *transcode.DecoderConfig {
	return &transcode.DecoderConfig{
		SampleRate: c.Audio.SampleRate,
		FFmpegPath: c.Audio.FFmpegPath,
		Timeout:    c.Audio.Timeout,
	}
}

// FeatureConfig returns the feature extractor configuration. Features are
// computed at the decoder's sample rate.
func (c *Root) FeatureConfig() *features.Config {
	return &features.Config{
		SampleRate:   c.Audio.SampleRate,
		WindowLength: c.Features.WindowLength,
		Stride:       c.Features.Stride,
		CutoffHz:     c.Features.CutoffHz,
		Transform:    features.Transform(c.Features.Transform),
		HalfSpectrum: c.Features.HalfSpectrum,
		Workers:      c.Features.Workers,
	}
}

// ClassifierConfig returns the classifier configuration
func (c *Root) ClassifierConfig() *classifier.Config {
	return &classifier.Config{
		Kind:    classifier.Kind(c.Classifier.Kind),
		URL:     c.Classifier.URL,
		Timeout: c.Classifier.Timeout,
		MinHz:   c.Classifier.MinHz,
		MaxHz:   c.Classifier.MaxHz,
	}
}

// KeyProfile returns the postprocessing key profile
func (c *Root) KeyProfile() (*tonal.KeyProfile, error) {
	return tonal.ParseKeyProfile(c.Postprocessing.Profile)
}

// NoteOptions returns the note file parser options
func (c *Root) NoteOptions() ([]notes.Option, error) {
	enc, err := notes.LookupEncoding(c.Encoding.Fallback)
	if err != nil {
		return nil, err
	}
	return []notes.Option{notes.WithFallbackEncoding(enc, c.Encoding.Fallback)}, nil
}
