package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/classifier"
	"github.com/RyanBlaney/sonido-pitch/features"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 2048, cfg.Features.WindowLength)
	assert.Equal(t, 512, cfg.Features.Stride)
	assert.Equal(t, 80.0, cfg.Features.CutoffHz)
	assert.Equal(t, "harmonic", cfg.Classifier.Kind)
	assert.True(t, cfg.Postprocessing.Enabled)
	assert.Equal(t, logging.InfoLevel, cfg.LogLevel())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
audio:
  timeout: 45s
features:
  transform: dct4
  half_spectrum: true
classifier:
  kind: remote
  url: http://localhost:8080
postprocessing:
  profile: binary
encoding:
  fallback: iso-8859-15
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logging.DebugLevel, cfg.LogLevel())
	assert.Equal(t, 45*time.Second, cfg.Audio.Timeout)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 2048, cfg.Features.WindowLength)

	feat := cfg.FeatureConfig()
	assert.Equal(t, features.TransformDCT4, feat.Transform)
	assert.True(t, feat.HalfSpectrum)
	assert.Equal(t, cfg.Audio.SampleRate, feat.SampleRate)

	clf := cfg.ClassifierConfig()
	assert.Equal(t, classifier.KindRemote, clf.Kind)
	assert.Equal(t, "http://localhost:8080", clf.URL)
	assert.Equal(t, 140.0, clf.MinHz)

	profile, err := cfg.KeyProfile()
	require.NoError(t, err)
	assert.Equal(t, tonal.KeyProfileBinary, profile.Kind())

	opts, err := cfg.NoteOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	assert.Equal(t, "ffmpeg", cfg.DecoderConfig().FFmpegPath)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "features:\n  window: 10\n"},
		{"bad yaml", "features: [\n"},
		{"zero window", "features:\n  window_length: 0\n"},
		{"stride beyond window", "features:\n  window_length: 256\n  stride: 512\n"},
		{"odd dct4 window", "features:\n  transform: dct4\n  window_length: 2047\n"},
		{"unknown transform", "features:\n  transform: wavelet\n"},
		{"remote without url", "classifier:\n  kind: remote\n"},
		{"unknown classifier", "classifier:\n  kind: onnx\n"},
		{"unknown profile", "postprocessing:\n  profile: krumhansl\n"},
		{"unknown encoding", "encoding:\n  fallback: klingon\n"},
		{"unknown log level", "log:\n  level: chatty\n"},
		{"negative sample rate", "audio:\n  sample_rate: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
