package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/go-audio/wav"
)

// maxStderrTail bounds how much ffmpeg diagnostic output a DecodeError keeps
const maxStderrTail = 2048

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Mono samples in [-1, 1)
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
	Source     string        `json:"source,omitempty"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	FFmpegPath string        `json:"ffmpeg_path" yaml:"ffmpeg_path"` // Path to ffmpeg binary
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`         // Timeout for one ffmpeg run
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		SampleRate: 16000,
		FFmpegPath: "ffmpeg", // Assume in PATH
		Timeout:    2 * time.Minute,
	}
}

// DecodeError reports an ffmpeg run that exited unsuccessfully
type DecodeError struct {
	Path     string
	ExitCode int
	Stderr   string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("ffmpeg failed to decode %s (exit code %d)", e.Path, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// DecodeFile decodes an audio file of any format ffmpeg understands into
// mono PCM at the configured sample rate.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": filename,
	})

	logger.Debug("Starting audio file decode")

	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("audio file not accessible: %w", err)
	}

	tmp, err := os.CreateTemp("", "sonido-pitch-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary wav file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := d.buildFFmpegArgs(filename, tmpPath)
	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg decode of %s interrupted: %w", filename, ctxErr)
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			decodeErr := &DecodeError{
				Path:     filename,
				ExitCode: exitError.ExitCode(),
				Stderr:   tail(stderr.String(), maxStderrTail),
			}
			logger.Error(decodeErr, "FFmpeg decode failed")
			return nil, decodeErr
		}
		return nil, fmt.Errorf("failed to run ffmpeg: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open decoded wav: %w", err)
	}
	defer f.Close()

	audio, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read decoded wav: %w", err)
	}
	audio.Source = filename

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"output_samples":     len(audio.PCM),
		"output_sample_rate": audio.SampleRate,
		"output_duration":    audio.Duration.Seconds(),
	})

	return audio, nil
}

// DecodeWAV reads PCM wav data. Multi-channel input is averaged down to mono
// and integer samples are scaled by their bit depth into [-1, 1).
func DecodeWAV(r io.ReadSeeker) (*AudioData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("wav file has no sample rate")
	}

	channels := max(buf.Format.NumChannels, 1)
	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	pcm := make([]float64, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += buf.Data[i*channels+c]
		}
		pcm[i] = float64(sum) / float64(channels) / scale
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: buf.Format.SampleRate,
		Channels:   1,
		Duration:   time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate),
		Timestamp:  time.Now(),
	}, nil
}

// buildFFmpegArgs builds the command line converting input to mono 16-bit wav
func (d *Decoder) buildFFmpegArgs(input, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-y",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.SampleRate),
		"-acodec", "pcm_s16le",
		"-f", "wav",
		output,
	}
}

// GetConfig returns the decoder configuration as a map
func (d *Decoder) GetConfig() map[string]any {
	return map[string]any{
		"sample_rate": d.config.SampleRate,
		"ffmpeg_path": d.config.FFmpegPath,
		"timeout":     d.config.Timeout.String(),
	}
}

// ValidateConfig validates the decoder configuration
func (d *Decoder) ValidateConfig() error {
	if d.config.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive: %d", d.config.SampleRate)
	}

	if d.config.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %v", d.config.Timeout)
	}

	if err := d.checkFFmpegAvailability(); err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}

	return nil
}

// checkFFmpegAvailability checks if ffmpeg is available
func (d *Decoder) checkFFmpegAvailability() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
