package transcode

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, sampleRate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestDecodeWAVScalesSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, 8000, 1, []int{0, 16384, -32768, 32767})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	data, err := DecodeWAV(f)
	require.NoError(t, err)

	assert.Equal(t, 8000, data.SampleRate)
	assert.Equal(t, 1, data.Channels)
	require.Len(t, data.PCM, 4)
	assert.InDelta(t, 0.0, data.PCM[0], 1e-12)
	assert.InDelta(t, 0.5, data.PCM[1], 1e-12)
	assert.InDelta(t, -1.0, data.PCM[2], 1e-12)
	assert.InDelta(t, 32767.0/32768.0, data.PCM[3], 1e-12)
	assert.Equal(t, 500*time.Microsecond, data.Duration)
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 8000, 2, []int{16384, 0, -16384, -16384})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	data, err := DecodeWAV(f)
	require.NoError(t, err)
	require.Len(t, data.PCM, 2)
	assert.InDelta(t, 0.25, data.PCM[0], 1e-12)
	assert.InDelta(t, -0.5, data.PCM[1], 1e-12)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = DecodeWAV(f)
	assert.Error(t, err)
}

func TestDecodeFileWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "tone.wav")
	data := make([]int, 44100)
	for i := range data {
		data[i] = int(10000 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	writeWAV(t, src, 44100, 1, data)

	dec := NewDecoder(nil)
	require.NoError(t, dec.ValidateConfig())

	out, err := dec.DecodeFile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 16000, out.SampleRate)
	assert.InDelta(t, 16000, len(out.PCM), 200)
	assert.Equal(t, src, out.Source)
}

func TestDecodeFileReportsExitCode(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false binary not available")
	}

	src := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(src, []byte("not audio"), 0o644))

	dec := NewDecoder(&DecoderConfig{SampleRate: 16000, FFmpegPath: falseBin, Timeout: 10 * time.Second})
	_, err = dec.DecodeFile(context.Background(), src)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 1, decodeErr.ExitCode)
	assert.Equal(t, src, decodeErr.Path)
}

func TestDecodeFileMissingInput(t *testing.T) {
	dec := NewDecoder(nil)
	_, err := dec.DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	dec := NewDecoder(&DecoderConfig{SampleRate: 0, FFmpegPath: "ffmpeg"})
	assert.Error(t, dec.ValidateConfig())

	dec = NewDecoder(&DecoderConfig{SampleRate: 16000, FFmpegPath: "/nonexistent/ffmpeg"})
	assert.Error(t, dec.ValidateConfig())
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("  abc\n", 10))
	assert.Equal(t, "cde", tail("abcde", 3))
}
