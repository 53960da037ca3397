package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		logLevel, classifierArg, classifierURL = "", "", ""
		noPostproc = false
	})
}

func TestBuildJobs(t *testing.T) {
	jobs, err := buildJobs(nil, defaultOutput, false)
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Job{{Input: "notes.txt", Output: "notes_new.txt"}}, jobs)

	jobs, err = buildJobs([]string{"song/notes.txt"}, "out.txt", true)
	require.NoError(t, err)
	assert.Equal(t, "out.txt", jobs[0].Output)

	jobs, err = buildJobs([]string{"a/notes.txt", "b/song.txt"}, defaultOutput, false)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, filepath.Join("a", "notes_new.txt"), jobs[0].Output)
	assert.Equal(t, filepath.Join("b", "notes_new.txt"), jobs[1].Output)

	_, err = buildJobs([]string{"a.txt", "b.txt"}, "out.txt", true)
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	resetFlags(t)

	logLevel = "debug"
	classifierURL = "http://models:9000"
	noPostproc = true

	cfg := config.DefaultConfig()
	require.NoError(t, applyFlags(cfg))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "remote", cfg.Classifier.Kind)
	assert.Equal(t, "http://models:9000", cfg.Classifier.URL)
	assert.False(t, cfg.Postprocessing.Enabled)
}

func TestApplyFlagsRejectsRemoteWithoutURL(t *testing.T) {
	resetFlags(t)

	classifierArg = "remote"
	assert.Error(t, applyFlags(config.DefaultConfig()))
}

func TestPrintResults(t *testing.T) {
	results := []pipeline.JobResult{{
		Job: pipeline.Job{Input: "notes.txt", Output: "notes_new.txt"},
		Result: &pipeline.Result{
			Output:      "notes_new.txt",
			Original:    []int{0, 2, 4, 6},
			Corrected:   []int{0, 2, 4, 7},
			Key:         0,
			KeyDetected: true,
			Frames:      1234,
			Degenerate:  1,
			Elapsed:     1500 * time.Millisecond,
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, printResults(&buf, results, true))

	out := buf.String()
	assert.Contains(t, out, "notes.txt: song key C major / A minor\n")
	assert.Contains(t, out, "accuracy: 75.0%")
	assert.Contains(t, out, "wrote 4 notes from 1,234 frames (1 silent) to notes_new.txt")
}

func TestPrintResultsFailures(t *testing.T) {
	boom := errors.New("boom")

	var buf bytes.Buffer
	err := printResults(&buf, []pipeline.JobResult{{Job: pipeline.Job{Input: "a"}, Err: boom}}, false)
	assert.ErrorIs(t, err, boom)

	buf.Reset()
	err = printResults(&buf, []pipeline.JobResult{
		{Job: pipeline.Job{Input: "a"}, Err: boom},
		{Job: pipeline.Job{Input: "b"}, Result: &pipeline.Result{Output: "b_new"}},
	}, false)
	assert.EqualError(t, err, "1 of 2 note files failed")
	assert.Contains(t, buf.String(), "a: boom\n")
	assert.Contains(t, buf.String(), "b: wrote 0 notes")
}

func TestRootCommandLeavesErrorPrintingToExecute(t *testing.T) {
	t.Cleanup(func() {
		configPath = ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Empty(t, stderr.String())
	assert.Empty(t, stdout.String())
}
