// Package pipeline runs pitch detection over a note file: parse, decode,
// segment, extract, classify in one batch, aggregate, optionally correct
// towards the song key, and write the rewritten note file.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/classifier"
	"github.com/RyanBlaney/sonido-pitch/features"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/notes"
	"github.com/RyanBlaney/sonido-pitch/transcode"
	"github.com/google/uuid"
	"github.com/remeh/sizedwaitgroup"
	"gonum.org/v1/gonum/mat"
)

// Decoder turns an audio file into mono PCM
type Decoder interface {
	DecodeFile(ctx context.Context, path string) (*transcode.AudioData, error)
}

// Result summarises one transformed note file
type Result struct {
	RunID       string        `json:"run_id"`
	Input       string        `json:"input"`
	Output      string        `json:"output"`
	Original    []int         `json:"original"`
	Corrected   []int         `json:"corrected"`
	Key         int           `json:"key"`
	KeyDetected bool          `json:"key_detected"`
	Frames      int           `json:"frames"`
	Degenerate  int           `json:"degenerate"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Job names one input note file and where its rewrite goes
type Job struct {
	Input  string
	Output string
}

// JobResult is the outcome of one Job
type JobResult struct {
	Job    Job
	Result *Result
	Err    error
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithWorkers bounds how many notes are feature-extracted at once
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithKeyEstimator replaces the default weighted key estimator
func WithKeyEstimator(ke *tonal.KeyEstimator) Option {
	return func(p *Pipeline) {
		if ke != nil {
			p.keys = ke
		}
	}
}

// WithNoteOptions passes parser options to notes.Load
func WithNoteOptions(opts ...notes.Option) Option {
	return func(p *Pipeline) {
		p.noteOpts = append(p.noteOpts, opts...)
	}
}

// Pipeline wires the detection stages together. It holds no per-run state,
// so one Pipeline may transform several files concurrently.
type Pipeline struct {
	decoder    Decoder
	extractor  *features.Extractor
	classifier classifier.Classifier
	keys       *tonal.KeyEstimator
	workers    int
	noteOpts   []notes.Option
	logger     logging.Logger
}

// New creates a pipeline
func New(decoder Decoder, extractor *features.Extractor, clf classifier.Classifier, opts ...Option) (*Pipeline, error) {
	if decoder == nil {
		return nil, fmt.Errorf("decoder cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("feature extractor cannot be nil")
	}
	if clf == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}

	p := &Pipeline{
		decoder:    decoder,
		extractor:  extractor,
		classifier: clf,
		keys:       tonal.NewKeyEstimator(),
		workers:    extractor.Config().Workers,
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	return p, nil
}

// Transform detects the pitches of the note file at input and writes the
// rewritten file to output. Nothing is written when any stage before the
// save fails.
func (p *Pipeline) Transform(ctx context.Context, input, output string, postprocess bool) (*Result, error) {
	started := time.Now()
	runID := uuid.New().String()
	ctx = logging.ContextWithFields(ctx, logging.Fields{"run_id": runID})

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Transform",
		"input":    input,
	})

	logger.Info("Starting pitch detection")

	project, err := notes.Load(input, p.noteOpts...)
	if err != nil {
		return nil, err
	}

	detected, frames, degenerate, err := p.detect(ctx, project)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      runID,
		Input:      input,
		Output:     output,
		Original:   project.Pitches(),
		Frames:     frames,
		Degenerate: degenerate,
	}

	if postprocess && len(detected) > 0 {
		estimate := p.keys.EstimateKey(detected)
		result.Key = estimate.Key
		result.KeyDetected = true
		detected = p.keys.CorrectPitches(estimate.Key, detected)

		logger.Info("Song key detected", logging.Fields{
			"key":      estimate.Key,
			"key_name": estimate.KeyName,
		})
	}

	updated, err := project.UpdatePitches(detected)
	if err != nil {
		return nil, fmt.Errorf("failed to update pitches: %w", err)
	}
	if err := updated.Save(output); err != nil {
		return nil, err
	}

	result.Corrected = updated.Pitches()
	result.Elapsed = time.Since(started)

	logger.Info("Pitch detection completed", logging.Fields{
		"output":     output,
		"notes":      project.Len(),
		"frames":     frames,
		"degenerate": degenerate,
		"elapsed":    result.Elapsed.String(),
	})

	return result, nil
}

// TransformAll runs every job in order. A failing job is recorded in its
// JobResult and the remaining jobs still run; only cancellation of ctx stops
// the batch. Failures are left to the caller to report.
func (p *Pipeline) TransformAll(ctx context.Context, jobs []Job, postprocess bool) []JobResult {
	results := make([]JobResult, len(jobs))
	for i, job := range jobs {
		results[i].Job = job
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		res, err := p.Transform(ctx, job.Input, job.Output, postprocess)
		if err != nil {
			p.logger.Debug("Pitch detection failed", logging.Fields{
				"function": "TransformAll",
				"input":    job.Input,
				"error":    err.Error(),
			})
		}
		results[i].Result = res
		results[i].Err = err
	}
	return results
}

// detect returns one detected pitch per note of project
func (p *Pipeline) detect(ctx context.Context, project *notes.Project) ([]int, int, int, error) {
	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "detect",
	})

	if project.Len() == 0 {
		logger.Warn("Note file has no notes")
		return []int{}, 0, 0, nil
	}

	audioPath, err := project.AudioPath()
	if err != nil {
		return nil, 0, 0, err
	}

	audio, err := p.decoder.DecodeFile(ctx, audioPath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode %s: %w", audioPath, err)
	}

	cfg := p.extractor.Config()
	if audio.SampleRate != cfg.SampleRate {
		return nil, 0, 0, fmt.Errorf("decoded audio is %d Hz but features expect %d Hz", audio.SampleRate, cfg.SampleRate)
	}

	segments := transcode.SegmentNotes(audio.PCM, audio.SampleRate, project.Notes())

	sets, err := p.extract(ctx, segments)
	if err != nil {
		return nil, 0, 0, err
	}

	counts := make([]int, len(sets))
	frames, degenerate := 0, 0
	for i, set := range sets {
		counts[i] = len(set.Frames)
		frames += counts[i]
		if set.Degenerate {
			degenerate++
		}
	}

	width := p.extractor.Width()
	data := make([]float64, 0, frames*width)
	for _, set := range sets {
		for _, frame := range set.Frames {
			data = append(data, frame...)
		}
	}
	batch := mat.NewDense(frames, width, data)

	logger.Debug("Classifying feature batch", logging.Fields{
		"notes":      len(segments),
		"frames":     frames,
		"width":      width,
		"degenerate": degenerate,
	})

	probs, err := p.classifier.PredictBatch(ctx, batch)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("classification failed: %w", err)
	}
	if err := classifier.ValidateOutput(batch, probs); err != nil {
		return nil, 0, 0, err
	}

	pitches, err := Aggregate(probs, counts)
	if err != nil {
		return nil, 0, 0, err
	}
	return pitches, frames, degenerate, nil
}

// extract computes the feature sets of all segments on a bounded worker pool.
// Results are stored by note index, so ordering never depends on scheduling.
func (p *Pipeline) extract(ctx context.Context, segments []transcode.Segment) ([]features.FeatureSet, error) {
	sets := make([]features.FeatureSet, len(segments))

	wg := sizedwaitgroup.New(p.workers)
	for i, seg := range segments {
		if err := wg.AddWithContext(ctx); err != nil {
			break
		}
		go func(i int, samples []float64) {
			defer wg.Done()
			sets[i] = p.extractor.Extract(samples)
		}(i, seg.Samples)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}
