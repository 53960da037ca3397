package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/classifier"
	"github.com/RyanBlaney/sonido-pitch/config"
	"github.com/RyanBlaney/sonido-pitch/features"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/pipeline"
	"github.com/RyanBlaney/sonido-pitch/transcode"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
)

const (
	defaultInput  = "notes.txt"
	defaultOutput = "notes_new.txt"
)

var (
	outputPath    string
	showAccuracy  bool
	noPostproc    bool
	configPath    string
	logLevel      string
	classifierArg string
	classifierURL string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", defaultOutput, "output note file (single input only)")
	flags.BoolVarP(&showAccuracy, "accuracy", "a", false, "print a confusion matrix of authored against detected pitches")
	flags.BoolVarP(&noPostproc, "no-postproc", "m", false, "skip key detection and out-of-key correction")
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&classifierArg, "classifier", "", "classifier kind: harmonic or remote")
	flags.StringVar(&classifierURL, "classifier-url", "", "base URL of the remote model server")
}

var rootCmd = &cobra.Command{
	Use:   "sonido-pitch [input...]",
	Short: "Detect and rewrite the pitches of karaoke note files",
	Long: `Reads UltraStar note files, listens to the audio under every note and
writes a copy of each file with the detected pitch classes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, args)
	},
}

// Execute runs the root command. The error of a failed run is printed once
// by cobra.CheckErr.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg); err != nil {
		return err
	}
	logging.SetLevel(cfg.LogLevel())

	jobs, err := buildJobs(args, outputPath, cmd.Flags().Changed("output"))
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := p.TransformAll(ctx, jobs, cfg.Postprocessing.Enabled)
	return printResults(cmd.OutOrStdout(), results, showAccuracy)
}

// applyFlags layers command line overrides over the loaded configuration
func applyFlags(cfg *config.Root) error {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if classifierArg != "" {
		cfg.Classifier.Kind = classifierArg
	}
	if classifierURL != "" {
		cfg.Classifier.URL = classifierURL
		if classifierArg == "" {
			cfg.Classifier.Kind = string(classifier.KindRemote)
		}
	}
	if noPostproc {
		cfg.Postprocessing.Enabled = false
	}
	return cfg.Validate()
}

// buildJobs pairs every input with its output. One input writes to output;
// several inputs each write notes_new.txt next to themselves.
func buildJobs(args []string, output string, outputSet bool) ([]pipeline.Job, error) {
	if len(args) == 0 {
		args = []string{defaultInput}
	}
	if len(args) == 1 {
		return []pipeline.Job{{Input: args[0], Output: output}}, nil
	}
	if outputSet {
		return nil, fmt.Errorf("--output cannot be used with %d inputs", len(args))
	}

	jobs := make([]pipeline.Job, len(args))
	for i, in := range args {
		jobs[i] = pipeline.Job{
			Input:  in,
			Output: filepath.Join(filepath.Dir(in), defaultOutput),
		}
	}
	return jobs, nil
}

func buildPipeline(cfg *config.Root) (*pipeline.Pipeline, error) {
	decoder := transcode.NewDecoder(cfg.DecoderConfig())
	if err := decoder.ValidateConfig(); err != nil {
		return nil, err
	}

	extractor, err := features.NewExtractor(cfg.FeatureConfig())
	if err != nil {
		return nil, err
	}

	clf, err := classifier.New(cfg.ClassifierConfig(), cfg.FeatureConfig())
	if err != nil {
		return nil, err
	}

	profile, err := cfg.KeyProfile()
	if err != nil {
		return nil, err
	}
	noteOpts, err := cfg.NoteOptions()
	if err != nil {
		return nil, err
	}

	return pipeline.New(decoder, extractor, clf,
		pipeline.WithWorkers(cfg.Features.Workers),
		pipeline.WithKeyEstimator(tonal.NewKeyEstimatorWithProfile(profile)),
		pipeline.WithNoteOptions(noteOpts...),
	)
}

// printResults reports every job and returns an error when any failed
func printResults(w io.Writer, results []pipeline.JobResult, accuracy bool) error {
	failed := 0
	var firstErr error

	for _, jr := range results {
		if jr.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = jr.Err
			}
			if len(results) > 1 {
				fmt.Fprintf(w, "%s: %v\n", jr.Job.Input, jr.Err)
			}
			continue
		}

		res := jr.Result
		if res.KeyDetected {
			fmt.Fprintf(w, "%s: song key %s\n", jr.Job.Input, tonal.KeyName(res.Key))
		}
		if accuracy {
			if _, err := pipeline.Score(res.Original, res.Corrected).WriteTo(w); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s: wrote %s notes from %s frames (%s silent) to %s in %s\n",
			jr.Job.Input,
			humanize.Comma(int64(len(res.Corrected))),
			humanize.Comma(int64(res.Frames)),
			humanize.Comma(int64(res.Degenerate)),
			res.Output,
			durafmt.Parse(res.Elapsed).LimitFirstN(2).String(),
		)
	}

	switch {
	case failed == 0:
		return nil
	case len(results) == 1:
		return firstErr
	default:
		return fmt.Errorf("%d of %d note files failed", failed, len(results))
	}
}
