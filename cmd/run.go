package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/archive"
	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/logger"
	"github.com/spigell/profile-extractor/internal/metrics"
	"github.com/spigell/profile-extractor/internal/pipeline"
	"github.com/spigell/profile-extractor/internal/targets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errExit = errors.New("exit requested")

var overwritePrompt = promptui.Select{
	Label: "Output already exists and is replaced once the first batch is written. Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var runFlagKeys = map[string]string{
	"input":        "input",
	"output":       "output.path",
	"source":       "source",
	"resume":       "resume",
	"delay":        "delay",
	"batch-size":   "batch-size",
	"max-pages":    "max-pages",
	"exclude-file": "exclude-file",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover, fetch and normalize profiles into the output",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, runFlagKeys)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("input", "i", "", "CSV file with profile links, or a search url with the browser source")
	runCmd.Flags().StringP("output", "o", "", "output path (default output/profiles.csv)")
	runCmd.Flags().String("source", "", "profile source: rapidapi or browser")
	runCmd.Flags().BoolP("resume", "r", false, "skip profiles already present in the output and append to it")
	runCmd.Flags().String("delay", "", `delay between profiles in seconds, "3-5" or "4"`)
	runCmd.Flags().Int("batch-size", 0, "save progress every N profiles")
	runCmd.Flags().Int("max-pages", 0, "maximum search result pages to walk (0 is unlimited)")
	runCmd.Flags().StringP("exclude-file", "e", "", "json file with profiles to skip")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask before overwriting an existing output")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the profile-extractor", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.Input == "" {
		logger.Fatal("input is required", zap.String("hint", "pass --input or set input in the config file"))
	}

	if err := execute(ctx, cmd, config, logger); err != nil {
		if errors.Is(err, errExit) {
			return
		}
		if errors.Is(err, context.Canceled) {
			logger.Warn("run interrupted, flushed records are kept")
			return
		}
		logger.Fatal("run failed", zap.Error(err))
	}
}

func execute(ctx context.Context, cmd *cobra.Command, config *Config, log *zap.Logger) error {
	runID := uuid.NewString()
	log = logger.WithRun(log, runID, config.Source, config.Output.Path)

	pcfg, err := pipelineConfig(config, log)
	if err != nil {
		return err
	}

	store, release, err := openSink(config.Output)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer release()

	if !config.Resume && !autoApproved(cmd) {
		if err := confirmOverwrite(ctx, store); err != nil {
			return err
		}
	}

	ep, err := newEndpoints(ctx, config, log)
	if err != nil {
		return fmt.Errorf("preparing source: %w", err)
	}
	defer ep.close()

	var listeners fetch.Listeners

	var arch *archive.Archive
	if config.ArchiveDir != "" {
		if arch, err = archive.New(config.ArchiveDir, runID, log); err != nil {
			return err
		}
		listeners = append(listeners, arch)
	}

	var recorder *metrics.Recorder
	if config.MetricsFile != "" {
		if recorder, err = metrics.New(); err != nil {
			return err
		}
		listeners = append(listeners, recorder)
	}

	p := pipeline.New(pipeline.Context{
		Config:    pcfg,
		Lists:     targets.Load(config.Targets, log),
		Logger:    log,
		Listeners: listeners,
		RunID:     runID,
	}, ep.discovery, ep.source, store)

	summary, runErr := p.Run(ctx)

	if arch != nil {
		if err := arch.Close(); err != nil {
			log.Warn("closing archive", zap.Error(err))
		}
	}
	if recorder != nil {
		recorder.SetWritten(summary.Written)
		if err := recorder.WriteTextfile(config.MetricsFile); err != nil {
			log.Warn("exporting metrics", zap.Error(err))
		}
	}

	return runErr
}

func confirmOverwrite(ctx context.Context, store pipeline.RecordSink) error {
	exists, err := store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("checking output: %w", err)
	}
	if !exists {
		return nil
	}

	_, action, err := overwritePrompt.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errExit
	}
	return nil
}

func autoApproved(cmd *cobra.Command) bool {
	approved, _ := cmd.Flags().GetBool("auto-approve")
	return approved
}

// redacted hides secrets before the config is logged.
func redacted(config *Config) Config {
	c := *config
	if c.RapidAPI != nil {
		r := *c.RapidAPI
		if r.APIKey != "" {
			r.APIKey = "***"
		}
		c.RapidAPI = &r
	}
	if c.AI != nil && c.AI.Gemini != nil {
		a := *c.AI
		g := *a.Gemini
		if g.APIKey != "" {
			g.APIKey = "***"
		}
		a.Gemini = &g
		c.AI = &a
	}
	return c
}
