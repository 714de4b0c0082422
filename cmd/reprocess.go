package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/archive"
	"github.com/spigell/profile-extractor/internal/logger"
	"github.com/spigell/profile-extractor/internal/pipeline"
	"github.com/spigell/profile-extractor/internal/targets"
)

var reprocessFlagKeys = map[string]string{
	"output": "output.path",
	"resume": "resume",
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <archive>",
	Short: "Normalize archived raw profiles into the output without fetching",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, reprocessFlagKeys)
	},
	Run: func(cmd *cobra.Command, args []string) {
		reprocess(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reprocessCmd)

	reprocessCmd.Flags().StringP("output", "o", "", "output path (default output/profiles.csv)")
	reprocessCmd.Flags().BoolP("resume", "r", false, "skip profiles already present in the output and append to it")
	reprocessCmd.Flags().BoolP("auto-approve", "y", false, "do not ask before overwriting an existing output")
}

func reprocess(cmd *cobra.Command, path string) {
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

	entries, err := archive.Load(path)
	if err != nil {
		logger.Fatal("loading archive", zap.String("path", path), zap.Error(err))
	}
	logger.Info("archive loaded", zap.String("path", path), zap.Int("entries", len(entries)))

	if err := reprocessEntries(ctx, cmd, config, entries, logger); err != nil {
		if errors.Is(err, errExit) {
			return
		}
		if errors.Is(err, context.Canceled) {
			logger.Warn("reprocess interrupted, flushed records are kept")
			return
		}
		logger.Fatal("reprocess failed", zap.Error(err))
	}
}

func reprocessEntries(ctx context.Context, cmd *cobra.Command, config *Config, entries []archive.Entry, log *zap.Logger) error {
	runID := uuid.NewString()
	log = logger.WithRun(log, runID, "archive", config.Output.Path)

	pcfg, err := pipelineConfig(config, log)
	if err != nil {
		return err
	}

	store, release, err := openSink(config.Output)
	if err != nil {
		return err
	}
	defer release()

	if !config.Resume && !autoApproved(cmd) {
		if err := confirmOverwrite(ctx, store); err != nil {
			return err
		}
	}

	p := pipeline.New(pipeline.Context{
		Config: pcfg,
		Lists:  targets.Load(config.Targets, log),
		Logger: log,
		RunID:  runID,
	}, nil, nil, store)

	_, err = p.Reprocess(ctx, entries)
	return err
}
