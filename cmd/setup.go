package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/ai/gemini"
	"github.com/spigell/profile-extractor/internal/browser"
	"github.com/spigell/profile-extractor/internal/discovery"
	"github.com/spigell/profile-extractor/internal/logger"
	"github.com/spigell/profile-extractor/internal/normalize"
	"github.com/spigell/profile-extractor/internal/pipeline"
	"github.com/spigell/profile-extractor/internal/rapidapi"
	"github.com/spigell/profile-extractor/internal/secrets"
	"github.com/spigell/profile-extractor/internal/sink/csvsink"
	"github.com/spigell/profile-extractor/internal/sink/sqlitesink"
)

const (
	sourceRapidAPI = "rapidapi"
	sourceBrowser  = "browser"

	sinkCSV    = "csv"
	sinkSQLite = "sqlite"
)

// parseDelay reads "3-5" or "4" (seconds) into a min/max pair.
func parseDelay(s string) (time.Duration, time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}

	lo, hi, isRange := strings.Cut(s, "-")
	minSec, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	maxSec := minSec
	if isRange {
		if maxSec, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
			return 0, 0, fmt.Errorf("invalid delay %q: %w", s, err)
		}
	}
	if minSec < 0 || maxSec < minSec {
		return 0, 0, fmt.Errorf("invalid delay %q: want 0 <= min <= max", s)
	}

	toDuration := func(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
	return toDuration(minSec), toDuration(maxSec), nil
}

// pipelineConfig maps the user config onto what the pipeline consumes.
func pipelineConfig(config *Config, logger *zap.Logger) (pipeline.Config, error) {
	fetchCfg := config.Fetch
	if fetchCfg.MinDelay == 0 && fetchCfg.MaxDelay == 0 {
		minDelay, maxDelay, err := parseDelay(config.Delay)
		if err != nil {
			return pipeline.Config{}, err
		}
		fetchCfg.MinDelay, fetchCfg.MaxDelay = minDelay, maxDelay
	}

	aliases := config.Aliases
	if path := strings.TrimSpace(config.AliasesFile); path != "" {
		loaded, err := normalize.LoadAliases(path)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("loading aliases: %w", err)
		}
		aliases = loaded
		logger.Info("alias table loaded", zap.String("path", path))
	}

	return pipeline.Config{
		SearchSpec:     config.Input,
		MaxPages:       config.MaxPages,
		Resume:         config.Resume,
		BatchSize:      config.BatchSize,
		Fetch:          fetchCfg,
		FuzzyThreshold: config.FuzzyThreshold,
		Aliases:        aliases,
		ExcludeFile:    config.ExcludeFile,
		ExcludeFailed:  config.ExcludeFailed,
	}, nil
}

// openSink returns the configured sink and a release function.
func openSink(cfg *OutputConfig) (pipeline.RecordSink, func(), error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, nil, fmt.Errorf("output path is required")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", sinkCSV:
		return csvsink.New(path), func() {}, nil
	case sinkSQLite:
		s, err := sqlitesink.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported output type: %s", cfg.Type)
	}
}

type endpoints struct {
	source    pipeline.ProfileSource
	discovery pipeline.Discovery
	close     func()
}

// newEndpoints builds the profile source and the discovery for config.
func newEndpoints(ctx context.Context, config *Config, log *zap.Logger) (*endpoints, error) {
	ep := &endpoints{close: func() {}}

	switch strings.ToLower(strings.TrimSpace(config.Source)) {
	case "", sourceRapidAPI:
		rc := config.RapidAPI
		if rc == nil {
			rc = &RapidAPIConfig{}
		}
		key, err := secrets.Load(secrets.Source{
			Name:  "rapidapi key",
			Value: rc.APIKey,
			File:  rc.APIKeyFile,
			Env:   "RAPIDAPI_KEY",
		})
		if err != nil {
			return nil, err
		}
		ep.source = rapidapi.New(log, key)
	case sourceBrowser:
		b, err := browser.New(config.Browser, log)
		if err != nil {
			return nil, err
		}
		ep.source = b
		ep.close = b.Close
		if isURL(config.Input) {
			ep.discovery = b
		}
	default:
		return nil, fmt.Errorf("unsupported source: %s", config.Source)
	}

	if ep.discovery == nil {
		if isURL(config.Input) {
			ep.close()
			return nil, fmt.Errorf("search urls need the browser source, got %q", config.Source)
		}
		ep.discovery = discovery.NewCSV(config.InputColumn, log)
	}

	if config.AI != nil && config.AI.Enabled {
		structurer, err := newStructurer(ctx, ep.source, config.AI, log)
		if err != nil {
			ep.close()
			return nil, err
		}
		ep.source = structurer
	}

	return ep, nil
}

func newStructurer(ctx context.Context, source pipeline.ProfileSource, cfg *AIConfig, log *zap.Logger) (*gemini.Structurer, error) {
	gc := cfg.Gemini
	if gc == nil {
		gc = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gc.APIKey,
		File:  gc.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithFields(log, zap.String("provider", "gemini"), zap.String("model", gc.Model))
	generator, err := gemini.NewGenerator(ctx, apiKey, gc.Model, gc.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewStructurer(source, generator, gc.MaxLogLength, genLogger), nil
}

func isURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
