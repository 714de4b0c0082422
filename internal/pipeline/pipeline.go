// Package pipeline wires discovery, filtering, fetching, normalization and
// batched writes into one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/duration"
	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/filtering"
	"github.com/spigell/profile-extractor/internal/fuzzy"
	"github.com/spigell/profile-extractor/internal/logger"
	"github.com/spigell/profile-extractor/internal/normalize"
	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/resume"
	"github.com/spigell/profile-extractor/internal/sink"
	"github.com/spigell/profile-extractor/internal/targets"
)

type (
	ProfileSource = fetch.Source
	RecordSink    = sink.RecordSink
)

// ErrSinkWrite marks failures to persist a batch. They end the run.
var ErrSinkWrite = sink.ErrWrite

// Discovery produces the identifiers to process.
type Discovery interface {
	ListIdentifiers(ctx context.Context, searchSpec string, maxPages int) ([]profile.Identifier, error)
}

// Config holds the run settings consumed by the pipeline.
type Config struct {
	SearchSpec string
	MaxPages   int
	Resume     bool
	BatchSize  int
	Fetch      fetch.Config

	FuzzyThreshold int
	Aliases        normalize.Aliases

	ExcludeFile   string
	ExcludeFailed bool
}

// Context is everything a run needs besides its endpoints. It is passed
// explicitly; nothing in the pipeline reads package state.
type Context struct {
	Config    Config
	Lists     targets.Lists
	Logger    *zap.Logger
	Clock     func() time.Time
	Listeners fetch.Listeners
	RunID     string
}

func (c Context) withDefaults() Context {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	if c.Config.FuzzyThreshold <= 0 {
		c.Config.FuzzyThreshold = fuzzy.DefaultThreshold
	}
	return c
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Discovered  int
	Skipped     int
	Attempted   int
	Succeeded   int
	Failed      int
	Written     int
	SuccessRate float64
	Duration    time.Duration
}

func (s Summary) fields() []zap.Field {
	return []zap.Field{
		zap.Int("discovered", s.Discovered),
		zap.Int("skipped", s.Skipped),
		zap.Int("attempted", s.Attempted),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Int("written", s.Written),
		zap.Float64("success_rate", s.SuccessRate),
		zap.Duration("duration", s.Duration),
	}
}

type Pipeline struct {
	pc         Context
	discovery  Discovery
	source     ProfileSource
	sink       RecordSink
	normalizer *normalize.Normalizer
	logger     *zap.Logger
}

func New(pc Context, discovery Discovery, source ProfileSource, s RecordSink) *Pipeline {
	pc = pc.withDefaults()
	log := logger.WithFields(pc.Logger, logger.ProfileFields("", pc.RunID)...)

	return &Pipeline{
		pc:        pc,
		discovery: discovery,
		source:    source,
		sink:      s,
		normalizer: normalize.New(
			pc.Lists,
			pc.Config.Aliases,
			fuzzy.NewMatcher(pc.Config.FuzzyThreshold),
			duration.New(pc.Clock),
			log,
		),
		logger: log,
	}
}

// RunID identifies this run in logs and archives.
func (p *Pipeline) RunID() string { return p.pc.RunID }

// Run executes one full pass. Per-profile failures are counted in the summary;
// the returned error is set for discovery failures, sink write failures and
// cancellation.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.pc.Clock()
	summary := Summary{RunID: p.pc.RunID}
	cfg := p.pc.Config

	ids, err := p.discovery.ListIdentifiers(ctx, cfg.SearchSpec, cfg.MaxPages)
	if err != nil {
		return summary, fmt.Errorf("discovering identifiers: %w", err)
	}
	summary.Discovered = len(ids)
	p.logger.Info("identifiers discovered", zap.Int("count", len(ids)))

	processed := profile.NewProcessedSet()
	if cfg.Resume {
		processed, err = resume.AlreadyProcessed(ctx, p.sink)
		if err != nil {
			return summary, err
		}
		p.logger.Info("resuming", zap.Int("already_processed", processed.Len()))
	}

	steps := []filtering.Filter{
		filtering.NewDuplicates(),
		filtering.NewProcessed(processed),
		filtering.NewExcludeFile(cfg.ExcludeFile),
	}
	if !cfg.Resume {
		filtering.DisableByName(steps, "processed", "resume is off")
	}
	for _, st := range filtering.Describe(steps) {
		p.logger.Info("filter configured",
			zap.String("name", st.Name),
			zap.Bool("enabled", st.Enabled),
			zap.String("reason", st.Reason),
			zap.Any("details", st.Details),
		)
	}

	ids, summary.Skipped, err = filtering.Run(ctx, filtering.Deps{Logger: p.logger}, steps, ids)
	if err != nil {
		return summary, fmt.Errorf("filtering identifiers: %w", err)
	}

	if len(ids) == 0 {
		p.logger.Info("nothing to fetch")
		summary.Duration = p.pc.Clock().Sub(started)
		return summary, nil
	}

	buffer := resume.NewBatchBuffer(p.sink, cfg.BatchSize, cfg.Resume, processed, p.logger)
	executor := fetch.NewExecutor(p.source, cfg.Fetch, p.logger)

	// Archival and metrics see every result before the write path can stop the run.
	listeners := append(fetch.Listeners{}, p.pc.Listeners...)
	listeners = append(listeners, fetch.ListenerFunc(func(ctx context.Context, ev fetch.Event) error {
		return p.consume(ctx, buffer, ev)
	}))

	results, runErr := executor.FetchAll(ctx, ids, listeners)
	if errors.Is(runErr, ErrSinkWrite) {
		p.finish(&summary, results, buffer, started)
		return summary, runErr
	}

	// Flushed batches are durable; what is still buffered is written even
	// after an interrupt.
	if err := buffer.Flush(context.WithoutCancel(ctx)); err != nil {
		p.finish(&summary, results, buffer, started)
		return summary, err
	}

	if cfg.ExcludeFailed && cfg.ExcludeFile != "" {
		added, err := filtering.AppendFailed(cfg.ExcludeFile, results)
		if err != nil {
			p.logger.Warn("recording failed profiles", zap.String("path", cfg.ExcludeFile), zap.Error(err))
		} else if added > 0 {
			p.logger.Info("failed profiles added to exclude file", zap.String("path", cfg.ExcludeFile), zap.Int("count", added))
		}
	}

	p.finish(&summary, results, buffer, started)
	p.logger.Info("run summary", summary.fields()...)

	return summary, runErr
}

func (p *Pipeline) consume(ctx context.Context, buffer *resume.BatchBuffer, ev fetch.Event) error {
	res := ev.Result
	if !res.Success() {
		p.logger.Info("profile skipped after failed fetch",
			zap.String(logger.FieldIdentifier, res.Identifier.String()),
			zap.Int("index", ev.Index),
			zap.Int("total", ev.Total),
		)
		return nil
	}

	rec := p.normalizer.Normalize(res.Raw, res.Identifier)
	return buffer.Add(ctx, rec)
}

func (p *Pipeline) finish(summary *Summary, results []profile.FetchResult, buffer *resume.BatchBuffer, started time.Time) {
	summary.Attempted = len(results)
	for _, res := range results {
		if res.Success() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	if summary.Attempted > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Attempted) * 100
	}
	summary.Written = buffer.Written()
	summary.Duration = p.pc.Clock().Sub(started)
}
