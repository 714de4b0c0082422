package fetch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/utils"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 30 * time.Second
	DefaultBackoffCap  = 120 * time.Second
)

// Config controls pacing and retries.
type Config struct {
	MaxRetries  int           `mapstructure:"max-retries"`
	MinDelay    time.Duration `mapstructure:"min-delay"`
	MaxDelay    time.Duration `mapstructure:"max-delay"`
	BackoffBase time.Duration `mapstructure:"backoff-base"`
	BackoffCap  time.Duration `mapstructure:"backoff-cap"`
	// RequestsPerMinute caps attempts across the run when positive.
	RequestsPerMinute float64 `mapstructure:"requests-per-minute"`
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.MinDelay < 0 {
		c.MinDelay = 0
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	return c
}

// Executor fetches identifiers one by one with retries, backoff and a random
// delay after each success.
type Executor struct {
	source  Source
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter

	// wait and jitter are replaced in tests.
	wait   func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

func NewExecutor(source Source, cfg Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.withDefaults()
	e := &Executor{
		source: source,
		cfg:    cfg,
		logger: logger,
		wait:   utils.WaitFor,
		jitter: rand.Float64,
	}

	if cfg.RequestsPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}

	return e
}

// Config returns the effective configuration.
func (e *Executor) Config() Config { return e.cfg }

// Backoff returns the wait before attempt k (k > 0): min(base*2^k, cap).
func (e *Executor) Backoff(k int) time.Duration {
	d := e.cfg.BackoffBase
	for i := 0; i < k; i++ {
		d *= 2
		if d >= e.cfg.BackoffCap {
			return e.cfg.BackoffCap
		}
	}
	return d
}

// Delay picks the pause after a successful fetch, uniform in [MinDelay, MaxDelay].
func (e *Executor) Delay() time.Duration {
	spread := e.cfg.MaxDelay - e.cfg.MinDelay
	if spread <= 0 {
		return e.cfg.MinDelay
	}
	return e.cfg.MinDelay + time.Duration(e.jitter()*float64(spread))
}

// FetchAll processes ids sequentially and returns one result per processed
// identifier. Failures of single identifiers are reported through results, not
// through the returned error. The error is non-nil only when a listener failed
// or ctx was cancelled; an attempt already in flight is allowed to finish.
func (e *Executor) FetchAll(ctx context.Context, ids []profile.Identifier, listener Listener) ([]profile.FetchResult, error) {
	results := make([]profile.FetchResult, 0, len(ids))
	total := len(ids)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := e.fetchOne(ctx, id)
		results = append(results, res)

		if res.Success() {
			e.logger.Info("profile fetched",
				zap.String("identifier", id.String()),
				zap.Int("index", i+1),
				zap.Int("total", total),
				zap.Int("attempts", res.Attempts),
			)
		} else {
			e.logger.Warn("profile fetch failed",
				zap.String("identifier", id.String()),
				zap.Int("index", i+1),
				zap.Int("total", total),
				zap.Int("attempts", res.Attempts),
				zap.Error(res.Err),
			)
		}

		if listener != nil {
			// Listeners persist what was fetched; let them finish on shutdown.
			if err := listener.OnProgress(context.WithoutCancel(ctx), Event{Index: i + 1, Total: total, Result: res}); err != nil {
				return results, err
			}
		}

		if err := ctx.Err(); err != nil {
			return results, err
		}

		if res.Success() && i < total-1 {
			d := e.Delay()
			e.logger.Debug("waiting before next profile", zap.Duration("delay", d))
			if err := e.wait(ctx, d); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func (e *Executor) fetchOne(ctx context.Context, id profile.Identifier) profile.FetchResult {
	started := time.Now()
	res := profile.FetchResult{Identifier: id}

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			d := e.Backoff(attempt)
			e.logger.Info("retrying profile fetch",
				zap.String("identifier", id.String()),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", e.cfg.MaxRetries),
				zap.Duration("backoff", d),
			)
			if err := e.wait(ctx, d); err != nil {
				break
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				if res.Err == nil {
					res.Err = fmt.Errorf("waiting for rate limiter: %w", err)
				}
				break
			}
		}

		res.Attempts++
		// The attempt runs to completion even if ctx is cancelled meanwhile.
		raw, err := e.source.Fetch(context.WithoutCancel(ctx), id)
		if err == nil {
			res.Raw = raw
			res.Err = nil
			res.Duration = time.Since(started)
			return res
		}

		res.Err = err
		e.logger.Debug("profile fetch attempt failed",
			zap.String("identifier", id.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if IsPermanent(err) || ctx.Err() != nil {
			break
		}
	}

	if res.Err == nil {
		res.Err = ctx.Err()
	}
	res.Duration = time.Since(started)
	return res
}
