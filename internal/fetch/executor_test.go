package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
)

type scriptedSource struct {
	mu       sync.Mutex
	failures map[profile.Identifier]int
	calls    map[profile.Identifier]int
	onFetch  func(id profile.Identifier)
}

func (s *scriptedSource) Fetch(ctx context.Context, id profile.Identifier) (profile.RawRecord, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[profile.Identifier]int)
	}
	s.calls[id]++
	call := s.calls[id]
	s.mu.Unlock()

	if s.onFetch != nil {
		s.onFetch(id)
	}
	if ctx.Err() != nil {
		return nil, errors.New("attempt saw a cancelled context")
	}
	if call <= s.failures[id] {
		return nil, errors.New("upstream unavailable")
	}
	return map[string]any{"name": string(id)}, nil
}

type waitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func newTestExecutor(src Source, cfg Config) (*Executor, *waitRecorder) {
	e := NewExecutor(src, cfg, zap.NewNop())
	rec := &waitRecorder{}
	e.wait = rec.wait
	e.jitter = func() float64 { return 0.5 }
	return e, rec
}

func TestBackoff(t *testing.T) {
	e, _ := newTestExecutor(&scriptedSource{}, Config{})

	require.Equal(t, 60*time.Second, e.Backoff(1))
	require.Equal(t, 120*time.Second, e.Backoff(2))
	require.Equal(t, 120*time.Second, e.Backoff(5))
	require.Equal(t, DefaultMaxRetries, e.Config().MaxRetries)
}

func TestDelayWithinRange(t *testing.T) {
	e, _ := newTestExecutor(&scriptedSource{}, Config{MinDelay: 3 * time.Second, MaxDelay: 5 * time.Second})
	require.Equal(t, 4*time.Second, e.Delay())

	e.jitter = func() float64 { return 0 }
	require.Equal(t, 3*time.Second, e.Delay())

	fixed, _ := newTestExecutor(&scriptedSource{}, Config{MinDelay: 2 * time.Second, MaxDelay: time.Second})
	require.Equal(t, 2*time.Second, fixed.Delay())
}

func TestFetchAllRetriesThenSucceeds(t *testing.T) {
	src := &scriptedSource{failures: map[profile.Identifier]int{"a": 2}}
	e, waits := newTestExecutor(src, Config{MinDelay: time.Second, MaxDelay: time.Second})

	var events []Event
	results, err := e.FetchAll(context.Background(), []profile.Identifier{"a", "b"}, ListenerFunc(func(_ context.Context, ev Event) error {
		events = append(events, ev)
		return nil
	}))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.True(t, results[0].Success())
	require.Equal(t, 3, results[0].Attempts)
	require.True(t, results[1].Success())

	require.Len(t, events, 2)
	require.Equal(t, 1, events[0].Index)
	require.Equal(t, 2, events[1].Index)
	require.Equal(t, 2, events[1].Total)

	// backoff before attempts 2 and 3, then one delay between the two successes
	require.Equal(t, []time.Duration{60 * time.Second, 120 * time.Second, time.Second}, waits.waits)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	src := &scriptedSource{failures: map[profile.Identifier]int{"bad": 10}}
	e, _ := newTestExecutor(src, Config{MaxRetries: 3})

	results, err := e.FetchAll(context.Background(), []profile.Identifier{"bad", "good"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.False(t, results[0].Success())
	require.EqualError(t, results[0].Err, "upstream unavailable")
	require.Equal(t, 3, results[0].Attempts)
	require.Equal(t, 3, src.calls["bad"])

	require.True(t, results[1].Success())
	require.Equal(t, 1, src.calls["good"])
}

func TestFetchAllStopsOnPermanentError(t *testing.T) {
	calls := 0
	src := SourceFunc(func(context.Context, profile.Identifier) (profile.RawRecord, error) {
		calls++
		return nil, Permanent(errors.New("profile not found"))
	})
	e, _ := newTestExecutor(src, Config{MaxRetries: 3})

	results, err := e.FetchAll(context.Background(), []profile.Identifier{"gone"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.True(t, IsPermanent(results[0].Err))
}

func TestFetchAllListenerErrorAborts(t *testing.T) {
	e, _ := newTestExecutor(&scriptedSource{}, Config{})
	boom := errors.New("sink write failed")

	results, err := e.FetchAll(context.Background(), []profile.Identifier{"a", "b", "c"}, Listeners{
		ListenerFunc(func(context.Context, Event) error { return nil }),
		ListenerFunc(func(_ context.Context, ev Event) error {
			if ev.Index == 2 {
				return boom
			}
			return nil
		}),
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, results, 2)
}

func TestFetchAllCancellationLetsAttemptFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{onFetch: func(id profile.Identifier) {
		if id == "b" {
			cancel()
		}
	}}
	e, _ := newTestExecutor(src, Config{})

	var events []Event
	results, err := e.FetchAll(ctx, []profile.Identifier{"a", "b", "c"}, ListenerFunc(func(lctx context.Context, ev Event) error {
		require.NoError(t, lctx.Err())
		events = append(events, ev)
		return nil
	}))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	require.True(t, results[1].Success(), "in-flight attempt must complete")
	require.Len(t, events, 2)
	require.Zero(t, src.calls["c"])
}

func TestFetchAllRateLimiter(t *testing.T) {
	e, _ := newTestExecutor(&scriptedSource{}, Config{RequestsPerMinute: 6000})
	require.NotNil(t, e.limiter)

	results, err := e.FetchAll(context.Background(), []profile.Identifier{"a", "b"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
}
