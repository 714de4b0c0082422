package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/profile"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	r, err := New()
	require.NoError(t, err)

	events := []fetch.Event{
		{Index: 1, Total: 3, Result: profile.FetchResult{Identifier: "a", Attempts: 1, Duration: time.Second}},
		{Index: 2, Total: 3, Result: profile.FetchResult{Identifier: "b", Attempts: 3, Err: errors.New("boom"), Duration: 3 * time.Minute}},
		{Index: 3, Total: 3, Result: profile.FetchResult{Identifier: "c", Attempts: 2, Duration: 2 * time.Second}},
	}
	for _, ev := range events {
		require.NoError(t, r.OnProgress(context.Background(), ev))
	}
	r.SetWritten(2)

	require.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues(outcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues(outcomeFailure)))
	require.Equal(t, 3.0, testutil.ToFloat64(r.total))
	require.Equal(t, 3.0, testutil.ToFloat64(r.done))
	require.Equal(t, 2.0, testutil.ToFloat64(r.written))
	require.Equal(t, 1, testutil.CollectAndCount(r.attempts))
	require.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r, err := New()
	require.NoError(t, err)
	require.NoError(t, r.OnProgress(context.Background(), fetch.Event{
		Index: 1, Total: 1, Result: profile.FetchResult{Identifier: "a", Attempts: 1},
	}))

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `profile_extractor_profile_fetch_total{outcome="success"} 1`)
}
