package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spigell/profile-extractor/internal/sink/csvsink"
	"github.com/spigell/profile-extractor/internal/sink/sqlitesink"
)

func TestParseDelay(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		min     time.Duration
		max     time.Duration
		wantErr bool
	}{
		{name: "empty", in: ""},
		{name: "range", in: "3-5", min: 3 * time.Second, max: 5 * time.Second},
		{name: "single", in: "4", min: 4 * time.Second, max: 4 * time.Second},
		{name: "fractional", in: " 0.5 - 1.5 ", min: 500 * time.Millisecond, max: 1500 * time.Millisecond},
		{name: "inverted", in: "5-3", wantErr: true},
		{name: "garbage", in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minDelay, maxDelay, err := parseDelay(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.min, minDelay)
			require.Equal(t, tt.max, maxDelay)
		})
	}
}

func TestOpenSink(t *testing.T) {
	dir := t.TempDir()

	s, release, err := openSink(&OutputConfig{Path: filepath.Join(dir, "out.csv")})
	require.NoError(t, err)
	require.IsType(t, &csvsink.Sink{}, s)
	release()

	s, release, err = openSink(&OutputConfig{Type: "SQLite", Path: filepath.Join(dir, "out.db")})
	require.NoError(t, err)
	require.IsType(t, &sqlitesink.Sink{}, s)
	release()

	_, _, err = openSink(&OutputConfig{Type: "xlsx", Path: filepath.Join(dir, "out.xlsx")})
	require.Error(t, err)

	_, _, err = openSink(&OutputConfig{})
	require.Error(t, err)
}

func TestIsURL(t *testing.T) {
	require.True(t, isURL(" https://www.linkedin.com/search/results/people/?keywords=x"))
	require.False(t, isURL("profiles.csv"))
}
