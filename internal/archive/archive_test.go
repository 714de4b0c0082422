package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/profile"
)

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir, "run-1", nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "run-1"), a.Dir())

	events := []fetch.Event{
		{Index: 1, Total: 3, Result: profile.FetchResult{Identifier: "u1", Raw: map[string]any{"name": "Jane"}, Attempts: 1}},
		{Index: 2, Total: 3, Result: profile.FetchResult{Identifier: "u2", Err: errors.New("bad status: 404 Not Found"), Attempts: 1}},
		{Index: 3, Total: 3, Result: profile.FetchResult{Identifier: "u3", Raw: []byte(`{"name":"John"}`), Attempts: 2}},
	}
	for _, ev := range events {
		require.NoError(t, a.OnProgress(context.Background(), ev))
	}
	require.NoError(t, a.Close())

	for _, name := range []string{"profile_001.json", "profile_002_FAILED.json", "profile_003.json", CombinedFile} {
		_, err := os.Stat(filepath.Join(a.Dir(), name))
		require.NoError(t, err, name)
	}

	fromDir, err := Load(a.Dir())
	require.NoError(t, err)
	fromFile, err := Load(filepath.Join(a.Dir(), CombinedFile))
	require.NoError(t, err)

	for _, entries := range [][]Entry{fromDir, fromFile} {
		require.Len(t, entries, 3)
		require.True(t, entries[0].Usable())
		require.False(t, entries[1].Usable())
		require.Equal(t, "bad status: 404 Not Found", entries[1].Error)
		require.Equal(t, "u3", entries[2].URL)
		require.Equal(t, map[string]any{"name": "John"}, profile.Decode(entries[2].Raw()))
	}
}

func TestLoadOrdersByIndex(t *testing.T) {
	dir := t.TempDir()
	a, err := New(dir, "long-run", nil)
	require.NoError(t, err)

	for _, index := range []int{1000, 101, 2} {
		ev := fetch.Event{Index: index, Total: 1000, Result: profile.FetchResult{
			Identifier: profile.Identifier(fmt.Sprintf("u%d", index)),
			Raw:        map[string]any{"name": "x"},
			Attempts:   1,
		}}
		require.NoError(t, a.OnProgress(context.Background(), ev))
	}

	entries, err := Load(a.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "u2", entries[0].URL)
	require.Equal(t, "u101", entries[1].URL)
	require.Equal(t, "u1000", entries[2].URL)
}

func TestCloseWithoutEntries(t *testing.T) {
	a, err := New(t.TempDir(), "empty", nil)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = os.Stat(filepath.Join(a.Dir(), CombinedFile))
	require.True(t, os.IsNotExist(err))

	_, err = Load(a.Dir())
	require.Error(t, err)
}
