package sqlitesink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/sink"
)

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	rows, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Empty(t, rows)

	require.NoError(t, s.Append(ctx, []profile.CanonicalRecord{
		{Name: "A", LinkedInURL: "u1", TotalYears: 6, ParisFlag: "Paris et périphérie"},
		{Name: "B", LinkedInURL: "u2", YearsAtFoodRetailers: 1.5},
	}))
	require.NoError(t, s.Append(ctx, []profile.CanonicalRecord{{Name: "A2", LinkedInURL: "u1"}}))

	exists, err = s.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	rows, err = s.ReadAll(ctx)
	require.NoError(t, err)
	records := sink.Records(rows)
	require.Len(t, records, 2)
	require.Equal(t, "A2", records[0].Name)
	require.Equal(t, 1.5, records[1].YearsAtFoodRetailers)

	require.NoError(t, s.Create(ctx, []profile.CanonicalRecord{{LinkedInURL: "u3"}}))
	rows, err = s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "u3", rows[0][profile.ColumnLinkedInURL])
}
