package sink

import (
	"context"
	"errors"

	"github.com/spigell/profile-extractor/internal/profile"
)

// ErrWrite marks a failure to persist records. It is fatal to a run.
var ErrWrite = errors.New("sink write failed")

// RecordSink persists canonical records using profile.Columns as the schema.
type RecordSink interface {
	// Exists reports whether the sink already holds data from a previous run.
	Exists(ctx context.Context) (bool, error)
	// Create replaces any existing content with a header and records.
	Create(ctx context.Context, records []profile.CanonicalRecord) error
	// Append adds records, writing the header first when the sink is new.
	Append(ctx context.Context, records []profile.CanonicalRecord) error
	// ReadAll returns every stored row keyed by column name.
	ReadAll(ctx context.Context) ([]map[string]string, error)
}

// Records converts stored rows back to canonical records.
func Records(rows []map[string]string) []profile.CanonicalRecord {
	out := make([]profile.CanonicalRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, profile.FromMap(row))
	}
	return out
}
