package resume

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/sink"
)

const DefaultBatchSize = 50

// AlreadyProcessed collects the identifiers stored in s. A sink that does not
// exist yet yields an empty set.
func AlreadyProcessed(ctx context.Context, s sink.RecordSink) (profile.ProcessedSet, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking sink: %w", err)
	}

	processed := profile.NewProcessedSet()
	if !exists {
		return processed, nil
	}

	rows, err := s.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading sink: %w", err)
	}

	for _, row := range rows {
		if url := strings.TrimSpace(row[profile.ColumnLinkedInURL]); url != "" {
			processed.Add(profile.Identifier(url))
		}
	}

	return processed, nil
}

// FilterNew drops identifiers found in processed and keeps the input order.
func FilterNew(ids []profile.Identifier, processed profile.ProcessedSet) []profile.Identifier {
	out := make([]profile.Identifier, 0, len(ids))
	for _, id := range ids {
		if processed.Has(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// BatchBuffer accumulates records and writes them to the sink in batches. It
// is the only writer of the sink during a run.
type BatchBuffer struct {
	sink      sink.RecordSink
	size      int
	resume    bool
	processed profile.ProcessedSet
	logger    *zap.Logger

	pending []profile.CanonicalRecord
	created bool
	flushes int
	written int
}

// NewBatchBuffer builds a buffer. In resume mode every flush appends; otherwise
// the first flush recreates the sink and later ones append.
func NewBatchBuffer(s sink.RecordSink, size int, resume bool, processed profile.ProcessedSet, logger *zap.Logger) *BatchBuffer {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if processed == nil {
		processed = profile.NewProcessedSet()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchBuffer{
		sink:      s,
		size:      size,
		resume:    resume,
		processed: processed,
		logger:    logger,
	}
}

// Add queues rec and flushes once the batch is full.
func (b *BatchBuffer) Add(ctx context.Context, rec profile.CanonicalRecord) error {
	b.pending = append(b.pending, rec)
	if len(b.pending) < b.size {
		return nil
	}
	return b.Flush(ctx)
}

// Flush writes pending records. It is a no-op when nothing is pending.
func (b *BatchBuffer) Flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}

	var err error
	if !b.resume && !b.created {
		err = b.sink.Create(ctx, b.pending)
	} else {
		err = b.sink.Append(ctx, b.pending)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", sink.ErrWrite, err)
	}

	b.created = true
	b.flushes++
	b.written += len(b.pending)
	for _, rec := range b.pending {
		b.processed.Add(profile.Identifier(rec.LinkedInURL))
	}

	b.logger.Info("batch flushed",
		zap.Int("records", len(b.pending)),
		zap.Int("written_total", b.written),
		zap.Bool("resume", b.resume),
	)

	b.pending = b.pending[:0]
	return nil
}

// Pending returns the number of records not yet written.
func (b *BatchBuffer) Pending() int { return len(b.pending) }

// Flushes returns the number of successful flushes.
func (b *BatchBuffer) Flushes() int { return b.flushes }

// Written returns the number of records written so far.
func (b *BatchBuffer) Written() int { return b.written }

// Processed exposes the set grown by every flush.
func (b *BatchBuffer) Processed() profile.ProcessedSet { return b.processed }
