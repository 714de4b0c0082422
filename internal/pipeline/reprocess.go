package pipeline

import (
	"context"

	"github.com/spigell/profile-extractor/internal/archive"
	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/resume"
)

// Reprocess normalizes archived payloads into the sink without fetching.
// Failed entries and repeated identifiers are skipped.
func (p *Pipeline) Reprocess(ctx context.Context, entries []archive.Entry) (Summary, error) {
	started := p.pc.Clock()
	cfg := p.pc.Config
	summary := Summary{RunID: p.pc.RunID, Discovered: len(entries)}

	processed := profile.NewProcessedSet()
	if cfg.Resume {
		var err error
		if processed, err = resume.AlreadyProcessed(ctx, p.sink); err != nil {
			return summary, err
		}
	}

	buffer := resume.NewBatchBuffer(p.sink, cfg.BatchSize, cfg.Resume, processed, p.logger)
	seen := profile.NewProcessedSet()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			break
		}

		id := profile.Identifier(entry.URL)
		if !entry.Usable() || id == "" {
			summary.Attempted++
			summary.Failed++
			continue
		}
		if seen.Has(id) || processed.Has(id) {
			summary.Skipped++
			continue
		}
		seen.Add(id)

		summary.Attempted++
		summary.Succeeded++
		if err := buffer.Add(ctx, p.normalizer.Normalize(entry.Raw(), id)); err != nil {
			summary.Written = buffer.Written()
			return summary, err
		}
	}

	if err := buffer.Flush(context.WithoutCancel(ctx)); err != nil {
		summary.Written = buffer.Written()
		return summary, err
	}

	summary.Written = buffer.Written()
	if summary.Attempted > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Attempted) * 100
	}
	summary.Duration = p.pc.Clock().Sub(started)
	p.logger.Info("reprocess summary", summary.fields()...)

	return summary, ctx.Err()
}
