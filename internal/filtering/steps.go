package filtering

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/resume"
)

type duplicatesFilter struct{}

// NewDuplicates creates a filter that keeps only the first occurrence of each identifier.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(string) {}

func (f *duplicatesFilter) IsEnabled() bool { return true }

func (f *duplicatesFilter) Validate() error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, ids []profile.Identifier) ([]profile.Identifier, Step, error) {
	seen := make(map[profile.Identifier]struct{}, len(ids))
	kept, removed := exclude(ids, func(id profile.Identifier) bool {
		id = profile.Identifier(strings.TrimSpace(id.String()))
		if id == "" {
			return true
		}
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
		return false
	})

	if len(removed) > 0 {
		deps.Logger.Debug("dropping duplicate or empty identifiers", zap.Strings("identifiers", removed))
	}

	return kept, Step{Initial: len(ids), Dropped: len(removed), Left: len(kept)}, nil
}

type processedFilter struct {
	processed profile.ProcessedSet
	disabled  bool
	reason    string
}

// NewProcessed creates a filter that skips identifiers already stored in the sink.
func NewProcessed(processed profile.ProcessedSet) Filter {
	return &processedFilter{processed: processed}
}

func (f *processedFilter) Name() string { return "processed" }

func (f *processedFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *processedFilter) IsEnabled() bool { return !f.disabled }

func (f *processedFilter) Validate() error { return nil }

func (f *processedFilter) Apply(_ context.Context, deps Deps, ids []profile.Identifier) ([]profile.Identifier, Step, error) {
	kept := resume.FilterNew(ids, f.processed)
	dropped := len(ids) - len(kept)

	if dropped > 0 {
		deps.Logger.Info("skipping already processed profiles",
			zap.Int("skipped", dropped),
			zap.Int("profiles_left", len(kept)),
		)
	}

	return kept, Step{Initial: len(ids), Dropped: dropped, Left: len(kept)}, nil
}

func (f *processedFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"processed": strconv.Itoa(f.processed.Len())},
	}
}
