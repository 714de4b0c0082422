package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
)

// ExcludedProfiles is the content of an exclude file.
type ExcludedProfiles struct {
	Items []*ExcludedProfile
}

type ExcludedProfile struct {
	URL        string
	Reason     string `json:",omitempty"`
	ExcludedAt time.Time
}

// GetExcludedProfilesFromFile reads an exclude file. A missing or empty file
// is an empty list.
func GetExcludedProfilesFromFile(path string) (*ExcludedProfiles, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ExcludedProfiles{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedProfiles{}, nil
	}

	var excluded ExcludedProfiles
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds items whose URL is not listed yet.
func (e *ExcludedProfiles) Append(items ...*ExcludedProfile) {
	known := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		known[item.URL] = struct{}{}
	}
	for _, item := range items {
		if _, ok := known[item.URL]; ok {
			continue
		}
		known[item.URL] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedProfiles) Identifiers() []profile.Identifier {
	ids := make([]profile.Identifier, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, profile.Identifier(item.URL))
	}
	return ids
}

func (e *ExcludedProfiles) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// AppendFailed records failed fetches in the exclude file at path so later runs skip them.
func AppendFailed(path string, results []profile.FetchResult) (int, error) {
	var items []*ExcludedProfile
	for _, res := range results {
		if res.Success() {
			continue
		}
		items = append(items, &ExcludedProfile{
			URL:        res.Identifier.String(),
			Reason:     res.Err.Error(),
			ExcludedAt: time.Now().UTC(),
		})
	}
	if len(items) == 0 {
		return 0, nil
	}

	excluded, err := GetExcludedProfilesFromFile(path)
	if err != nil {
		return 0, fmt.Errorf("getting excluded profiles from file: %w", err)
	}

	before := len(excluded.Items)
	excluded.Append(items...)
	if err := excluded.ToFile(path); err != nil {
		return 0, fmt.Errorf("writing exclude file: %w", err)
	}
	return len(excluded.Items) - before, nil
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes identifiers listed in an exclude file.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{path: strings.TrimSpace(path)}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, ids []profile.Identifier) ([]profile.Identifier, Step, error) {
	initial := len(ids)
	if f.path == "" {
		return ids, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	excluded, err := GetExcludedProfilesFromFile(f.path)
	if err != nil {
		return ids, Step{}, fmt.Errorf("getting excluded profiles from file: %w", err)
	}

	skip := profile.NewProcessedSet(excluded.Identifiers()...)
	kept, removed := exclude(ids, skip.Has)
	if len(removed) > 0 {
		deps.Logger.Info("excluding profiles based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_profiles", removed),
			zap.Int("profiles_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
