// Package archive keeps every fetched payload on disk so a run can be
// normalized again later without fetching.
package archive

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/profile"
)

const (
	CombinedFile = "all_profiles_raw.json"
	filePattern  = "profile_*.json"
)

// Entry is one archived fetch result.
type Entry struct {
	URL       string          `json:"url"`
	RawData   json.RawMessage `json:"raw_data"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Usable reports whether the entry holds a payload worth normalizing.
func (e Entry) Usable() bool {
	return e.Success && len(e.RawData) > 0 && string(e.RawData) != "null"
}

// Raw returns the payload as a RawRecord.
func (e Entry) Raw() profile.RawRecord {
	return []byte(e.RawData)
}

// Archive is a fetch.Listener writing one JSON file per fetch result under
// <dir>/<runID>/ and a combined file on Close.
type Archive struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []Entry
}

func New(dir, runID string, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dir, runID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}

	logger.Info("raw payloads will be archived", zap.String("dir", path))
	return &Archive{dir: path, logger: logger, now: time.Now}, nil
}

// Dir returns the directory of this run.
func (a *Archive) Dir() string { return a.dir }

func (a *Archive) OnProgress(_ context.Context, ev fetch.Event) error {
	entry, err := newEntry(ev.Result, a.now().UTC())
	if err != nil {
		a.logger.Warn("payload is not serializable, archiving failure only",
			zap.String("identifier", ev.Result.Identifier.String()),
			zap.Error(err),
		)
	}

	name := fmt.Sprintf("profile_%03d.json", ev.Index)
	if !entry.Success {
		name = fmt.Sprintf("profile_%03d_FAILED.json", ev.Index)
	}

	// Archiving is best effort. A full disk must not stop the run.
	if err := writeJSON(filepath.Join(a.dir, name), entry); err != nil {
		a.logger.Warn("archiving payload", zap.String("file", name), zap.Error(err))
	}

	a.mu.Lock()
	a.entries = append(a.entries, entry)
	a.mu.Unlock()

	return nil
}

// Close writes the combined file when anything was archived.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.entries) == 0 {
		return nil
	}

	path := filepath.Join(a.dir, CombinedFile)
	if err := writeJSON(path, a.entries); err != nil {
		return fmt.Errorf("writing combined archive: %w", err)
	}

	a.logger.Info("combined raw payloads saved", zap.String("file", path), zap.Int("count", len(a.entries)))
	return nil
}

func newEntry(res profile.FetchResult, now time.Time) (Entry, error) {
	entry := Entry{
		URL:       res.Identifier.String(),
		Success:   res.Success(),
		Attempts:  res.Attempts,
		FetchedAt: now,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
		return entry, nil
	}

	raw, err := marshalRaw(res.Raw)
	if err != nil {
		entry.Success = false
		entry.Error = err.Error()
		return entry, err
	}
	entry.RawData = raw
	return entry, nil
}

// marshalRaw keeps JSON payloads verbatim and encodes everything else.
func marshalRaw(raw profile.RawRecord) (json.RawMessage, error) {
	switch v := raw.(type) {
	case json.RawMessage:
		if json.Valid(v) {
			return v, nil
		}
		return json.Marshal(string(v))
	case []byte:
		if json.Valid(v) {
			return v, nil
		}
		return json.Marshal(string(v))
	default:
		return json.Marshal(v)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads archived entries from a run directory or from a combined file.
func Load(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	if !info.IsDir() {
		var entries []Entry
		if err := readJSON(path, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	files, err := filepath.Glob(filepath.Join(path, filePattern))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", filePattern, path)
	}
	// Names are zero padded to three digits only, so order by index.
	slices.SortStableFunc(files, func(a, b string) int {
		return cmp.Compare(fileIndex(a), fileIndex(b))
	})

	entries := make([]Entry, 0, len(files))
	var errs []error
	for _, file := range files {
		var entry Entry
		if err := readJSON(file, &entry); err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, errors.Join(errs...)
}

// fileIndex returns the index encoded in a profile_NNN[_FAILED].json name.
// Unparsable names sort last.
func fileIndex(path string) int {
	name := strings.TrimPrefix(filepath.Base(path), "profile_")
	digits, _, _ := strings.Cut(strings.TrimSuffix(name, ".json"), "_")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
