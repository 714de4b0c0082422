package targets

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Files points at the reference list files, one entry per line.
type Files struct {
	Schools       string `mapstructure:"schools"`
	Companies     string `mapstructure:"companies"`
	FoodRetailers string `mapstructure:"food-retailers"`
}

// Lists holds the reference names used during normalization. It is read-only after Load.
type Lists struct {
	Schools       []string
	Companies     []string
	FoodRetailers []string
}

// Load reads every configured list. A list that cannot be read is left empty
// and reported once; the run continues without it.
func Load(files Files, logger *zap.Logger) Lists {
	if logger == nil {
		logger = zap.NewNop()
	}

	load := func(kind, path string) []string {
		items, err := ReadList(path)
		if err != nil {
			logger.Warn("target list is not available, continuing with an empty list",
				zap.String("list", kind),
				zap.String("path", path),
				zap.Error(err),
			)
			return nil
		}
		logger.Debug("target list loaded", zap.String("list", kind), zap.Int("count", len(items)))
		return items
	}

	return Lists{
		Schools:       load("schools", files.Schools),
		Companies:     load("companies", files.Companies),
		FoodRetailers: load("food-retailers", files.FoodRetailers),
	}
}

// ReadList returns the trimmed non-empty lines of path.
func ReadList(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path is not configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	return items, nil
}

// Contains reports whether name and any entry contain one another, ignoring case.
func Contains(list []string, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}

	for _, item := range list {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if strings.Contains(name, item) || strings.Contains(item, name) {
			return true
		}
	}
	return false
}
