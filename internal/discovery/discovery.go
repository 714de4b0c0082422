// Package discovery reads profile identifiers from an exported CSV list.
package discovery

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/profile"
)

const DefaultColumn = "Profile_Link"

// CSV lists identifiers stored in one column of a CSV file.
type CSV struct {
	Column string
	logger *zap.Logger
}

func NewCSV(column string, logger *zap.Logger) *CSV {
	if strings.TrimSpace(column) == "" {
		column = DefaultColumn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSV{Column: column, logger: logger}
}

// ListIdentifiers reads the file at path. Rows with an empty cell are skipped.
// maxPages has no meaning for a file and is ignored.
func (c *CSV) ListIdentifiers(ctx context.Context, path string, _ int) ([]profile.Identifier, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input list: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == c.Column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("column %q not found in %s", c.Column, path)
	}

	var ids []profile.Identifier
	for {
		if err := ctx.Err(); err != nil {
			return ids, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ids, fmt.Errorf("reading %s: %w", path, err)
		}
		if col >= len(row) {
			continue
		}
		if id := strings.TrimSpace(row[col]); id != "" {
			ids = append(ids, profile.Identifier(id))
		}
	}

	c.logger.Info("identifiers read from file",
		zap.String("path", path),
		zap.String("column", c.Column),
		zap.Int("count", len(ids)),
	)

	return ids, nil
}
