package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/profile-extractor/internal/fetch"
	"github.com/spigell/profile-extractor/internal/logger"
	"github.com/spigell/profile-extractor/internal/profile"
	"github.com/spigell/profile-extractor/internal/utils"
)

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, message string) (string, error)
}

// Structurer wraps a fetch.Source. Payloads that arrive as opaque text are
// sent to the model and replaced by the JSON object it returns. Structured
// payloads pass through untouched.
type Structurer struct {
	source    fetch.Source
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewStructurer(source fetch.Source, generator jsonGenerator, maxLogLength int, log *zap.Logger) *Structurer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Structurer{
		source:    source,
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

func (s *Structurer) Fetch(ctx context.Context, id profile.Identifier) (profile.RawRecord, error) {
	raw, err := s.source.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	decoded := profile.Decode(raw)
	text, ok := decoded[profile.RawTextKey].(string)
	if !ok || len(decoded) != 1 || strings.TrimSpace(text) == "" {
		return raw, nil
	}

	log := logger.WithFields(s.logger, logger.ProfileFields(id.String(), "")...)
	log.Debug("structuring text payload",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.String("text_preview", utils.TruncateForLog(text, s.maxLogLen)),
	)

	answer, err := s.generator.GenerateJSON(ctx, systemPrompt, text)
	if err != nil {
		// The normalizer still gets the text and falls back to defaults.
		log.Warn("structuring failed, keeping text payload", zap.Error(err))
		return raw, nil
	}

	structured, err := parseObject(answer)
	if err != nil {
		log.Warn("unreadable structuring answer, keeping text payload",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(answer, s.maxLogLen)),
		)
		return raw, nil
	}

	return structured, nil
}

func parseObject(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("parse gemini response: not an object")
	}
	return data, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
