package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldIdentifier is the structured log field key for a profile identifier.
	FieldIdentifier = "identifier"
	// FieldRunID is the structured log field key for the current run.
	FieldRunID = "run_id"
	// FieldSource names the profile source in use.
	FieldSource = "source"
	// FieldSink names the record sink in use.
	FieldSink = "sink"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a no-op
// logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// ProfileFields describes one profile within a run. Empty values are skipped.
func ProfileFields(identifier, runID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldIdentifier, Value: identifier},
		StringField{Key: FieldRunID, Value: runID},
	)
}

// WithRun tags every entry of logger with the run and its endpoints.
func WithRun(logger *zap.Logger, runID, source, sink string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldRunID, Value: runID},
		StringField{Key: FieldSource, Value: source},
		StringField{Key: FieldSink, Value: sink},
	)...)
}
