package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger provides enhanced structured logging with context
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new enhanced logger
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Add timestamp in RFC3339 format
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// DesignLogger logs block design run details
func (l *Logger) DesignLogger(nBlocks, nDimensions int, dimensionCV, pairCV float64, balanced bool, duration time.Duration) {
	l.Info("Block Design Completed",
		"n_blocks", nBlocks,
		"n_dimensions", nDimensions,
		"dimension_cv", dimensionCV,
		"pair_cv", pairCV,
		"balanced", balanced,
		"duration_ms", duration.Milliseconds(),
	)
}

// ScoringLogger logs theta estimation details
func (l *Logger) ScoringLogger(nResponses, rejected int, logLikelihood float64, convergence bool, iterations int, duration time.Duration) {
	l.Info("Scoring Completed",
		"n_responses", nResponses,
		"rejected_responses", rejected,
		"log_likelihood", logLikelihood,
		"convergence", convergence,
		"n_iterations", iterations,
		"duration_ms", duration.Milliseconds(),
	)
}

// CalibrationLogger logs calibration load events
func (l *Logger) CalibrationLogger(name, modelVersion string, sampleSize int, hasNormative bool) {
	l.Info("Calibration Loaded",
		"name", name,
		"model_version", modelVersion,
		"calibration_sample_size", sampleSize,
		"has_normative_data", hasNormative,
	)
}

// NumericalLogger logs numerical fallback events (singular Hessian,
// non-convergence) that are surfaced as result flags rather than errors
func (l *Logger) NumericalLogger(event string, details map[string]interface{}) {
	attrs := []any{"event", event}
	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Numerical Event", attrs...)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	l.Logger = slog.New(handler)
}
