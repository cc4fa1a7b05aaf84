package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a production JSON logger with the service name attached to
// every entry. Level comes from LOG_LEVEL (default INFO; DEBUG is off unless
// asked for).
func New(serviceName string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(getLogLevel(os.Getenv("LOG_LEVEL")))

	log, err := cfg.Build()
	if err != nil {
		// Production config only fails on bad output paths; fall back to a
		// no-frills logger rather than dying before main can report anything.
		log = zap.NewNop()
	}

	return log.With(zap.String("service", serviceName))
}

func getLogLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
