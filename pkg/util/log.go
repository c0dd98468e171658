package util

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a LOG_LEVEL style name to a level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(name)
}

// encoderConfig is the JSON layout shared by every logger: "ts" key with
// ISO8601 times, upper-case levels
func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// NewLogger logs JSON to stdout at level and above
func NewLogger(level zapcore.Level) *zap.Logger {
	return newLogger(level, zapcore.AddSync(os.Stdout))
}

// NewLoggerWithFile logs to stdout and appends the same records to logPath.
// The returned close func flushes and closes the file.
func NewLoggerWithFile(logPath string, level zapcore.Level) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(level, zapcore.AddSync(os.Stdout), zapcore.AddSync(file))
	closeFn := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closeFn, nil
}

func newLogger(level zapcore.Level, sinks ...zapcore.WriteSyncer) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(sinks))
	for _, sink := range sinks {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level))
	}
	return zap.New(zapcore.NewTee(cores...))
}
