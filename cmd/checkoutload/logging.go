package main

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ZhuoyueLian/checkoutload/internal/checkout"
)

// newLogger builds a JSON logger on stderr. The dashboard owns the terminal,
// so logging is discarded while it runs.
func newLogger(level string, dashboard bool) (*zap.Logger, error) {
	if dashboard {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

type zapFailureLogger struct {
	log *zap.Logger
}

func (l *zapFailureLogger) LogFailure(index int, o checkout.Outcome) {
	fields := []zap.Field{
		zap.Int("index", index),
		zap.String("tag", o.Tag),
		zap.Duration("latency", o.Latency),
	}
	if n := len(o.Steps); n > 0 {
		last := o.Steps[n-1]
		fields = append(fields, zap.String("step", last.Step), zap.Int("status", last.Status))
	}
	l.log.Warn("transaction failed", fields...)
}
