// Package logger builds the zap logger used across rebalance and carries it
// through contexts.
package logger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvMode selects the logger flavour: "dev" for human readable logs.
const EnvMode = "RBL_ENV"

// New returns a logger writing to stderr. Verbose lowers the level to debug,
// otherwise only warnings and errors are shown, a CLI's stdout being for reports.
func New(verbose bool) *zap.SugaredLogger {
	var (
		cfg zap.Config
		err error
	)
	if strings.ToLower(os.Getenv(EnvMode)) == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Errorf("failed to initialize logger: %w", err))
	}
	return logger.Sugar()
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying lg.
func WithContext(ctx context.Context, lg *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, lg)
}

// FromContext returns the logger carried by ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if lg, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok {
			return lg
		}
	}
	return zap.NewNop().Sugar()
}
