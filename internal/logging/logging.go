// Package logging builds the process-wide zap logger.
package logging

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prompt-general/cscx/internal/config"
)

// New builds a JSON (production) or console (development) logger at the configured
// level and installs it as the global logger. The returned func flushes it.
func New(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "parse log level %q", cfg.Level)
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, nil, eris.Wrap(err, "build logger")
	}

	restore := zap.ReplaceGlobals(logger)
	return logger, func() {
		_ = logger.Sync()
		restore()
	}, nil
}
