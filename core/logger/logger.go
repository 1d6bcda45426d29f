package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a new zap logger based on the configuration.
func New(cfg *Config) (*zap.Logger, error) {
	var config zap.Config

	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	// Set format based on configuration
	if cfg.Format == "console" {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "message"

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

// WithServer returns a logger with the server field set, so that all log
// entries produced while polling one server can be correlated.
func WithServer(l *zap.Logger, serverName string) *zap.Logger {
	if serverName == "" {
		return l
	}
	return l.With(zap.String("server", serverName))
}

// WithRun returns a logger with the run label attached.
func WithRun(l *zap.Logger, runLabel string) *zap.Logger {
	if runLabel == "" {
		return l
	}
	return l.With(zap.String("run", runLabel))
}
