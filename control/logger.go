// File: control/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/wsproxy/api"
)

// NewLogger builds a JSON (production) or console (development) logger.
// The returned level can be changed while the logger is in use.
func NewLogger(level, format string) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("%w: log level: %w", api.ErrInvalidArgument, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("%w: log format %q", api.ErrInvalidArgument, format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel

	log, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	return log, cfg.Level, nil
}
