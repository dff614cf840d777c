// File: internal/platform/logger/zap.go
package logger

import (
	"strings"

	"shoe_market_backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "shoe-market-api"

// New builds the application logger. GIN_MODE=release selects the
// production preset; anything else gets the development one. LOG_LEVEL
// falls back to info when it does not parse, and LOG_FORMAT=json forces
// the JSON encoder in either preset.
func New(cfg *config.Config) (*zap.Logger, error) {
	zapConfig := baseConfig(cfg.GinMode)
	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.LogLevel))
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		zapConfig.Encoding = "json"
		zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	case "console":
		zapConfig.Encoding = "console"
	}

	l, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", serviceName)), nil
}

// ParseLevel accepts zap level names plus "warning"; unknown values mean info.
func ParseLevel(s string) zapcore.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func baseConfig(ginMode string) zap.Config {
	if ginMode == "release" {
		return zap.NewProductionConfig()
	}
	c := zap.NewDevelopmentConfig()
	c.Encoding = "console"
	c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return c
}
