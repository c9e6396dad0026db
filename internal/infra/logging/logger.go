// internal/infra/logging/logger.go
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON in production, console otherwise.
// LOG_LEVEL style names ("debug", "warn") override the default level.
func New(appEnv, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "production", "prod":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if lv := strings.TrimSpace(level); lv != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(lv)); err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(l)
	}
	return cfg.Build()
}
