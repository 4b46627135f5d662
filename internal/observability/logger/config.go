package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger.
type Config struct {
	// Env: "dev" o "prod". En dev el default de Format es "console".
	Env string

	// Level: "debug", "info", "warn", "error". Default: "info".
	Level string

	// Format: "json" o "console". Vacío: según Env.
	Format string

	// ServiceName y Version se agregan como campos base a todo log.
	ServiceName string
	Version     string
}

func (c Config) console() bool {
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "console":
		return true
	case "json":
		return false
	}
	return strings.ToLower(c.Env) != "prod"
}

// build arma el logger. Nunca falla: ante un error de construcción cae a
// zap.NewProduction para no arrancar el servicio sin logs.
func build(cfg Config) *zap.Logger {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var zcfg zap.Config
	if cfg.console() {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.Level = level
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if !cfg.console() {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	l, err := zcfg.Build(opts...)
	if err != nil {
		l, _ = zap.NewProduction()
		return l
	}

	var base []zap.Field
	if cfg.ServiceName != "" {
		base = append(base, zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		base = append(base, zap.String("version", cfg.Version))
	}
	return l.With(base...)
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
