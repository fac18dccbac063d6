package runtime

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a JSON zap logger from cfg. With a File set, output goes to
// a size-rotated file; otherwise to stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	if cfg.Disabled {
		return zap.NewNop(), nil
	}
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), writeSyncer(cfg), level)
	return zap.New(core, zap.AddCaller()), nil
}

func writeSyncer(cfg LogConfig) zapcore.WriteSyncer {
	if cfg.File == "" {
		return zapcore.Lock(zapcore.AddSync(os.Stderr))
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.WarnLevel, nil
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
