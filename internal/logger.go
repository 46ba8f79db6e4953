package internal

import (
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the sugared zap logger used by the simulator. Output goes
// to a rotating file when cfg.File is set, to stderr otherwise. The returned
// func flushes the logger and closes the file.
func NewLogger(cfg LogConfig) (*zap.SugaredLogger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var sink io.Writer = os.Stderr
	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
			Compress:   true,
		}
		sink = file
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(sink),
		level,
	)
	logger := zap.New(core, zap.AddCaller()).Sugar()

	closer := func() error {
		// stderr can refuse fsync; only a file sink has something to flush
		if file == nil {
			_ = logger.Sync()
			return nil
		}
		return multierr.Append(logger.Sync(), file.Close())
	}
	return logger, closer, nil
}
