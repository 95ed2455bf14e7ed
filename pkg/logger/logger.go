// Package logger provides a centralized logging configuration for filegirl
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Global logger instance
	guardLogger *zap.Logger
	loggerMu    sync.RWMutex
)

// LogConfig holds the logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	OutputPath  string `mapstructure:"file" yaml:"file"` // empty means console only
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	Development bool   `mapstructure:"development" yaml:"development"`
	EnableJSON  bool   `mapstructure:"json" yaml:"json"`
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *LogConfig {
	return &LogConfig{
		Level:      "debug",
		OutputPath: "",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

// Build creates a logger from the given configuration without touching the
// global instance.
func Build(cfg *LogConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Development && !cfg.EnableJSON {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else if cfg.EnableJSON {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var writers []zapcore.WriteSyncer

	if cfg.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
			return nil, err
		}

		// Rotated file output
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.OutputPath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}))
	}

	// Console output when there is no file, or in development mode
	if cfg.OutputPath == "" || cfg.Development {
		writers = append(writers, zapcore.AddSync(os.Stderr))
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(writers...),
		zap.NewAtomicLevelAt(level),
	)

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	return zap.New(core, opts...), nil
}

// Initialize sets up the global logger with the given configuration
func Initialize(cfg *LogConfig) error {
	l, err := Build(cfg)
	if err != nil {
		return err
	}

	loggerMu.Lock()
	guardLogger = l
	loggerMu.Unlock()

	// Replace global logger
	zap.ReplaceGlobals(l)

	return nil
}

// Get returns the global logger instance
func Get() *zap.Logger {
	loggerMu.RLock()
	l := guardLogger
	loggerMu.RUnlock()

	if l == nil {
		// Initialize with default config if not already initialized
		if err := Initialize(DefaultConfig()); err != nil {
			return zap.NewNop()
		}
		return Get()
	}
	return l
}

// Sync flushes any buffered log entries
func Sync() error {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	if guardLogger != nil {
		return guardLogger.Sync()
	}
	return nil
}

// ForDirectory creates a logger scoped to one protected directory
func ForDirectory(l *zap.Logger, dir string) *zap.Logger {
	if l == nil {
		l = Get()
	}
	return l.With(zap.String("protected_dir", dir))
}
