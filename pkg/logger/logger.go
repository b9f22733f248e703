// Package logger provides a zap based application logger
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Config describes how the application logger is built
	Config struct {
		LogFile   string // Optional file that receives a copy of every entry
		LogLevel  string // debug, info, warn, error
		AppName   string // Added to every entry as "app"
		AddCaller bool   // Annotate entries with file:line
	}

	// Logger wraps zap.Logger so packages depend on a single type
	Logger struct {
		*zap.Logger
	}
)

var (
	global *Logger
	mu     sync.RWMutex
)

// New builds a logger writing JSON to stdout and, when configured, to LogFile
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		sinks = append(sinks, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.NewMultiWriteSyncer(sinks...),
		level,
	)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	if cfg.AppName != "" {
		zl = zl.With(zap.String("app", cfg.AppName))
	}

	return &Logger{Logger: zl}, nil
}

// Init builds the global logger
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	global = l
	mu.Unlock()

	return nil
}

// Get returns the global logger, or a no-op logger when Init was never called
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return &Logger{Logger: zap.NewNop()}
	}

	return global
}

// Sync flushes the global logger
func Sync() error {
	return Get().Sync()
}

// Named returns a child logger for a component
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}
