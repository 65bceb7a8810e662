// Package logger wraps zap with the process-wide logger used by the server
// and the CLI. Output is JSON or a bracketed key=value text layout, optionally
// teed into a rotated file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field names shared by every component that logs about a report run.
const (
	FieldReportID   = "report_id"
	FieldSessionID  = "session_id"
	FieldReportType = "report_type"
)

// Rotation defaults applied when the config leaves them at zero
const (
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 7
	defaultMaxBackups = 5
)

const ansiReset = "\x1b[0m"

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel:  "\x1b[35m",
	zapcore.InfoLevel:   "\x1b[34m",
	zapcore.WarnLevel:   "\x1b[33m",
	zapcore.ErrorLevel:  "\x1b[31m",
	zapcore.DPanicLevel: "\x1b[31m",
	zapcore.PanicLevel:  "\x1b[31m",
	zapcore.FatalLevel:  "\x1b[31m",
}

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Config holds the logger configuration
type Config struct {
	// Level is one of debug, info, warn, error. Unknown values fall back to info.
	Level string `yaml:"level"`
	// Format is json or text
	Format string `yaml:"format"`
	// File receives a copy of every entry when set
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxAge     int    `yaml:"max_age"`     // days
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
	Compress   bool   `yaml:"compress"`
	// AccessLog prints successful HTTP requests at info level when true
	AccessLog bool `yaml:"access_log"`
}

func (c Config) withRotationDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSizeMB
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultMaxAgeDays
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = defaultMaxBackups
	}
	return c
}

// Init installs the global logger. Only the first call takes effect.
func Init(cfg Config) error {
	once.Do(func() {
		globalLogger = build(cfg)
	})
	return nil
}

func build(cfg Config) *zap.Logger {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg = cfg.withRotationDefaults()

	var console, file zapcore.Encoder
	if cfg.Format == "text" {
		console = newKVConsoleEncoder(textEncoderConfig(true))
		file = newKVConsoleEncoder(textEncoderConfig(false))
	} else {
		console = zapcore.NewJSONEncoder(jsonEncoderConfig())
		file = console.Clone()
	}

	core := zapcore.NewCore(console, zapcore.AddSync(os.Stdout), level)
	if w := fileSink(cfg); w != nil {
		core = zapcore.NewTee(core, zapcore.NewCore(file, w, level))
	}
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// fileSink returns the rotated file writer, or nil when logging to stdout only
func fileSink(cfg Config) zapcore.WriteSyncer {
	if cfg.File == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "log directory %s unavailable, logging to stdout only: %v\n", filepath.Dir(cfg.File), err)
		return nil
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// textEncoderConfig returns the bracketed console layout; colored adds ANSI level colors.
func textEncoderConfig(colored bool) zapcore.EncoderConfig {
	encodeLevel := func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(bracketLevel(l, colored))
	}
	return zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       zapcore.OmitKey,
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   encodeLevel,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format(time.DateTime) + "]")
		},
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
}

// bracketLevel renders [INFO], wrapped in the level color when colored
func bracketLevel(l zapcore.Level, colored bool) string {
	s := "[" + l.CapitalString() + "]"
	if !colored {
		return s
	}
	color, ok := levelColors[l]
	if !ok {
		color = ansiReset
	}
	return color + s + ansiReset
}

func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	err := l.UnmarshalText([]byte(level))
	return l, err
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Named returns a child of the global logger scoped to a component
func Named(name string) *zap.Logger {
	return Get().Named(name)
}

// WithReportContext tags a child logger with the report run and wizard session.
// Empty ids are omitted.
func WithReportContext(reportID, sessionID string) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if reportID != "" {
		fields = append(fields, zap.String(FieldReportID, reportID))
	}
	if sessionID != "" {
		fields = append(fields, zap.String(FieldSessionID, sessionID))
	}
	return Get().With(fields...)
}

func skip() *zap.Logger {
	return Get().WithOptions(zap.AddCallerSkip(1))
}

// Debug logs at debug level
func Debug(msg string, fields ...zap.Field) { skip().Debug(msg, fields...) }

// Info logs at info level
func Info(msg string, fields ...zap.Field) { skip().Info(msg, fields...) }

// Warn logs at warn level
func Warn(msg string, fields ...zap.Field) { skip().Warn(msg, fields...) }

// Error logs at error level with a stack trace
func Error(msg string, fields ...zap.Field) { skip().Error(msg, fields...) }

// Fatal logs and exits the process
func Fatal(msg string, fields ...zap.Field) { skip().Fatal(msg, fields...) }

// Sync flushes buffered entries
func Sync() error {
	if globalLogger == nil {
		return nil
	}
	return globalLogger.Sync()
}
