package logger

import (
	"os"
	"strings"
	"time"
)

// Log is the process-wide logger. It is initialized from the environment on
// import and replaced by Configure once the application config is loaded.
var Log Logger

// Field represents a typed key-value pair for structured logging
type Field struct {
	Key   string
	Type  FieldType
	Value any
}

// FieldType defines the type of a log field
type FieldType int

const (
	StringType FieldType = iota
	IntType
	Int64Type
	BoolType
	ErrorType
	DurationType
	AnyType
)

// Logger defines the interface for structured logging
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// With returns a child logger that attaches fields to every entry.
	With(fields ...Field) Logger
	Sync() error
}

// Options selects and tunes the logger backend.
type Options struct {
	Backend string // "zap" or "noop"
	Dev     bool
	File    string
}

func String(key, value string) Field {
	return Field{Key: key, Type: StringType, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Type: IntType, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Type: Int64Type, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Type: BoolType, Value: value}
}

func Err(err error) Field {
	return Field{Key: "error", Type: ErrorType, Value: err}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Type: DurationType, Value: value}
}

func Any(key string, value any) Field {
	return Field{Key: key, Type: AnyType, Value: value}
}

func init() {
	Log = New(OptionsFromEnv())
}

// OptionsFromEnv reads USERDESK_LOGGER, USERDESK_ENV and USERDESK_LOG_FILE.
func OptionsFromEnv() Options {
	return Options{
		Backend: os.Getenv("USERDESK_LOGGER"),
		Dev:     os.Getenv("USERDESK_ENV") == "development",
		File:    os.Getenv("USERDESK_LOG_FILE"),
	}
}

// New builds a logger for the given options. Unknown backends fall back to zap.
func New(opts Options) Logger {
	switch strings.ToLower(opts.Backend) {
	case "noop", "none":
		return NewNoOpLogger()
	default:
		return NewZapLogger(opts)
	}
}

// Configure replaces the global logger, flushing the previous one.
func Configure(opts Options) {
	prev := Log
	Log = New(opts)
	if prev != nil {
		_ = prev.Sync()
	}
}

// SetGlobalLogger allows callers (mostly tests) to replace the global logger
func SetGlobalLogger(l Logger) {
	Log = l
}

func Info(msg string, fields ...Field) {
	Log.Info(msg, fields...)
}

func Error(msg string, fields ...Field) {
	Log.Error(msg, fields...)
}

func Debug(msg string, fields ...Field) {
	Log.Debug(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	Log.Warn(msg, fields...)
}

func Fatal(msg string, fields ...Field) {
	Log.Fatal(msg, fields...)
}
