package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// zapLogger implements Logger using zap
type zapLogger struct {
	logger *zap.Logger
	child  bool
}

// NewZapLogger creates a zap-based logger writing to stdout and, when a file is
// configured, to a lumberjack-rotated JSON file.
func NewZapLogger(opts Options) Logger {
	var cores []zapcore.Core

	level := zap.InfoLevel
	var consoleEncoder zapcore.Encoder
	if opts.Dev {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		consoleEncoder = newDevEncoder(consoleConfig)
		level = zap.DebugLevel
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	cores = append(cores, zapcore.NewCore(consoleEncoder, &lockedSyncer{WriteSyncer: zapcore.AddSync(os.Stdout)}, level))

	if opts.File != "" {
		fileSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		})
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, fileSyncer, zap.DebugLevel))
	}

	zapLog := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(2), // zap call -> zapLogger method -> package wrapper
		zap.AddStacktrace(zap.ErrorLevel))

	return &zapLogger{logger: zapLog}
}

func (z *zapLogger) convertFields(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = convertField(f)
	}
	return zapFields
}

func convertField(f Field) zap.Field {
	switch f.Type {
	case StringType:
		return zap.String(f.Key, f.Value.(string))
	case IntType:
		return zap.Int(f.Key, f.Value.(int))
	case Int64Type:
		return zap.Int64(f.Key, f.Value.(int64))
	case BoolType:
		return zap.Bool(f.Key, f.Value.(bool))
	case ErrorType:
		err, _ := f.Value.(error)
		return zap.Error(err)
	case DurationType:
		return zap.Duration(f.Key, f.Value.(time.Duration))
	default:
		return zap.Any(f.Key, f.Value)
	}
}

func (z *zapLogger) Info(msg string, fields ...Field) {
	z.logger.Info(msg, z.convertFields(fields)...)
}

func (z *zapLogger) Error(msg string, fields ...Field) {
	z.logger.Error(msg, z.convertFields(fields)...)
}

func (z *zapLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug(msg, z.convertFields(fields)...)
}

func (z *zapLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn(msg, z.convertFields(fields)...)
}

func (z *zapLogger) Fatal(msg string, fields ...Field) {
	z.logger.Fatal(msg, z.convertFields(fields)...)
}

// With returns a child logger carrying fields. Children are called directly
// rather than through the package wrappers, so they skip one frame less.
func (z *zapLogger) With(fields ...Field) Logger {
	child := z.logger
	if !z.child {
		child = child.WithOptions(zap.AddCallerSkip(-1))
	}
	return &zapLogger{logger: child.With(z.convertFields(fields)...), child: true}
}

func (z *zapLogger) Sync() error {
	return z.logger.Sync()
}
