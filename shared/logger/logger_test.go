package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestConvertField(t *testing.T) {
	cases := []struct {
		field Field
		want  zapcore.FieldType
	}{
		{String("k", "v"), zapcore.StringType},
		{Int("k", 1), zapcore.Int64Type},
		{Int64("k", 1), zapcore.Int64Type},
		{Bool("k", true), zapcore.BoolType},
		{Err(errors.New("boom")), zapcore.ErrorType},
		{Duration("k", time.Second), zapcore.DurationType},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, convertField(c.field).Type, c.field.Key)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	_, ok := New(Options{Backend: "noop"}).(*noOpLogger)
	assert.True(t, ok)

	_, ok = New(Options{}).(*zapLogger)
	assert.True(t, ok)
}

func TestNoOpFatalPanics(t *testing.T) {
	l := NewNoOpLogger()
	assert.Same(t, l, l.With(String("a", "b")))
	assert.Panics(t, func() { l.Fatal("bye") })
}

func TestDevEncoderAppendsFields(t *testing.T) {
	enc := newDevEncoder(zapcore.EncoderConfig{MessageKey: "msg", LevelKey: "level", EncodeLevel: zapcore.CapitalLevelEncoder})

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.WarnLevel, Message: "cache miss"},
		[]zapcore.Field{convertField(String("key", "/users"))})
	assert.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, levelColors[zapcore.WarnLevel]+"WARN\tcache miss"+colorReset+"\n")
	assert.Contains(t, out, `{"key":"/users"}`)
}

func TestDevEncoderWithoutFields(t *testing.T) {
	enc := newDevEncoder(zapcore.EncoderConfig{MessageKey: "msg"})

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "ready"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, levelColors[zapcore.InfoLevel]+"ready"+colorReset+"\n", buf.String())
}

func TestZapWithMarksChild(t *testing.T) {
	child, ok := NewZapLogger(Options{}).With(String("request_id", "r1")).(*zapLogger)
	assert.True(t, ok)
	assert.True(t, child.child)

	grandchild, ok := child.With(String("path", "/users")).(*zapLogger)
	assert.True(t, ok)
	assert.True(t, grandchild.child)
}
