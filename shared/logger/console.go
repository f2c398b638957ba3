package logger

import (
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// lockedSyncer serializes writes from the tee'd cores.
type lockedSyncer struct {
	zapcore.WriteSyncer
	mu sync.Mutex
}

func (s *lockedSyncer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.WriteSyncer.Write(p)
}

// devEncoder prints a colored console header and the entry fields as a
// single JSON line beneath it.
type devEncoder struct {
	zapcore.Encoder
}

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel:  "\033[34m",
	zapcore.InfoLevel:   "\033[32m",
	zapcore.WarnLevel:   "\033[33m",
	zapcore.ErrorLevel:  "\033[31m",
	zapcore.DPanicLevel: "\033[35m",
	zapcore.PanicLevel:  "\033[35m",
	zapcore.FatalLevel:  "\033[1;31m",
}

const (
	gray       = "\033[38;5;250m"
	colorReset = "\033[0m"
)

func newDevEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &devEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (e *devEncoder) Clone() zapcore.Encoder {
	return &devEncoder{Encoder: e.Encoder.Clone()}
}

func (e *devEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := e.Encoder.EncodeEntry(entry, nil)
	if err != nil {
		return nil, err
	}
	header := strings.TrimSuffix(buf.String(), "\n")

	buf.Reset()
	buf.AppendString(levelColors[entry.Level])
	buf.AppendString(header)
	buf.AppendString(colorReset)
	buf.AppendByte('\n')

	if len(fields) == 0 {
		return buf, nil
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	body, err := json.Marshal(enc.Fields)
	if err != nil {
		return nil, err
	}

	buf.AppendString(gray)
	buf.Write(body)
	buf.AppendString(colorReset)
	buf.AppendByte('\n')
	return buf, nil
}
