package embeddedmqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newSlogLogger adapts the daemon's zap logger to the *slog.Logger the
// broker library expects.
func newSlogLogger(logger *zap.Logger) *slog.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return slog.New(&zapHandler{core: logger})
}

type zapHandler struct {
	core   *zap.Logger
	prefix string
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func (h *zapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.core.Core().Enabled(zapLevel(level))
}

func (h *zapHandler) Handle(_ context.Context, record slog.Record) error {
	level := zapLevel(record.Level)
	fields := make([]zap.Field, 0, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		if isClosedConn(attr) {
			// Clients hanging up surface as EOF errors; they are routine.
			level = zapcore.DebugLevel
		}
		fields = append(fields, h.field(attr))
		return true
	})
	if ce := h.core.Check(level, record.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (h *zapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]zap.Field, 0, len(attrs))
	for _, attr := range attrs {
		fields = append(fields, h.field(attr))
	}
	return &zapHandler{core: h.core.With(fields...), prefix: h.prefix}
}

func (h *zapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &zapHandler{core: h.core, prefix: h.prefix + name + "."}
}

func (h *zapHandler) field(attr slog.Attr) zap.Field {
	key := h.prefix + attr.Key
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return zap.String(key, value.String())
	case slog.KindInt64:
		return zap.Int64(key, value.Int64())
	case slog.KindUint64:
		return zap.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return zap.Float64(key, value.Float64())
	case slog.KindBool:
		return zap.Bool(key, value.Bool())
	case slog.KindDuration:
		return zap.Duration(key, value.Duration())
	case slog.KindTime:
		return zap.Time(key, value.Time())
	default:
		if err, ok := value.Any().(error); ok {
			return zap.NamedError(key, err)
		}
		return zap.Any(key, value.Any())
	}
}

func isClosedConn(attr slog.Attr) bool {
	if attr.Key != "error" {
		return false
	}
	switch v := attr.Value.Resolve().Any().(type) {
	case error:
		return errors.Is(v, io.EOF) || strings.HasSuffix(v.Error(), "EOF")
	case string:
		return strings.HasSuffix(v, "EOF")
	}
	return false
}
