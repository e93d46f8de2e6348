package obs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	messageIDKey contextKey = "message_id"
	eventTypeKey contextKey = "event_type"
	userIDKey    contextKey = "user_id"
)

// Error-kind attribute values attached to error logs.
const (
	ErrKindValidation = "validation"
	ErrKindNotFound   = "not_found"
	ErrKindNetwork    = "network"
	ErrKindProvider   = "provider"
	ErrKindSMTP       = "smtp"
	ErrKindStore      = "store"
	ErrKindKafka      = "kafka"
	ErrKindInternal   = "internal"
)

// This service logs email addresses and magic tokens only in hashed form.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`(?i)(token|secret|password)\s*[:=]\s*\S+`),
}

type Logger struct {
	*slog.Logger
	redactPII bool
}

func newLogger(config Config) *Logger {
	level := parseLogLevel(config.LogLevel)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var handler slog.Handler
	if config.LogPretty {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	hostname, _ := os.Hostname()

	return &Logger{
		Logger: slog.New(handler).With(
			"service", config.ServiceName,
			"version", config.ServiceVersion,
			"env", config.Environment,
			"hostname", hostname,
		),
		redactPII: config.LogRedactPII,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithMessageID stamps the queue message id onto the context so every log
// line emitted while handling that message correlates to it.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey, id)
}

func WithEventType(ctx context.Context, eventType string) context.Context {
	return context.WithValue(ctx, eventTypeKey, eventType)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func (l *Logger) withContext(ctx context.Context) *Logger {
	var attrs []any

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		attrs = append(attrs,
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
		)
	}
	if id, ok := ctx.Value(messageIDKey).(string); ok && id != "" {
		attrs = append(attrs, "message_id", id)
	}
	if et, ok := ctx.Value(eventTypeKey).(string); ok && et != "" {
		attrs = append(attrs, "event_type", et)
	}
	if uid, ok := ctx.Value(userIDKey).(string); ok && uid != "" {
		attrs = append(attrs, "user_id", uid)
	}

	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...), redactPII: l.redactPII}
}

func (l *Logger) redact(s string) string {
	if !l.redactPII {
		return s
	}
	for _, pattern := range piiPatterns {
		s = pattern.ReplaceAllStringFunc(s, func(match string) string {
			hash := sha256.Sum256([]byte(match))
			return fmt.Sprintf("[REDACTED:%s]", hex.EncodeToString(hash[:8]))
		})
	}
	return s
}

func (l *Logger) processAttrs(attrs []any) []any {
	if !l.redactPII {
		return attrs
	}
	processed := make([]any, len(attrs))
	copy(processed, attrs)
	for i := 1; i < len(processed); i += 2 {
		if v, ok := processed[i].(string); ok {
			processed[i] = l.redact(v)
		}
	}
	return processed
}

func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l.withContext(ctx).Logger.Log(ctx, level, l.redact(msg), l.processAttrs(attrs)...)
}

func (l *Logger) Debug(ctx context.Context, msg string, attrs ...any) {
	l.Log(ctx, slog.LevelDebug, msg, attrs...)
}

func (l *Logger) Info(ctx context.Context, msg string, attrs ...any) {
	l.Log(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *Logger) Warn(ctx context.Context, msg string, attrs ...any) {
	l.Log(ctx, slog.LevelWarn, msg, attrs...)
}

func (l *Logger) Error(ctx context.Context, msg string, err error, attrs ...any) {
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	l.Log(ctx, slog.LevelError, msg, attrs...)
}

// Event logs a named lifecycle event with a status attribute.
func (l *Logger) Event(ctx context.Context, event, status string, attrs ...any) {
	attrs = append([]any{"event", event, "status", status}, attrs...)
	l.Info(ctx, event, attrs...)
}

func Debug(ctx context.Context, msg string, attrs ...any) {
	if l := globalLogger(); l != nil {
		l.Debug(ctx, msg, attrs...)
	}
}

func Info(ctx context.Context, msg string, attrs ...any) {
	if l := globalLogger(); l != nil {
		l.Info(ctx, msg, attrs...)
	}
}

func Warn(ctx context.Context, msg string, attrs ...any) {
	if l := globalLogger(); l != nil {
		l.Warn(ctx, msg, attrs...)
	}
}

func Error(ctx context.Context, msg string, err error, attrs ...any) {
	if l := globalLogger(); l != nil {
		l.Error(ctx, msg, err, attrs...)
	}
}

func Event(ctx context.Context, event, status string, attrs ...any) {
	if l := globalLogger(); l != nil {
		l.Event(ctx, event, status, attrs...)
	}
}

func globalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalObs == nil {
		return nil
	}
	return globalObs.logger
}
