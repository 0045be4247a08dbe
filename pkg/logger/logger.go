// Package logger provides the structured logger shared by every component of
// the feed node. It is a thin layer over logrus that pins a component name on
// each entry and carries request trace ids through context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type traceIDKey struct{}

// Config controls level, format and destination of log output.
type Config struct {
	Level  string    `yaml:"level" env:"FEED_LOG_LEVEL"`
	Format string    `yaml:"format" env:"FEED_LOG_FORMAT"` // "json" or "text"
	Output io.Writer `yaml:"-"`
}

// Logger writes structured entries tagged with a component name.
type Logger struct {
	base      *logrus.Logger
	component string
}

// New builds a logger for component from cfg.
func New(component string, cfg Config) *Logger {
	base := logrus.New()
	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	} else {
		base.SetOutput(os.Stderr)
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Logger{base: base, component: component}
}

// NewDefault returns an info-level JSON logger writing to stderr.
func NewDefault(component string) *Logger {
	return New(component, Config{})
}

// Discard returns a logger that drops everything. Used by tests.
func Discard(component string) *Logger {
	return New(component, Config{Output: io.Discard, Level: "panic"})
}

// Named returns a logger for another component sharing the same output.
func (l *Logger) Named(component string) *Logger {
	return &Logger{base: l.base, component: component}
}

func (l *Logger) entry() *logrus.Entry {
	return l.base.WithField("component", l.component)
}

// WithField returns an entry carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.entry().WithField(key, value)
}

// WithFields returns an entry carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.entry().WithFields(logrus.Fields(fields))
}

// WithError returns an entry carrying err.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry().WithError(err)
}

// WithContext returns an entry tagged with the trace id stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	e := l.entry().WithContext(ctx)
	if id := TraceID(ctx); id != "" {
		e = e.WithField("trace_id", id)
	}
	return e
}

func (l *Logger) Debug(args ...interface{}) { l.entry().Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.entry().Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.entry().Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.entry().Error(args...) }

// NewTraceID generates a fresh trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceID extracts the trace id from ctx.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
