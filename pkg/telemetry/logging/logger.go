package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/apigate/pkg/config"
)

// Options configures New.
type Options struct {
	Config config.LoggingConfig

	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// New builds a slog.Logger from logging configuration. When secret
// redaction is enabled every string attribute passes through a Redactor
// before it reaches the handler.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Config.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.Config.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Config.Format) {
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	case "json", "":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", opts.Config.Format)
	}

	if opts.Config.RedactSecrets {
		handler = &redactingHandler{
			next:     handler,
			redactor: NewRedactor(opts.Config.RedactPatterns),
		}
	}

	return slog.New(handler), nil
}

// Setup builds a logger with New and installs it as slog's default.
func Setup(cfg config.LoggingConfig) (*slog.Logger, error) {
	logger, err := New(Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel parses a log level name.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}

// redactingHandler masks secrets in attributes before delegating.
type redactingHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &redactingHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}

func (h *redactingHandler) redact(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.RedactValue(a.Key, v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redact(ga)
		}
		return slog.Group(a.Key, redacted...)
	default:
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return slog.Attr{Key: a.Key, Value: v}
	}
}
