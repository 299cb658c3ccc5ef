package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LogConfig configures the global logger
type LogConfig struct {
	Level  string
	Format string // json or console
	Caller bool
	Output io.Writer
}

var (
	logger zerolog.Logger
	logMu  sync.RWMutex
)

func init() {
	InitLogger(LogConfig{Level: os.Getenv("LOG_LEVEL")})
}

// InitLogger replaces the global logger
func InitLogger(cfg LogConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	l := zerolog.New(output).With().Timestamp().Logger()
	if cfg.Caller {
		l = l.With().Caller().Logger()
	}

	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// Ctx returns a logger carrying the request id and trace context found in ctx
func Ctx(ctx context.Context) *zerolog.Logger {
	c := Logger().With()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		c = c.Str("request_id", reqID)
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		c = c.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}
	l := c.Logger()
	return &l
}

// Debug starts a debug level event on the global logger
func Debug() *zerolog.Event {
	l := Logger()
	return l.Debug()
}

// Info starts an info level event on the global logger
func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

// Warn starts a warn level event on the global logger
func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

// Error starts an error level event on the global logger
func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}

// Span attribute helpers for common fields

func RequestID(id string) attribute.KeyValue {
	return attribute.String("request_id", id)
}

func DeviceID(id string) attribute.KeyValue {
	return attribute.String("device_id", id)
}

func GroupID(id string) attribute.KeyValue {
	return attribute.String("group_id", id)
}

func LocationID(id string) attribute.KeyValue {
	return attribute.String("location_id", id)
}

func ImportID(id string) attribute.KeyValue {
	return attribute.String("import_id", id)
}

func Operation(op string) attribute.KeyValue {
	return attribute.String("operation", op)
}

func Duration(d time.Duration) attribute.KeyValue {
	return attribute.Int64("duration_ms", d.Milliseconds())
}
