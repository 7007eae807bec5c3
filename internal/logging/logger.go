package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/cafe/internal/config"
)

// New creates a text logger on stderr, keeping stdout free for YAML and
// JSON-RPC output. The "error" key is standardised to "err".
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions(level)))
}

// NewFromConfig builds the server logger: JSON or text, with the service
// name and version attached to every record.
func NewFromConfig(cfg config.LoggingConfig, version string) *slog.Logger {
	var output io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		output = os.Stdout
	}
	return newHandlerLogger(output, cfg, version)
}

func newHandlerLogger(output io.Writer, cfg config.LoggingConfig, version string) *slog.Logger {
	opts := handlerOptions(ParseLevel(cfg.Level))

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "cafe"),
		slog.String("version", version),
	})
	return slog.New(handler)
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}

// ParseLevel converts debug, info, warn or error; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
