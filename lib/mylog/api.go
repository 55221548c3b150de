package mylog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

type Logger interface {
	Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any)
}

var current atomic.Pointer[slog.Logger]

func init() {
	format := "text"
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		format = "json"
	}
	Configure(os.Stderr, os.Getenv("LOG_LEVEL"), format)
}

// Configure replaces the process wide log sink. Loggers created earlier pick up the change.
func Configure(w io.Writer, level string, format string) {
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = newGcloudHandler(w, parseLevel(level))
	} else {
		handler = newStandardHandler(w, parseLevel(level))
	}
	current.Store(slog.New(handler))
}

func New(componentName string) Logger {
	return slogLogger{
		componentName: componentName,
	}
}

func parseLevel(level string) slog.Level {
	switch Severity(strings.ToUpper(level)) {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityWarn:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
