package mylog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/MarcGrol/poststudio/lib/mycontext"
)

type slogLogger struct {
	componentName string
}

func (l slogLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []slog.Attr{slog.String("component", l.componentName)}
	if traceLabel != "" {
		attrs = append(attrs, slog.String("aggregate", traceLabel))
	}
	if trace := mycontext.TraceFromContext(ctx); trace != "" {
		attrs = append(attrs, slog.String("trace", trace))
	}

	current.Load().LogAttrs(ctx, toLevel(severity), fmt.Sprintf(format, a...), attrs...)
}

func toLevel(severity Severity) slog.Level {
	switch severity {
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

func newStandardHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// newGcloudHandler emits one JSON object per line using the field names Cloud Logging parses.
func newGcloudHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severity"
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slog.LevelWarn {
					a.Value = slog.StringValue("WARNING")
				}
			case slog.MessageKey:
				a.Key = "message"
			case "trace":
				a.Key = "logging.googleapis.com/trace"
			}
			return a
		},
	})
}
