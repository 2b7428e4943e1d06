package weblytics

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Logger is a printf-style logger such as *log.Logger.
//
// Wrap it with WrapPrintfLogger to pass it where a StructuredLogger is
// expected, or hand it to WithLogger directly.
type Logger interface {
	Printf(format string, v ...any)
}

// StructuredLogger is the leveled logger used throughout the SDK.
// It is satisfied by NewSlogAdapter(slog.Default()):
//
//	client, _ := weblytics.New(apiKey,
//	    weblytics.WithStructuredLogger(weblytics.NewSlogAdapter(slog.Default())),
//	)
type StructuredLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type printfLoggerWrapper struct {
	logger Logger
}

// WrapPrintfLogger adapts a printf-style Logger to StructuredLogger.
// The level is written as a prefix and key-value pairs are appended as
// " | k=v".
func WrapPrintfLogger(l Logger) StructuredLogger {
	return &printfLoggerWrapper{logger: l}
}

// WrapStdLogger is WrapPrintfLogger for a *log.Logger.
func WrapStdLogger(l *log.Logger) StructuredLogger {
	return &printfLoggerWrapper{logger: l}
}

func (w *printfLoggerWrapper) Debug(msg string, args ...any) {
	w.logger.Printf("[DEBUG] %s%s", msg, formatArgs(args))
}

func (w *printfLoggerWrapper) Info(msg string, args ...any) {
	w.logger.Printf("[INFO] %s%s", msg, formatArgs(args))
}

func (w *printfLoggerWrapper) Warn(msg string, args ...any) {
	w.logger.Printf("[WARN] %s%s", msg, formatArgs(args))
}

func (w *printfLoggerWrapper) Error(msg string, args ...any) {
	w.logger.Printf("[ERROR] %s%s", msg, formatArgs(args))
}

var _ StructuredLogger = (*printfLoggerWrapper)(nil)

// stderrLogger receives errors nobody else handled.
var stderrLogger = log.New(os.Stderr, "weblytics: ", log.LstdFlags)

// newDebugLogger is installed by Config.Debug when no logger is configured.
func newDebugLogger() StructuredLogger {
	return WrapStdLogger(log.New(os.Stderr, "weblytics: ", log.LstdFlags|log.Lmicroseconds))
}

// formatArgs renders key-value pairs as " | k1=v1 k2=v2".
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(" |")
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Printf(string, ...any) {}
func (NopLogger) Debug(string, ...any)  {}
func (NopLogger) Info(string, ...any)   {}
func (NopLogger) Warn(string, ...any)   {}
func (NopLogger) Error(string, ...any)  {}

var (
	_ Logger           = NopLogger{}
	_ StructuredLogger = NopLogger{}
)

// MaskCredential hides all but the last four characters of s.
//
//	MaskCredential("wl_live_1234567890abcdef") => "********************cdef"
func MaskCredential(s string) string {
	const visible = 4
	switch {
	case s == "":
		return ""
	case len(s) <= visible*2:
		return "****"
	default:
		return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
	}
}

// SlogAdapter adapts a *slog.Logger to StructuredLogger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger. A nil logger uses slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug implements StructuredLogger.
func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }

// Info implements StructuredLogger.
func (a *SlogAdapter) Info(msg string, args ...any) { a.logger.Info(msg, args...) }

// Warn implements StructuredLogger.
func (a *SlogAdapter) Warn(msg string, args ...any) { a.logger.Warn(msg, args...) }

// Error implements StructuredLogger.
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// With returns an adapter that adds args to every record.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// WithGroup returns an adapter that nests attributes under name.
func (a *SlogAdapter) WithGroup(name string) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.WithGroup(name)}
}
