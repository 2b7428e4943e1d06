package weblytics

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter adapts a logrus logger to StructuredLogger. Key-value args
// become logrus fields.
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps logger. A nil logger uses logrus.StandardLogger().
//
//	logger := logrus.New()
//	logger.SetFormatter(&logrus.JSONFormatter{})
//	client, _ := weblytics.New(apiKey, weblytics.WithStructuredLogger(weblytics.NewLogrusAdapter(logger)))
func NewLogrusAdapter(logger *logrus.Logger) *LogrusAdapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusAdapter{entry: logrus.NewEntry(logger)}
}

// Debug implements StructuredLogger.
func (a *LogrusAdapter) Debug(msg string, args ...any) { a.with(args).Debug(msg) }

// Info implements StructuredLogger.
func (a *LogrusAdapter) Info(msg string, args ...any) { a.with(args).Info(msg) }

// Warn implements StructuredLogger.
func (a *LogrusAdapter) Warn(msg string, args ...any) { a.with(args).Warn(msg) }

// Error implements StructuredLogger.
func (a *LogrusAdapter) Error(msg string, args ...any) { a.with(args).Error(msg) }

// With returns an adapter that adds args to every entry.
func (a *LogrusAdapter) With(args ...any) *LogrusAdapter {
	return &LogrusAdapter{entry: a.with(args)}
}

func (a *LogrusAdapter) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return a.entry
	}
	fields := make(logrus.Fields, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fields[fmt.Sprint(args[i])] = args[i+1]
		} else {
			fields["!BADKEY"] = args[i]
		}
	}
	return a.entry.WithFields(fields)
}

var _ StructuredLogger = (*LogrusAdapter)(nil)
