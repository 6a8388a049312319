// Package logging configures the logrus logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var formats = map[string]func() logrus.Formatter{
	FormatText: func() logrus.Formatter {
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"}
	},
	FormatJSON: func() logrus.Formatter { return new(logrus.JSONFormatter) },
}

// FormatNames lists the accepted log formats
func FormatNames() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a logger writing to out with the given level and format
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	if format == "" {
		format = FormatText
	}
	newFormatter, ok := formats[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q (options: %s)", format, strings.Join(FormatNames(), ", "))
	}
	logger.SetFormatter(newFormatter())

	return logger, nil
}

// Discard returns a logger that drops everything
func Discard() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}
