// Package logging configures the logrus logger shared by the CLI commands.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log formats accepted by Init.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Init configures the standard logrus logger to write to w. The CLI passes
// stderr so report output on stdout stays machine readable. Unknown formats
// fall back to text.
func Init(w io.Writer, format string, level logrus.Level) {
	logrus.SetOutput(w)
	logrus.SetLevel(level)
	logrus.SetFormatter(formatter(format))
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(format, FormatJSON) {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{
		FullTimestamp: true,
	}
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a
// logrus level. Unknown strings default to InfoLevel.
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(s) {
	case "trace", "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
