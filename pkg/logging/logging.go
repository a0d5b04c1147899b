// Package logging builds the logrus logger used by the ozx command.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Settings selects level and output format. Verbosity raises the level one
// step per count above Level; Quiet caps it at error.
type Settings struct {
	Level     string
	Format    string
	Verbosity int
	Quiet     bool
	Out       io.Writer
}

// New returns a logger for s. Output defaults to stderr so that stdout stays
// free for container bytes.
func New(s Settings) (*logrus.Logger, error) {
	level := logrus.WarnLevel
	if s.Level != "" {
		parsed, err := logrus.ParseLevel(s.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = parsed
	}
	level = Adjust(level, s.Verbosity, s.Quiet)

	logger := logrus.New()
	logger.SetLevel(level)
	if s.Out != nil {
		logger.SetOutput(s.Out)
	} else {
		logger.SetOutput(os.Stderr)
	}

	switch s.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", s.Format)
	}
	return logger, nil
}

// Adjust applies verbosity and quiet flags to a base level.
func Adjust(base logrus.Level, verbosity int, quiet bool) logrus.Level {
	if quiet {
		return logrus.ErrorLevel
	}
	level := base + logrus.Level(verbosity)
	if level > logrus.TraceLevel {
		level = logrus.TraceLevel
	}
	return level
}
