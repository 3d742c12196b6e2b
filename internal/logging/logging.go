// internal/logging/logging.go

// Package logging builds the leveled logger shared by every build stage.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a text logger at the given level. When file is non-empty the
// output is appended to it instead of stdout; the returned closer must then
// be closed by the caller.
func New(level logrus.Level, file string) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})

	if file == "" {
		log.SetOutput(os.Stdout)
		return log, io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file %s: %w", file, err)
	}
	log.SetOutput(f)
	return log, f, nil
}

// Level picks the log level from the command line verbosity flags. The
// most verbose flag set wins; with none set only warnings and errors are
// logged.
func Level(quiet, verbose, debug bool) logrus.Level {
	switch {
	case debug:
		return logrus.DebugLevel
	case verbose:
		return logrus.InfoLevel
	case quiet:
		return logrus.ErrorLevel
	}
	return logrus.WarnLevel
}
