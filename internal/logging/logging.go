// Package logging builds LoGrok's process logger: a single logrus
// instance writing text-formatted entries to stderr, with -debug forcing
// the debug level regardless of the configured one.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process-wide logger: text output to stderr (so stdout
// stays reserved for query results), level driven by levelName, bumped to
// Debug when debug is set regardless of levelName.
func New(levelName string, debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	if debug && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	return log
}
