// Package logging provides Trinity's logging infrastructure built on
// charmbracelet/log.
//
// It wraps charmbracelet/log behind a small factory so every component gets a
// prefixed child logger with shared level and formatter settings. All log
// output goes to stderr; stdout is reserved for structured output (JSON,
// rendered tables).
//
// Usage:
//
//	// During CLI initialization (PersistentPreRun):
//	logging.Setup(verbose, quiet, jsonFormat)
//
//	// In each package:
//	logger := logging.New("forge")
//	logger.Info("mission staged", "id", id, "score", score)
//
// Setup must run before New: charmbracelet/log children copy the default
// logger's state at creation time, so later changes to the default logger do
// not propagate to existing children.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Level aliases re-exported so callers do not import charmbracelet/log
// directly for level comparisons.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
	LevelFatal = log.FatalLevel
)

// Setup configures the global logging defaults. Call once during startup.
//
//   - verbose lowers the level to Debug.
//   - quiet raises the level to Error and wins over verbose: in scripted
//     environments --quiet must suppress noise regardless of other flags.
//   - jsonFormat switches to NDJSON output for log aggregation.
func Setup(verbose, quiet, jsonFormat bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = log.ErrorLevel
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)

	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// New returns a logger with the given component prefix. The logger inherits
// the global level, formatter, and output configured by Setup. An empty
// component produces an unprefixed logger.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput overrides the output writer for the default logger. Primarily
// for tests capturing output in a bytes.Buffer; restore with t.Cleanup.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
