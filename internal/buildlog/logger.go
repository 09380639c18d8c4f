// Package buildlog provides a logging handle that a caller creates and
// passes around explicitly, in place of the global logger singleton the
// original implementation relied on. The package keeps no package-level
// logger.
package buildlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger wraps a stdlib *log.Logger and an optional progress channel, the
// way VarGridConfig.MutateGrid forwards progress strings to logChan when it
// is non-nil.
type Logger struct {
	*log.Logger

	// Progress, if non-nil, receives a copy of every message logged through
	// Stage (messages logged directly through the embedded *log.Logger are
	// not forwarded). A
	// caller (e.g. an HTTP handler streaming build progress) can drain it;
	// nothing blocks if no one is listening because sends are non-blocking.
	Progress chan string
}

// New creates a Logger writing to w with the given prefix ("" for none).
func New(w io.Writer, prefix string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{Logger: log.New(w, prefix, log.LstdFlags)}
}

// Default returns a Logger writing to stderr.
func Default() *Logger { return New(os.Stderr, "") }

// Stage logs a message tagged with the pipeline stage it concerns (e.g.
// "stage", "mosaic", "derive", "write"), mirroring the "[group-%d:file-%d]"
// prefixing style the original build pipeline used for its log lines.
func (l *Logger) Stage(stage, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.Printf("[%s] %s", stage, msg)
	if l.Progress != nil {
		select {
		case l.Progress <- fmt.Sprintf("[%s] %s", stage, msg):
		default:
		}
	}
}
