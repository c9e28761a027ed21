// Package logger writes diagnostic lines to stderr. Debug, info, warn and
// section lines appear only with --verbose; errors are always written.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log lines, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// write holds the read lock while printing so concurrent lines do not
// interleave with a SetOutput swap.
func write(always bool, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, format, args...)
	}
}

func logf(l level, format string, args []any) {
	write(l == levelError, "["+string(l)+"] "+format+"\n", args...)
}

func Debug(format string, args ...any) { logf(levelDebug, format, args) }
func Info(format string, args ...any)  { logf(levelInfo, format, args) }
func Warn(format string, args ...any)  { logf(levelWarn, format, args) }
func Error(format string, args ...any) { logf(levelError, format, args) }

// Section marks the start of a pipeline stage in verbose output.
func Section(name string) {
	write(false, "\n=== %s ===\n", name)
}

// Timed logs how long a stage took at debug level. Use it with defer:
//
//	defer logger.Timed("embed")()
func Timed(stage string) func() {
	start := time.Now()
	return func() {
		Debug("%s took %s", stage, time.Since(start).Round(time.Millisecond))
	}
}
