// Package logger provides the verbose diagnostics channel for the
// Libris CLI. Debug, Info, and Section output only appears when the
// --verbose flag enables it; Warn always prints, since it reports
// degraded operation the user should see.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var state struct {
	mu      sync.RWMutex
	verbose bool
	out     io.Writer
}

func init() {
	state.out = os.Stderr
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.verbose
}

// SetOutput redirects log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.out = w
}

// emit writes a line when verbose mode is on, or unconditionally when
// always is set.
func emit(always bool, prefix, format string, args ...any) {
	state.mu.RLock()
	defer state.mu.RUnlock()
	if !always && !state.verbose {
		return
	}
	fmt.Fprintf(state.out, prefix+format+"\n", args...)
}

// Debug prints a debug message in verbose mode.
func Debug(format string, args ...any) {
	emit(false, "[DEBUG] ", format, args...)
}

// Section prints a section header in verbose mode.
func Section(name string) {
	emit(false, "", "\n=== %s ===", name)
}

// Info prints an informational message in verbose mode.
func Info(format string, args ...any) {
	emit(false, "[INFO] ", format, args...)
}

// Warn prints a warning regardless of verbosity.
func Warn(format string, args ...any) {
	emit(true, "[WARN] ", format, args...)
}
