package sieve

import (
	"fmt"
	"io"
)

// Location is a position inside a named script. A nil *Location is permitted
// for messages that do not belong to a specific place in a script.
type Location struct {
	Script string
	Line   int
	Column int
}

func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.Script
	}
	return fmt.Sprintf("%s:%d:%d", l.Script, l.Line, l.Column)
}

// ErrorHandler collects the diagnostics of one compilation or execution.
//
// Errors during validation and generation are non-fatal for the stage: the
// stage keeps going so that one run reports as many problems as possible,
// and fails at stage end when the error count is non-zero. Once MaxErrors
// errors have been reported further errors are dropped from the output but
// still counted.
type ErrorHandler struct {
	// Out receives formatted diagnostics; nil discards them.
	Out io.Writer
	// MaxErrors caps the number of errors written to Out. Zero means
	// unlimited.
	MaxErrors int

	errors   int
	warnings int
}

// NewErrorHandler returns a handler writing to out, reporting at most
// maxErrors errors. out may be nil to only count.
func NewErrorHandler(out io.Writer, maxErrors int) *ErrorHandler {
	return &ErrorHandler{Out: out, MaxErrors: maxErrors}
}

func (h *ErrorHandler) write(loc *Location, class, format string, args ...any) {
	if h.Out == nil {
		return
	}
	if l := loc.String(); l != "" {
		fmt.Fprintf(h.Out, "%s: %s: %s\n", l, class, fmt.Sprintf(format, args...))
	} else {
		fmt.Fprintf(h.Out, "%s: %s\n", class, fmt.Sprintf(format, args...))
	}
}

// Error reports an error at loc.
func (h *ErrorHandler) Error(loc *Location, format string, args ...any) {
	h.errors++
	if h.MaxErrors > 0 && h.errors > h.MaxErrors {
		return
	}
	h.write(loc, "error", format, args...)
}

// Warning reports a warning at loc. Warnings are never capped.
func (h *ErrorHandler) Warning(loc *Location, format string, args ...any) {
	h.warnings++
	h.write(loc, "warning", format, args...)
}

// Critical reports an unrecoverable error. It bypasses the error cap; the
// calling stage aborts right after reporting.
func (h *ErrorHandler) Critical(loc *Location, format string, args ...any) {
	h.errors++
	h.write(loc, "critical", format, args...)
}

// ErrorCount returns the number of errors reported so far, including
// errors dropped by the cap.
func (h *ErrorHandler) ErrorCount() int { return h.errors }

// WarningCount returns the number of warnings reported so far.
func (h *ErrorHandler) WarningCount() int { return h.warnings }

// Reset clears the counters so the handler can be reused for another run.
func (h *ErrorHandler) Reset() {
	h.errors = 0
	h.warnings = 0
}
