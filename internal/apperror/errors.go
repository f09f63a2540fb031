// Package apperror provides a structured way to classify the failures ACORN's
// control loop can hit, mirroring the three error kinds spec.md §7 describes:
// configuration-fatal, iteration-fatal, and iteration-soft.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies the severity and recovery strategy for an error.
type Kind string

const (
	// KindConfigFatal covers errors detected before or at the start of the
	// loop that halt the run: design-rule conflicts, oversized filenames,
	// terminal-placement violations.
	KindConfigFatal Kind = "config_fatal"

	// KindIterationFatal covers errors detected mid-run that halt the loop
	// immediately: a pathfinder returning zero cost for any net.
	KindIterationFatal Kind = "iteration_fatal"

	// KindIterationSoft covers per-net DRC violations: counted, recorded,
	// fed back as congestion, never halting the loop.
	KindIterationSoft Kind = "iteration_soft"
)

// Code identifies a specific failure condition within a Kind.
type Code string

const (
	CodeDesignRuleConflict      Code = "DESIGN_RULE_CONFLICT"
	CodeFilenameTooLong         Code = "FILENAME_TOO_LONG"
	CodeArgParse                Code = "ARG_PARSE"
	CodeTerminalPlacement       Code = "TERMINAL_PLACEMENT"
	CodeDiffPairMisaligned      Code = "DIFF_PAIR_MISALIGNED"
	CodeTerminalsTooClose       Code = "TERMINALS_TOO_CLOSE"
	CodePathfinderZeroCost      Code = "PATHFINDER_ZERO_COST"
	CodeDRCViolation            Code = "DRC_VIOLATION"
	CodeInternal                Code = "INTERNAL"
)

// Error is ACORN's structured error type. It wraps an underlying cause (if
// any) and tags it with a Kind so callers can decide whether to halt the
// loop, emit a diagnostic iteration, or simply record and continue.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value pair of diagnostic context and returns the
// same error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new *Error of the given kind and code.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates a new *Error of the given kind and code wrapping cause.
func Wrap(cause error, kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// ConfigFatal is a convenience constructor for KindConfigFatal errors.
func ConfigFatal(code Code, message string) *Error {
	return New(KindConfigFatal, code, message)
}

// IterationFatal is a convenience constructor for KindIterationFatal errors.
func IterationFatal(code Code, message string) *Error {
	return New(KindIterationFatal, code, message)
}

// IsKind reports whether err is an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// CodeOf extracts the Code from err, or CodeInternal if err is not an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
