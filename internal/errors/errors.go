// Package errors provides the error taxonomy shared by the planner packages.
//
// Sentinels categorize failures so callers can branch with errors.Is, and
// KindOf collapses any error chain into a single Kind at entry points such as
// the HTTP layer or the CLI.
//
// This package MUST NOT import any other internal packages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for error categorization.
var (
	// ErrNotFound indicates that a referenced plan, task, or user is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a request that failed validation before any
	// side effect took place.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoActivePlans indicates that a user has no active plans to match
	// progress against.
	ErrNoActivePlans = errors.New("no active plans found")

	// ErrOracleMalformed indicates generator output that is not valid JSON or
	// does not carry the expected keys.
	ErrOracleMalformed = errors.New("malformed generator output")

	// ErrOracleFailed indicates the text generation service could not be
	// reached or returned an error.
	ErrOracleFailed = errors.New("generator call failed")

	// ErrStorage indicates that an insert, update, or query against the
	// backing store failed.
	ErrStorage = errors.New("storage operation failed")

	// ErrConfigInvalid indicates an invalid configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// Kind is the collapsed error category exposed at outer boundaries.
type Kind string

// Error kinds, ordered from most to least specific.
const (
	KindNone            Kind = ""
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindOracleMalformed Kind = "oracle_malformed"
	KindOracleFailed    Kind = "oracle_failed"
	KindStorage         Kind = "storage"
	KindInternal        Kind = "internal"
)

// KindOf returns the Kind of err. A nil error yields KindNone and an error
// carrying no known sentinel yields KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoActivePlans):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrOracleMalformed):
		return KindOracleMalformed
	case errors.Is(err, ErrOracleFailed):
		// A generator that cannot be built from the configuration is a
		// server-side failure, not bad caller input.
		return KindOracleFailed
	case errors.Is(err, ErrConfigInvalid):
		return KindInvalidInput
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindInternal
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Wrap adds context to err. It returns nil if err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context to err. It returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Mark tags err with a sentinel so that errors.Is(result, sentinel) holds
// while err's own chain stays inspectable.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
