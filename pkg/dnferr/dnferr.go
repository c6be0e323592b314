// Package dnferr defines the stable error kinds the library surfaces to
// its host: a small typed-error struct with an Error() that renders
// through gotext for eventual localisation, rather than bare sentinel
// values.
package dnferr

import (
	"errors"

	"github.com/leonelquinteros/gotext"
)

// Kind is one of the library's stable, host-visible error categories.
type Kind int

const (
	BadQuery Kind = iota
	BadSelector
	NoSolution
	RemovalOfProtectedPkg
	InvalidArchitecture
	FileInvalid
	FileNotFound
	InternalError
	PackageNotFound
	GpgSignatureInvalid
	NoSpace
	FailedConfigParsing
)

func (k Kind) String() string {
	switch k {
	case BadQuery:
		return "BadQuery"
	case BadSelector:
		return "BadSelector"
	case NoSolution:
		return "NoSolution"
	case RemovalOfProtectedPkg:
		return "RemovalOfProtectedPkg"
	case InvalidArchitecture:
		return "InvalidArchitecture"
	case FileInvalid:
		return "FileInvalid"
	case FileNotFound:
		return "FileNotFound"
	case InternalError:
		return "InternalError"
	case PackageNotFound:
		return "PackageNotFound"
	case GpgSignatureInvalid:
		return "GpgSignatureInvalid"
	case NoSpace:
		return "NoSpace"
	case FailedConfigParsing:
		return "FailedConfigParsing"
	default:
		return "Unknown"
	}
}

// Error is the library's typed error for its host-visible kinds, carrying
// its Kind plus a human-readable, gotext-routed message and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return gotext.Get("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return gotext.Get("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause, formatting msg/args through
// gotext.Get so the message participates in localisation.
func New(kind Kind, msg string, args ...any) *Error {
	return &Error{Kind: kind, Message: gotext.Get(msg, args...)}
}

// Wrap builds an Error that also carries an underlying cause.
func Wrap(kind Kind, cause error, msg string, args ...any) *Error {
	return &Error{Kind: kind, Message: gotext.Get(msg, args...), Cause: cause}
}

// Is reports whether err is a *Error of the given kind, unwrapping once.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	if !ok {
		e, ok = errors.Unwrap(err).(*Error)
	}
	return ok && e.Kind == kind
}
