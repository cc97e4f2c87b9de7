package image

import (
	"errors"
	"fmt"
)

// Kind classifies an error returned by this package so callers can branch
// on it with errors.Is instead of parsing message text.
type Kind int

const (
	// KindUnknownType means an invalid type hint string was supplied to Open.
	KindUnknownType Kind = iota
	// KindFormat means a structural violation of IHEX/S-record/ELF was found.
	KindFormat
	// KindChecksum means a record checksum did not match in IHEX or S-record.
	KindChecksum
	// KindFileIO means a file open/seek/read failed.
	KindFileIO
	// KindUnavailable means a target memory read failed.
	KindUnavailable
	// KindSyntax means the API was misused (bad range, AddSection on non-builder).
	KindSyntax
	// KindInterrupted means a shutdown signal was observed mid-checksum.
	KindInterrupted
	// KindOutOfMemory means an allocation failed.
	KindOutOfMemory
)

func (k Kind) String() string {
	switch k {
	case KindUnknownType:
		return "unknown type"
	case KindFormat:
		return "format error"
	case KindChecksum:
		return "checksum error"
	case KindFileIO:
		return "fileio failure"
	case KindUnavailable:
		return "temporarily unavailable"
	case KindSyntax:
		return "syntax error"
	case KindInterrupted:
		return "interrupted"
	case KindOutOfMemory:
		return "out of memory"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by every exported operation in this
// package. Kind lets a caller branch with errors.Is(err, image.ErrFormat)
// without parsing Msg.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, regardless of
// message or wrapped cause. This lets sentinels below double as matchers.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for errors.Is comparisons. Construct specific instances
// with the *Errorf helpers below; these exist only to match Kind.
var (
	ErrUnknownType = &Error{Kind: KindUnknownType, Msg: "unknown type"}
	ErrFormat      = &Error{Kind: KindFormat, Msg: "format error"}
	ErrChecksum    = &Error{Kind: KindChecksum, Msg: "checksum error"}
	ErrFileIO      = &Error{Kind: KindFileIO, Msg: "fileio failure"}
	ErrUnavailable = &Error{Kind: KindUnavailable, Msg: "temporarily unavailable"}
	ErrSyntax      = &Error{Kind: KindSyntax, Msg: "syntax error"}
	ErrInterrupted = &Error{Kind: KindInterrupted, Msg: "interrupted"}
	ErrOutOfMemory = &Error{Kind: KindOutOfMemory, Msg: "out of memory"}
)

// newErrorf builds an *Error of kind, supporting a %w verb the same way
// fmt.Errorf does: the wrapped error (if any) becomes Err, and Msg holds
// the fully formatted message text.
func newErrorf(kind Kind, format string, args ...interface{}) error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

func unknownTypeErrorf(format string, args ...interface{}) error {
	return newErrorf(KindUnknownType, format, args...)
}

func formatErrorf(format string, args ...interface{}) error {
	return newErrorf(KindFormat, format, args...)
}

func checksumErrorf(format string, args ...interface{}) error {
	return newErrorf(KindChecksum, format, args...)
}

func fileIOErrorf(format string, args ...interface{}) error {
	return newErrorf(KindFileIO, format, args...)
}

func unavailableErrorf(format string, args ...interface{}) error {
	return newErrorf(KindUnavailable, format, args...)
}

func syntaxErrorf(format string, args ...interface{}) error {
	return newErrorf(KindSyntax, format, args...)
}
