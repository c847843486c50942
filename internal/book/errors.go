package book

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindElementNotFound covers a required element that is missing or did
	// not appear within the wait window.
	KindElementNotFound
	KindNavigation
	KindSerialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindElementNotFound:
		return "element not found"
	case KindNavigation:
		return "navigation failure"
	case KindSerialization:
		return "serialization failure"
	default:
		return "unknown failure"
	}
}

// Error is a failed run step. Chapter is the 1-based index of the chapter
// being processed, 0 when the failure is not tied to a chapter.
type Error struct {
	Kind    ErrorKind
	Chapter int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Chapter > 0 {
		msg = fmt.Sprintf("chapter %d: %s", e.Chapter, msg)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same step may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindElementNotFound, KindNavigation:
		return true
	default:
		return false
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}

	return KindUnknown
}
