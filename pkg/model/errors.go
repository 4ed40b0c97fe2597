package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of a reconciliation run
type ErrorKind int

const (
	// KindUnknown is any error that did not originate from a known stage
	KindUnknown ErrorKind = iota
	// KindConfiguration means the client or data type is not supported
	KindConfiguration
	// KindFetch means the external source could not produce a dataset
	KindFetch
	// KindColumnNotFound means no join column could be resolved
	KindColumnNotFound
	// KindCacheFetch means the warehouse could not be queried to fill the enrollment cache
	KindCacheFetch
)

// String returns a string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindConfiguration:
		return "ConfigurationError"
	case KindFetch:
		return "FetchError"
	case KindColumnNotFound:
		return "ColumnNotFoundError"
	case KindCacheFetch:
		return "CacheFetchError"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Error is a classified error carrying the operation that produced it
type Error struct {
	Kind ErrorKind
	Op   string // Operation that failed, e.g. "fetch_external"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error
func NewError(kind ErrorKind, op string, err error) *Error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf creates a classified error from a format string
func Errorf(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain holds a classified error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
