// Package apperr holds the error kinds shared by the store, the services and the HTTP layer.
package apperr

import "errors"

// Error kinds. Service errors wrap exactly one of these so callers can map them with errors.Is.
var (
	ErrValidation            = errors.New("validation failure")
	ErrNotFound              = errors.New("not found")
	ErrInsertFailure         = errors.New("insert failure")
	ErrUnsupportedTransition = errors.New("unsupported transition")
	ErrNoChangeNeeded        = errors.New("no change needed")
	ErrRejected              = errors.New("rejected")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// New returns a sentinel with its own message that still matches kind under errors.Is.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Kind reports which of the known kinds err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{
		ErrValidation,
		ErrNotFound,
		ErrInsertFailure,
		ErrUnsupportedTransition,
		ErrNoChangeNeeded,
		ErrRejected,
		ErrStoreUnavailable,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
