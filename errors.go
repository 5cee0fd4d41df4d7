package sheetcrud

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateID       = errors.New("duplicate record id")
	ErrMissingID         = errors.New("record id is required")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoPendingDelete   = errors.New("no pending delete")
)

// ReadError reports that the backing store could not be loaded.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("failed to load records: %v", e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports that the working set could not be saved. The in-memory
// change that triggered the save is kept.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("failed to save records: %v", e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// ValidationError reports a required field that is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func transitionError(action string, from State) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
}
