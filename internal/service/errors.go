package service

import (
	"errors"
	"fmt"
)

// State-conflict sentinels. These mean the request was well-formed but the
// month is not in a state that allows the operation; handlers map them to
// 409 Conflict.
var (
	// ErrAlreadyTracking is returned when tracking is started for a month
	// that already has a non-closed execution record.
	ErrAlreadyTracking = errors.New("month is already being tracked")

	// ErrNoActiveRecord is returned when an execution operation targets a
	// month with no non-closed record.
	ErrNoActiveRecord = errors.New("no active execution record for month")

	// ErrNothingToUndo is returned when an undo targets a month with neither
	// an open nor a closed record.
	ErrNothingToUndo = errors.New("nothing to undo for month")

	// ErrUndoExpired is returned when the undo window for the most recent
	// transition has passed.
	ErrUndoExpired = errors.New("undo window has expired")
)

// ValidationError means the request itself was malformed: a bad month label,
// a non-positive amount, an unknown strategy. Handlers map it to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
