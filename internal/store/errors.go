package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeOutOfOrder indicates an update stamped earlier than the store's
	// current timestamp.
	ErrCodeOutOfOrder ErrorCode = "OUT_OF_ORDER_TIMESTAMP"

	// ErrCodeDuplicateKey indicates an added item whose key is already present.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeCycleDetected indicates a store was set while emitting its own change.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeNotOrdered indicates an operation that needs a sorted collection
	// was given a set-backed one.
	ErrCodeNotOrdered ErrorCode = "NOT_ORDERED"
)

// Error is returned synchronously by Set and the constructors.
// No error is retried inside the package; the caller decides what to do.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Store is the name of the store that rejected the update, if it has one.
	Store string

	// Key is the offending key (DUPLICATE_KEY).
	Key any

	// Current and Attempted are the store's timestamp and the rejected one
	// (OUT_OF_ORDER_TIMESTAMP).
	Current   int64
	Attempted int64
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Store != "" {
		return fmt.Sprintf("%s: %s (store=%s)", e.Code, e.Message, e.Store)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newOutOfOrderError(store string, current, attempted int64) *Error {
	return &Error{
		Code:      ErrCodeOutOfOrder,
		Message:   fmt.Sprintf("cannot set a value in the past (ts %d < current %d)", attempted, current),
		Store:     store,
		Current:   current,
		Attempted: attempted,
	}
}

func newDuplicateKeyError(store string, key any) *Error {
	return &Error{
		Code:    ErrCodeDuplicateKey,
		Message: fmt.Sprintf("multiple items have the same key %v", key),
		Store:   store,
		Key:     key,
	}
}

func newCycleError(store string) *Error {
	return &Error{
		Code:    ErrCodeCycleDetected,
		Message: "store was set while emitting its own change",
		Store:   store,
	}
}

// NewNotOrderedError reports that op needs a sorted collection.
func NewNotOrderedError(store, op string) *Error {
	return &Error{
		Code:    ErrCodeNotOrdered,
		Message: fmt.Sprintf("%s requires an array-backed collection", op),
		Store:   store,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsOutOfOrder reports whether err is an OUT_OF_ORDER_TIMESTAMP error.
// Uses errors.As to handle wrapped errors.
func IsOutOfOrder(err error) bool {
	return hasCode(err, ErrCodeOutOfOrder)
}

// IsDuplicateKey reports whether err is a DUPLICATE_KEY error.
func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

// IsCycle reports whether err is a CYCLE_DETECTED error.
func IsCycle(err error) bool {
	return hasCode(err, ErrCodeCycleDetected)
}

// IsNotOrdered reports whether err is a NOT_ORDERED error.
func IsNotOrdered(err error) bool {
	return hasCode(err, ErrCodeNotOrdered)
}
