package engine

import (
	"errors"
	"fmt"
)

// LoopErrorCode categorizes loop errors.
type LoopErrorCode string

const (
	// ErrCodeStopped indicates work was submitted after the loop stopped.
	ErrCodeStopped LoopErrorCode = "LOOP_STOPPED"

	// ErrCodeQueueFull indicates the pending-task limit was reached.
	ErrCodeQueueFull LoopErrorCode = "QUEUE_FULL"
)

// LoopError is returned when the loop refuses a task.
type LoopError struct {
	Code    LoopErrorCode
	Message string
	Pending int
	Limit   int
}

// Error implements the error interface.
func (e *LoopError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%s: %s (pending=%d, limit=%d)", e.Code, e.Message, e.Pending, e.Limit)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newStoppedError() *LoopError {
	return &LoopError{Code: ErrCodeStopped, Message: "loop is stopped"}
}

func newQueueFullError(pending, limit int) *LoopError {
	return &LoopError{
		Code:    ErrCodeQueueFull,
		Message: "too many pending tasks",
		Pending: pending,
		Limit:   limit,
	}
}

// IsStopped reports whether err is a LOOP_STOPPED error.
func IsStopped(err error) bool {
	var le *LoopError
	return errors.As(err, &le) && le.Code == ErrCodeStopped
}

// IsQueueFull reports whether err is a QUEUE_FULL error.
func IsQueueFull(err error) bool {
	var le *LoopError
	return errors.As(err, &le) && le.Code == ErrCodeQueueFull
}
