package domain

import (
	"fmt"
	"time"
)

// ValidationError reports a missing or invalid request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown id. A session owned by another user is
// reported the same way as one that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// UpstreamStreamError reports a transport failure talking to the agent
// service or a terminal error event sent by it.
type UpstreamStreamError struct {
	Op      string
	Message string
	Err     error
}

func (e *UpstreamStreamError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("upstream error [%s] %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upstream error [%s]: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("upstream error [%s]: %s", e.Op, e.Message)
	}
}

func (e *UpstreamStreamError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the agent stream went quiet for longer than the
// idle timeout.
type TimeoutError struct {
	Idle time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent stream idle for %s", e.Idle)
}

// Timeout lets callers treat the error like a net.Error timeout.
func (e *TimeoutError) Timeout() bool { return true }

// PersistenceError reports that the session store could not be reached or
// rejected a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
