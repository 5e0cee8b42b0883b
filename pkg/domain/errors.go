package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidStep is returned when a descriptor holds no callable function.
var ErrInvalidStep = errors.New("invalid step")

// ErrConflictingSignals is returned when a step raises more than one control
// signal in the same invocation.
var ErrConflictingSignals = errors.New("conflicting control signals")

// ErrExitOutsideLoop is returned when a simple step calls ExitLoop.
var ErrExitOutsideLoop = errors.New("exit loop called outside of a loop")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrUnknownStep is returned when a pipeline references an unregistered step.
var ErrUnknownStep = errors.New("unknown step")

// ErrInvalidPipeline is returned when a pipeline definition is malformed.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// RejectedError is the rejection reason of a run terminated by an explicit
// Reject. Value is the override result, or the step's natural value when no
// override was supplied.
type RejectedError struct {
	Value any
}

func (e *RejectedError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "sequence rejected: " + err.Error()
	}
	return fmt.Sprintf("sequence rejected: %v", e.Value)
}

// Unwrap exposes Value when it is itself an error.
func (e *RejectedError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// PanicError wraps a value recovered from a panicking step.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step panicked: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrPipelineNotFound is returned when a run is requested for an unregistered pipeline.
var ErrPipelineNotFound = errors.New("pipeline not found")
