package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart  EventType = "step_start"
	EventStepSettle EventType = "step_settle"
	EventRunSettle  EventType = "run_settle"
)

// StepKind tells which function of a descriptor was invoked.
type StepKind string

const (
	StepKindSimple StepKind = "step"
	StepKindCond   StepKind = "cond"
	StepKindBody   StepKind = "body"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Sequence  string    `json:"sequence,omitempty"`
}

// StepEvent represents the start or settlement of one step invocation.
type StepEvent struct {
	EventBase
	Index    int           `json:"index"`
	Kind     StepKind      `json:"kind"`
	Signal   Signal        `json:"signal"`
	Async    bool          `json:"async,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// RunEvent represents the settlement of a whole run.
type RunEvent struct {
	EventBase
	Status   RunStatus     `json:"status"`
	Steps    int           `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run on the goroutine driving the run and must not block.
type LifecycleHooks struct {
	OnStepStart  func(context.Context, *StepEvent)
	OnStepSettle func(context.Context, *StepEvent)
	OnRunSettle  func(context.Context, *RunEvent)
}
