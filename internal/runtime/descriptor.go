package runtime

import "github.com/aretw0/sequence/pkg/domain"

// StepFunc is a unit of work. It receives the previous step's settled result
// and returns its own result, which may be an Awaitable.
// A non-nil error fails the run.
type StepFunc func(c *Control, arg any) (any, error)

// Awaitable is a value that may suspend the run until it settles.
// *deferred.Deferred implements it.
type Awaitable interface {
	Then(onFulfilled func(any), onRejected func(error))
}

// Descriptor is one entry of a sequence: either a simple step or a loop.
type Descriptor struct {
	Step StepFunc
	Cond StepFunc
	Body StepFunc
	loop bool
}

// Simple creates a descriptor running fn once.
func Simple(fn StepFunc) Descriptor {
	return Descriptor{Step: fn}
}

// Loop creates a descriptor alternating cond and body until one of them
// calls ExitLoop.
func Loop(cond, body StepFunc) Descriptor {
	return Descriptor{Cond: cond, Body: body, loop: true}
}

// IsLoop reports whether the descriptor is a loop.
func (d Descriptor) IsLoop() bool {
	return d.loop
}

// loopState is the per-run progress of a loop descriptor.
type loopState struct {
	stage      domain.Stage
	initialArg any
	iterations int
}

// loopTransitions maps the stage a loop was in when its function completed
// without exiting to the stage it moves to.
var loopTransitions = map[domain.Stage]domain.Stage{
	domain.StageNotStarted: domain.StageAfterCond,
	domain.StageAfterCond:  domain.StageAfterBody,
	domain.StageAfterBody:  domain.StageAfterCond,
}
