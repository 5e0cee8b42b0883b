package domain

// Signal is the control request a step raises during one invocation.
type Signal int

const (
	// SignalContinue means no control call was made.
	SignalContinue Signal = iota
	// SignalReject terminates the whole run as rejected.
	SignalReject
	// SignalResolve terminates the whole run as resolved.
	SignalResolve
	// SignalExitLoop leaves the enclosing loop descriptor.
	SignalExitLoop
)

func (s Signal) String() string {
	switch s {
	case SignalContinue:
		return "continue"
	case SignalReject:
		return "reject"
	case SignalResolve:
		return "resolve"
	case SignalExitLoop:
		return "exit_loop"
	default:
		return "unknown"
	}
}

// Terminal reports whether the signal ends the whole run.
func (s Signal) Terminal() bool {
	return s == SignalReject || s == SignalResolve
}

// Outcome is the explicit result of a single step invocation.
type Outcome struct {
	Signal Signal
	// Value is the step's natural value (its return, or the fulfilment of
	// the awaitable it returned).
	Value any
	// Override is the result supplied to the control call, if any.
	Override    any
	HasOverride bool
}

// Result returns the override when present, else the natural value.
func (o Outcome) Result() any {
	if o.HasOverride {
		return o.Override
	}
	return o.Value
}

// Stage is the progress of a loop descriptor within one run.
type Stage int

const (
	StageNotStarted Stage = iota // Cond runs next with the incoming argument
	StageAfterCond               // Body runs next with the cond result
	StageAfterBody               // Cond runs next with the captured argument
)

func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not_started"
	case StageAfterCond:
		return "after_cond"
	case StageAfterBody:
		return "after_body"
	default:
		return "unknown"
	}
}
