package runtime

import (
	"fmt"
	"sync"

	"github.com/aretw0/sequence/pkg/domain"
)

// Control is handed to every step invocation. It is the only way a step can
// end the run early or leave its loop.
//
// Control calls are fire-and-forget. The first one wins; any further call in
// the same invocation fails the run with domain.ErrConflictingSignals. Calls
// made after the invocation has settled are ignored.
type Control struct {
	mu          sync.Mutex
	runID       string
	index       int
	inLoop      bool
	iteration   int
	signal      domain.Signal
	override    any
	hasOverride bool
	err         error
	sealed      bool
}

func newControl(runID string, index int, inLoop bool) *Control {
	return &Control{runID: runID, index: index, inLoop: inLoop}
}

// Reject terminates the run as rejected. The optional result replaces the
// step's own value as the rejection value.
func (c *Control) Reject(result ...any) {
	c.raise(domain.SignalReject, result)
}

// Resolve terminates the run as resolved. The optional result replaces the
// step's own value as the run result.
func (c *Control) Resolve(result ...any) {
	c.raise(domain.SignalResolve, result)
}

// ExitLoop leaves the enclosing loop. The optional result replaces the
// step's own value as the loop result.
func (c *Control) ExitLoop(result ...any) {
	c.raise(domain.SignalExitLoop, result)
}

// RunID returns the identifier of the run this invocation belongs to.
func (c *Control) RunID() string {
	return c.runID
}

// Index returns the position of the descriptor being executed.
func (c *Control) Index() int {
	return c.index
}

// Iteration returns how many times the enclosing loop's body has completed
// in this run, counted from the loop's entry. It is 0 outside loops.
func (c *Control) Iteration() int {
	return c.iteration
}

func (c *Control) raise(sig domain.Signal, result []any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed || c.err != nil {
		return
	}
	if c.signal != domain.SignalContinue {
		c.err = fmt.Errorf("%w: %s after %s", domain.ErrConflictingSignals, sig, c.signal)
		return
	}
	if sig == domain.SignalExitLoop && !c.inLoop {
		c.err = fmt.Errorf("%w: step %d", domain.ErrExitOutsideLoop, c.index)
		return
	}

	c.signal = sig
	if len(result) > 0 {
		c.override = result[0]
		c.hasOverride = true
	}
}

// outcome reads the signal raised so far and combines it with value.
// When seal is set, later control calls are ignored.
func (c *Control) outcome(value any, seal bool) (domain.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seal {
		c.sealed = true
	}
	if c.err != nil {
		return domain.Outcome{}, c.err
	}
	return domain.Outcome{
		Signal:      c.signal,
		Value:       value,
		Override:    c.override,
		HasOverride: c.hasOverride,
	}, nil
}
