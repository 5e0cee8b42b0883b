package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/aretw0/sequence/pkg/domain"
)

// Engine drives runs of a descriptor list.
// It holds no per-run state and may drive any number of runs at once.
type Engine struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	name   string
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithName labels events emitted by the engine.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts a run over steps with arg as the first argument.
// Synchronous steps execute before Run returns; the run continues on the
// settling goroutine of the first awaitable that is still pending.
func (e *Engine) Run(runID string, steps []Descriptor, arg any) *deferred.Deferred {
	a := &activation{
		engine:  e,
		id:      runID,
		steps:   steps,
		loops:   make([]loopState, len(steps)),
		out:     deferred.New(),
		started: time.Now(),
		logger:  e.logger.With("run_id", runID),
	}
	a.logger.Debug("run started", "steps", len(steps))
	a.drive(arg)
	return a.out
}

// activation is the state of one run. Only one continuation touches it at a
// time: the driving goroutine, or the goroutine resuming it after a pending
// awaitable settles.
type activation struct {
	engine      *Engine
	id          string
	steps       []Descriptor
	loops       []loopState
	cursor      int
	invocations int
	out         *deferred.Deferred
	settled     atomic.Bool
	started     time.Time
	logger      *slog.Logger
}

// invocation describes one call of a step function.
type invocation struct {
	control *Control
	kind    domain.StepKind
	index   int
	start   time.Time
	async   bool
}

// drive runs steps until the run settles or suspends.
func (a *activation) drive(arg any) {
	for {
		next, ok := a.step(arg)
		if !ok {
			return
		}
		arg = next
	}
}

// step executes the function the cursor points at. It returns the argument
// for the next step, or false when the run settled or suspended.
func (a *activation) step(arg any) (any, bool) {
	if a.cursor >= len(a.steps) {
		a.resolve(arg)
		return nil, false
	}

	fn, kind, callArg := a.target(arg)
	control := newControl(a.id, a.cursor, a.steps[a.cursor].IsLoop())
	control.iteration = a.loops[a.cursor].iterations
	inv := &invocation{
		control: control,
		kind:    kind,
		index:   a.cursor,
		start:   time.Now(),
	}
	if fn == nil {
		a.reject(fmt.Errorf("%w: descriptor %d has no %s function", domain.ErrInvalidStep, a.cursor, kind))
		return nil, false
	}

	a.invocations++
	a.emitStepStart(inv)
	a.logger.Debug("step invoked",
		"index", inv.index,
		"kind", inv.kind,
		"stage", a.loops[inv.index].stage,
	)

	value, err := call(fn, inv.control, callArg)

	out, cerr := inv.control.outcome(value, false)
	if cerr != nil {
		a.settleStep(inv, domain.Outcome{}, true)
		a.reject(cerr)
		return nil, false
	}
	if out.Signal.Terminal() {
		// A terminating control call wins over the step's own failure.
		if err != nil && !out.HasOverride && out.Signal == domain.SignalReject {
			out.Value = err
		}
		out, _ = inv.control.outcome(out.Value, true)
		a.settleStep(inv, out, false)
		a.terminate(out)
		return nil, false
	}
	if err != nil {
		inv.control.outcome(nil, true)
		a.settleStep(inv, domain.Outcome{}, true)
		a.reject(err)
		return nil, false
	}

	if aw, ok := value.(Awaitable); ok {
		if isNil(aw) {
			inv.control.outcome(nil, true)
			a.settleStep(inv, domain.Outcome{}, true)
			a.reject(fmt.Errorf("%w: %s %d returned a nil awaitable", domain.ErrInvalidStep, inv.kind, inv.index))
			return nil, false
		}
		inv.async = true
		v, inline, err := a.suspend(aw, func(v any, err error) {
			if next, ok := a.complete(inv, v, err); ok {
				a.drive(next)
			}
		})
		if !inline {
			a.logger.Debug("run suspended", "index", inv.index, "kind", inv.kind)
			return nil, false
		}
		return a.complete(inv, v, err)
	}
	return a.complete(inv, value, nil)
}

// target picks the function to call for the current descriptor and stage,
// along with its argument.
func (a *activation) target(arg any) (StepFunc, domain.StepKind, any) {
	d := a.steps[a.cursor]
	if !d.IsLoop() {
		return d.Step, domain.StepKindSimple, arg
	}

	ls := &a.loops[a.cursor]
	switch ls.stage {
	case domain.StageNotStarted:
		ls.initialArg = arg
		return d.Cond, domain.StepKindCond, arg
	case domain.StageAfterCond:
		return d.Body, domain.StepKindBody, arg
	default:
		// cond always sees the argument the loop was entered with
		return d.Cond, domain.StepKindCond, ls.initialArg
	}
}

// complete finishes an invocation once its effective value is known.
func (a *activation) complete(inv *invocation, value any, err error) (any, bool) {
	out, cerr := inv.control.outcome(value, true)
	switch {
	case cerr != nil:
		a.settleStep(inv, domain.Outcome{}, true)
		a.reject(cerr)
		return nil, false
	case err != nil:
		a.settleStep(inv, domain.Outcome{}, true)
		a.reject(err)
		return nil, false
	case out.Signal.Terminal():
		a.settleStep(inv, out, false)
		a.terminate(out)
		return nil, false
	}

	a.settleStep(inv, out, false)
	return a.advance(out), true
}

// advance moves the cursor according to the outcome and returns the
// argument for the next invocation.
func (a *activation) advance(out domain.Outcome) any {
	if !a.steps[a.cursor].IsLoop() {
		a.cursor++
		return out.Value
	}

	ls := &a.loops[a.cursor]
	if out.Signal == domain.SignalExitLoop {
		a.logger.Debug("loop exited", "index", a.cursor, "stage", ls.stage)
		*ls = loopState{}
		a.cursor++
		return out.Result()
	}
	if ls.stage == domain.StageAfterCond {
		ls.iterations++
	}
	ls.stage = loopTransitions[ls.stage]
	return out.Value
}

// terminate settles the run for a Reject or Resolve signal.
func (a *activation) terminate(out domain.Outcome) {
	result := out.Result()
	if out.Signal == domain.SignalReject {
		a.reject(&domain.RejectedError{Value: result})
		return
	}
	if aw, ok := result.(Awaitable); ok {
		if isNil(aw) {
			a.reject(fmt.Errorf("%w: resolved with a nil awaitable", domain.ErrInvalidStep))
			return
		}
		if err := attach(aw, a.resolve, a.reject); err != nil {
			a.reject(err)
		}
		return
	}
	a.resolve(result)
}

// suspend attaches to aw. When aw settles while Then is still running, the
// result is returned with inline set; otherwise resume is called later from
// the settling goroutine.
func (a *activation) suspend(aw Awaitable, resume func(any, error)) (any, bool, error) {
	var (
		mu       sync.Mutex
		attached bool
		fired    bool
		inline   bool
		value    any
		reason   error
	)

	settle := func(v any, err error) {
		mu.Lock()
		if fired {
			mu.Unlock()
			return
		}
		fired = true
		if !attached {
			inline = true
			value, reason = v, err
			mu.Unlock()
			return
		}
		mu.Unlock()
		resume(v, err)
	}

	if err := attach(aw,
		func(v any) { settle(v, nil) },
		func(err error) {
			if err == nil {
				err = deferred.ErrNilReason
			}
			settle(nil, err)
		},
	); err != nil {
		// A panicking Then fails the step unless it already settled it.
		settle(nil, err)
	}

	mu.Lock()
	defer mu.Unlock()
	attached = true
	return value, inline, reason
}

func (a *activation) resolve(v any) {
	if a.finish(domain.RunResolved) {
		a.out.Resolve(v)
	}
}

func (a *activation) reject(err error) {
	if a.finish(domain.RunRejected) {
		a.out.Reject(err)
	}
}

// finish reports the run as settled. It returns false if it already was.
func (a *activation) finish(status domain.RunStatus) bool {
	if !a.settled.CompareAndSwap(false, true) {
		return false
	}
	duration := time.Since(a.started)
	a.logger.Debug("run settled",
		"status", status,
		"invocations", a.invocations,
		"duration", duration,
	)
	if a.engine.hooks.OnRunSettle != nil {
		a.engine.hooks.OnRunSettle(context.Background(), &domain.RunEvent{
			EventBase: a.eventBase(domain.EventRunSettle),
			Status:    status,
			Steps:     a.invocations,
			Duration:  duration,
		})
	}
	return true
}

func (a *activation) emitStepStart(inv *invocation) {
	if a.engine.hooks.OnStepStart == nil {
		return
	}
	a.engine.hooks.OnStepStart(context.Background(), &domain.StepEvent{
		EventBase: a.eventBase(domain.EventStepStart),
		Index:     inv.index,
		Kind:      inv.kind,
	})
}

func (a *activation) settleStep(inv *invocation, out domain.Outcome, failed bool) {
	if a.engine.hooks.OnStepSettle == nil {
		return
	}
	a.engine.hooks.OnStepSettle(context.Background(), &domain.StepEvent{
		EventBase: a.eventBase(domain.EventStepSettle),
		Index:     inv.index,
		Kind:      inv.kind,
		Signal:    out.Signal,
		Async:     inv.async,
		Duration:  time.Since(inv.start),
		IsError:   failed,
	})
}

func (a *activation) eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		RunID:     a.id,
		Sequence:  a.engine.name,
	}
}

// attach registers callbacks on aw, turning a panic in Then into a
// *domain.PanicError.
func attach(aw Awaitable, onFulfilled func(any), onRejected func(error)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Value: r}
		}
	}()
	aw.Then(onFulfilled, onRejected)
	return nil
}

// isNil reports whether aw is an interface holding a nil pointer, map,
// func or chan.
func isNil(aw Awaitable) bool {
	v := reflect.ValueOf(aw)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// call invokes fn, turning a panic into a *domain.PanicError.
func call(fn StepFunc, c *Control, arg any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &domain.PanicError{Value: r}
		}
	}()
	return fn(c, arg)
}
