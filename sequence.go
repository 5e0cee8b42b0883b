package sequence

import (
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/sequence/internal/runtime"
	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/aretw0/sequence/pkg/domain"
	"github.com/google/uuid"
)

// StepFunc is a unit of work. It receives the previous step's settled result
// (or the run argument for the first step) and returns its own result, which
// may be an Awaitable such as *deferred.Deferred.
type StepFunc = runtime.StepFunc

// Control lets a running step terminate the run or leave its loop.
type Control = runtime.Control

// Awaitable is a result that may suspend the run until it settles.
type Awaitable = runtime.Awaitable

// Sequence is an ordered list of steps and loops.
// It is built once and may be run any number of times, concurrently.
type Sequence struct {
	mu     sync.RWMutex
	steps  []runtime.Descriptor
	engine *runtime.Engine
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	Name   string
}

// Option defines a functional option for configuring the Sequence.
type Option func(*Sequence)

// WithLogger sets a custom structured logger for the sequence.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequence) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Sequence) {
		s.hooks = hooks
	}
}

// WithName labels logs and events of the sequence.
func WithName(name string) Option {
	return func(s *Sequence) {
		s.Name = name
	}
}

// New creates an empty Sequence.
func New(opts ...Option) *Sequence {
	s := &Sequence{}
	for _, opt := range opts {
		opt(s)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime)
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.Name != "" {
		s.logger = s.logger.With("sequence", s.Name)
	}

	s.engine = runtime.NewEngine(
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithName(s.Name),
	)
	return s
}

// Add appends a step. A nil fn is accepted and fails the run that reaches it
// with domain.ErrInvalidStep.
func (s *Sequence) Add(fn StepFunc) *Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, runtime.Simple(fn))
	return s
}

// Loop appends a loop. cond is called first with the incoming argument; body
// is called with cond's result; then cond is called again with the same
// incoming argument, and so on. The loop ends when cond or body calls
// ExitLoop, and its result is the ExitLoop argument or, without one, the
// exiting function's own result.
func (s *Sequence) Loop(cond, body StepFunc) *Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, runtime.Loop(cond, body))
	return s
}

// Len returns the number of descriptors in the sequence.
func (s *Sequence) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

// Run starts the sequence with arg and returns a Deferred that settles once
// with the run result. An empty sequence resolves with arg.
func (s *Sequence) Run(arg any) *deferred.Deferred {
	return s.RunWithID(uuid.NewString(), arg)
}

// RunWithID is Run with a caller-chosen run identifier, reported to hooks,
// logs and Control.RunID.
func (s *Sequence) RunWithID(runID string, arg any) *deferred.Deferred {
	s.mu.RLock()
	steps := make([]runtime.Descriptor, len(s.steps))
	copy(steps, s.steps)
	s.mu.RUnlock()

	return s.engine.Run(runID, steps, arg)
}
