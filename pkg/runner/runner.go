package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/sequence"
	"github.com/aretw0/sequence/pkg/adapters/memory"
	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/aretw0/sequence/pkg/domain"
	"github.com/aretw0/sequence/pkg/ports"
	"github.com/google/uuid"
)

// Runner starts runs of registered sequences and records them.
type Runner struct {
	// Store is the persistence adapter for run records.
	// If nil, an in-memory store is used.
	Store ports.RunStore

	// Locker, when set, allows one run per pipeline at a time.
	Locker  ports.DistributedLocker
	LockTTL time.Duration

	// Logger is used for run lifecycle logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	mu        sync.RWMutex
	sequences map[string]*sequence.Sequence
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		sequences: make(map[string]*sequence.Sequence),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.Store == nil {
		r.Store = memory.NewStore()
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.LockTTL <= 0 {
		r.LockTTL = DefaultLockTTL
	}
	return r
}

// Register makes seq available under name, replacing any previous one.
func (r *Runner) Register(name string, seq *sequence.Sequence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences[name] = seq
}

// Names returns the registered pipeline names, sorted.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sequences))
	for name := range r.sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins a run of the named pipeline and returns its pending record.
// The returned Deferred settles like the run itself, once the final record
// has been saved. ctx bounds waiting for the pipeline lock and the initial
// save; it does not cancel the run.
func (r *Runner) Start(ctx context.Context, name string, arg any) (*domain.RunRecord, *deferred.Deferred, error) {
	r.mu.RLock()
	seq, ok := r.sequences[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrPipelineNotFound, name)
	}

	unlock := ports.UnlockFunc(func(context.Context) error { return nil })
	if r.Locker != nil {
		var err error
		unlock, err = r.Locker.Lock(ctx, name, r.LockTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to lock pipeline %s: %w", name, err)
		}
	}

	record := &domain.RunRecord{
		ID:        uuid.NewString(),
		Pipeline:  name,
		Status:    domain.RunPending,
		Input:     arg,
		StartedAt: time.Now().UTC(),
	}
	if err := r.Store.Save(ctx, record); err != nil {
		_ = unlock(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("failed to save run %s: %w", record.ID, err)
	}

	logger := r.Logger.With("run_id", record.ID, "pipeline", name)
	logger.Info("run started")

	bg := context.WithoutCancel(ctx)
	final := *record
	out := deferred.New()
	seq.RunWithID(record.ID, arg).Then(
		func(v any) {
			final.Status, final.Result = domain.RunResolved, v
			r.finish(bg, logger, &final, unlock)
			out.Resolve(v)
		},
		func(err error) {
			final.Status, final.Error = domain.RunRejected, err.Error()
			r.finish(bg, logger, &final, unlock)
			out.Reject(err)
		},
	)

	return record, out, nil
}

// Run starts the named pipeline and waits for its final record.
// A rejected run is not an error here; it is reported in the record.
// When ctx is done first, Run stops waiting and returns ctx's error; the
// run itself goes on and its record is still saved when it settles.
func (r *Runner) Run(ctx context.Context, name string, arg any) (*domain.RunRecord, error) {
	record, d, err := r.Start(ctx, name, arg)
	if err != nil {
		return nil, err
	}
	if _, err := d.Wait(ctx); err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("stopped waiting for run %s: %w", record.ID, ctx.Err())
	}
	return r.Store.Load(ctx, record.ID)
}

// Get returns the record of a run.
func (r *Runner) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return r.Store.Load(ctx, runID)
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, record *domain.RunRecord, unlock ports.UnlockFunc) {
	record.FinishedAt = time.Now().UTC()
	if err := r.Store.Save(ctx, record); err != nil {
		logger.Warn("failed to save run record", "error", err)
	}
	if err := unlock(ctx); err != nil {
		logger.Warn("failed to release pipeline lock", "error", err)
	}
	logger.Info("run settled",
		"status", record.Status,
		"duration", record.FinishedAt.Sub(record.StartedAt),
	)
}
