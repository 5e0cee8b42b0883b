package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/sequence/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed runner can hold a pipeline lock.
const DefaultLockTTL = 5 * time.Minute

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStore configures the RunStore for persistence.
func WithStore(store ports.RunStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithLocker serializes runs of the same pipeline through locker.
// A ttl of zero uses DefaultLockTTL.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(r *Runner) {
		r.Locker = locker
		r.LockTTL = ttl
	}
}
