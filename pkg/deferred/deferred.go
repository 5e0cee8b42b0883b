package deferred

import (
	"context"
	"sync"
)

// Deferred is a value that settles once, either fulfilled or rejected.
// Safe for concurrent use.
type Deferred struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     any
	err       error
	callbacks []func()
}

// New creates a pending Deferred.
func New() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolved creates a Deferred already fulfilled with v.
func Resolved(v any) *Deferred {
	d := New()
	d.Resolve(v)
	return d
}

// Rejected creates a Deferred already rejected with err.
func Rejected(err error) *Deferred {
	d := New()
	d.Reject(err)
	return d
}

// Go runs fn on a new goroutine and settles the Deferred with its result.
func Go(fn func() (any, error)) *Deferred {
	d := New()
	go func() {
		v, err := fn()
		if err != nil {
			d.Reject(err)
			return
		}
		d.Resolve(v)
	}()
	return d
}

// Resolve fulfils the Deferred with v.
// It reports false if the Deferred was already settled.
func (d *Deferred) Resolve(v any) bool {
	return d.settle(v, nil)
}

// Reject rejects the Deferred with err. A nil err is replaced by ErrNilReason.
// It reports false if the Deferred was already settled.
func (d *Deferred) Reject(err error) bool {
	if err == nil {
		err = ErrNilReason
	}
	return d.settle(nil, err)
}

func (d *Deferred) settle(v any, err error) bool {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return false
	}
	d.settled = true
	d.value, d.err = v, err
	callbacks := d.callbacks
	d.callbacks = nil
	close(d.done)
	d.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return true
}

// Then registers completion callbacks. Exactly one of them is called, once.
// When the Deferred is already settled the callback runs before Then
// returns; otherwise it runs on the goroutine that settles it.
// Either callback may be nil.
func (d *Deferred) Then(onFulfilled func(any), onRejected func(error)) {
	cb := func() {
		if d.err != nil {
			if onRejected != nil {
				onRejected(d.err)
			}
			return
		}
		if onFulfilled != nil {
			onFulfilled(d.value)
		}
	}

	d.mu.Lock()
	if !d.settled {
		d.callbacks = append(d.callbacks, cb)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	cb()
}

// Done returns a channel that is closed once the Deferred settles.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether the Deferred has settled.
func (d *Deferred) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Result returns the settled value and error.
// It returns ErrPending if the Deferred has not settled yet.
func (d *Deferred) Result() (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.settled {
		return nil, ErrPending
	}
	return d.value, d.err
}

// Wait blocks until the Deferred settles or ctx is done.
// Giving up on ctx does not affect the Deferred itself.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
