package sequence_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/sequence"
	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/aretw0/sequence/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, d *deferred.Deferred) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := d.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "run did not settle")
	return v, err
}

func add(n int) sequence.StepFunc {
	return func(c *sequence.Control, arg any) (any, error) {
		return arg.(int) + n, nil
	}
}

func later(v any, err error) *deferred.Deferred {
	return deferred.Go(func() (any, error) {
		time.Sleep(2 * time.Millisecond)
		return v, err
	})
}

func TestSequence_Composition(t *testing.T) {
	seq := sequence.New()
	seq.Add(add(1))
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		return arg.(int) * 2, nil
	})
	seq.Add(add(-3))

	v, err := wait(t, seq.Run(5))
	require.NoError(t, err)
	assert.Equal(t, (5+1)*2-3, v)
}

func TestSequence_SynchronousRunSettlesBeforeReturning(t *testing.T) {
	seq := sequence.New().Add(add(1))
	d := seq.Run(1)
	assert.True(t, d.Settled())
}

func TestSequence_Empty(t *testing.T) {
	v, err := wait(t, sequence.New().Run("untouched"))
	require.NoError(t, err)
	assert.Equal(t, "untouched", v)
}

func TestSequence_DeferredSteps(t *testing.T) {
	seq := sequence.New()
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		return later(arg.(int)+1, nil), nil
	})
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		return deferred.Resolved(arg.(int) * 10), nil
	})
	seq.Add(add(1))

	d := seq.Run(1)
	assert.False(t, d.Settled(), "run must stay pending while a step is pending")

	v, err := wait(t, d)
	require.NoError(t, err)
	assert.Equal(t, 21, v)
}

func TestSequence_EarlyResolve(t *testing.T) {
	var cCalled atomic.Bool
	seq := sequence.New()
	seq.Add(add(1))
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		c.Resolve(42)
		return 99, nil
	})
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		cCalled.Store(true)
		return arg, nil
	})

	v, err := wait(t, seq.Run(0))
	require.NoError(t, err)
	assert.Equal(t, 42, v, "override wins over the natural return")
	assert.False(t, cCalled.Load())
}

func TestSequence_ResolveWithoutOverride(t *testing.T) {
	t.Run("PlainValue", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Resolve()
			return 99, nil
		}).Add(add(1))

		v, err := wait(t, seq.Run(0))
		require.NoError(t, err)
		assert.Equal(t, 99, v)
	})

	t.Run("NilOverride", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Resolve(nil)
			return 99, nil
		})

		v, err := wait(t, seq.Run(0))
		require.NoError(t, err)
		assert.Nil(t, v, "an explicit nil is still an override")
	})

	t.Run("AdoptsDeferred", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Resolve()
			return later(7, nil), nil
		})

		v, err := wait(t, seq.Run(0))
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})
}

func TestSequence_Rejection(t *testing.T) {
	boom := errors.New("boom")

	t.Run("DeferredRejection", func(t *testing.T) {
		var after atomic.Bool
		seq := sequence.New()
		seq.Add(add(1))
		seq.Add(func(c *sequence.Control, arg any) (any, error) {
			return later(nil, boom), nil
		})
		seq.Add(func(c *sequence.Control, arg any) (any, error) {
			after.Store(true)
			return arg, nil
		})

		_, err := wait(t, seq.Run(0))
		assert.Same(t, boom, err, "rejection reason propagates unchanged")
		assert.False(t, after.Load())
	})

	t.Run("StepError", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			return nil, boom
		})

		_, err := wait(t, seq.Run(0))
		assert.Same(t, boom, err)
	})

	t.Run("Panic", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			panic(boom)
		})

		_, err := wait(t, seq.Run(0))
		var perr *domain.PanicError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ExplicitRejectWithOverride", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Reject("bad input")
			return 99, nil
		})

		_, err := wait(t, seq.Run(0))
		var rerr *domain.RejectedError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "bad input", rerr.Value)
	})

	t.Run("ExplicitRejectNaturalValue", func(t *testing.T) {
		seq := sequence.New().Add(add(1)).Add(func(c *sequence.Control, arg any) (any, error) {
			c.Reject()
			return arg, nil
		})

		_, err := wait(t, seq.Run(1))
		var rerr *domain.RejectedError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, 2, rerr.Value)
	})

	t.Run("ExplicitRejectWithError", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Reject(boom)
			return nil, nil
		})

		_, err := wait(t, seq.Run(0))
		assert.ErrorIs(t, err, boom)
	})
}

func TestSequence_SettlesOnce(t *testing.T) {
	t.Run("ResolveThenRejectingDeferred", func(t *testing.T) {
		inner := deferred.New()
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Resolve(1)
			return inner, nil
		})

		d := seq.Run(0)
		inner.Reject(errors.New("late"))

		v, err := wait(t, d)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("ResolveThenError", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Resolve(1)
			return nil, errors.New("thrown after resolve")
		})

		v, err := wait(t, seq.Run(0))
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("LateControlCallIgnored", func(t *testing.T) {
		var saved *sequence.Control
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			saved = c
			return "done", nil
		})

		v, err := wait(t, seq.Run(0))
		require.NoError(t, err)
		saved.Reject("too late")
		assert.Equal(t, "done", v)
	})
}

func TestSequence_ConflictingSignals(t *testing.T) {
	seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
		c.Resolve(1)
		c.Reject(2)
		return nil, nil
	})

	_, err := wait(t, seq.Run(0))
	assert.ErrorIs(t, err, domain.ErrConflictingSignals)
}

func TestSequence_ExitLoopOutsideLoop(t *testing.T) {
	seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
		c.ExitLoop("nope")
		return arg, nil
	})

	_, err := wait(t, seq.Run(0))
	assert.ErrorIs(t, err, domain.ErrExitOutsideLoop)
}

func TestSequence_InvalidStep(t *testing.T) {
	t.Run("NilStep", func(t *testing.T) {
		var called atomic.Bool
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			called.Store(true)
			return arg, nil
		}).Add(nil)

		_, err := wait(t, seq.Run(0))
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
		assert.True(t, called.Load(), "descriptors before the invalid one still run")
	})

	t.Run("NilLoopBody", func(t *testing.T) {
		seq := sequence.New().Loop(add(1), nil)

		_, err := wait(t, seq.Run(0))
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
	})

	t.Run("NilDeferred", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			var d *deferred.Deferred
			return d, nil
		})

		var d *deferred.Deferred
		require.NotPanics(t, func() { d = seq.Run(0) })
		_, err := wait(t, d)
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
	})

	t.Run("ResolveWithNilDeferred", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			c.Resolve((*deferred.Deferred)(nil))
			return arg, nil
		})

		_, err := wait(t, seq.Run(0))
		assert.ErrorIs(t, err, domain.ErrInvalidStep)
	})

	t.Run("PanickingAwaitable", func(t *testing.T) {
		seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
			return brokenAwaitable{}, nil
		})

		var d *deferred.Deferred
		require.NotPanics(t, func() { d = seq.Run(0) })
		_, err := wait(t, d)

		var perr *domain.PanicError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "cannot attach", perr.Value)
	})
}

// brokenAwaitable panics when a continuation is attached.
type brokenAwaitable struct{}

func (brokenAwaitable) Then(func(any), func(error)) {
	panic("cannot attach")
}

func TestSequence_Loop(t *testing.T) {
	var condCalls, bodyCalls int
	seq := sequence.New()
	seq.Loop(
		func(c *sequence.Control, arg any) (any, error) {
			condCalls++
			return arg, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			bodyCalls++
			if bodyCalls == 2 {
				c.ExitLoop("done")
			}
			return "ignored", nil
		},
	)

	v, err := wait(t, seq.Run("x"))
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 2, condCalls)
	assert.Equal(t, 2, bodyCalls)
}

func TestSequence_LoopCondInputInvariance(t *testing.T) {
	var condArgs []any
	counter := 0
	seq := sequence.New()
	seq.Loop(
		func(c *sequence.Control, arg any) (any, error) {
			condArgs = append(condArgs, arg)
			counter++
			if counter > 3 {
				c.ExitLoop(counter)
			}
			return arg.(int) + counter, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			return arg.(int) * 100, nil
		},
	)
	seq.Add(add(1000))

	v, err := wait(t, seq.Run(7))
	require.NoError(t, err)
	assert.Equal(t, 1004, v)
	assert.Equal(t, []any{7, 7, 7, 7}, condArgs, "cond never sees the body's output")
}

func TestSequence_LoopExitWithoutOverride(t *testing.T) {
	seq := sequence.New().Loop(
		func(c *sequence.Control, arg any) (any, error) {
			c.ExitLoop()
			return arg.(int) * 3, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			t.Fatal("body must not run")
			return nil, nil
		},
	)

	v, err := wait(t, seq.Run(2))
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestSequence_LoopAsync(t *testing.T) {
	var iterations atomic.Int32
	seq := sequence.New()
	seq.Loop(
		func(c *sequence.Control, arg any) (any, error) {
			return later(arg, nil), nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			return deferred.Go(func() (any, error) {
				if iterations.Add(1) == 3 {
					c.ExitLoop("exited while pending")
				}
				return nil, nil
			}), nil
		},
	)

	v, err := wait(t, seq.Run("x"))
	require.NoError(t, err)
	assert.Equal(t, "exited while pending", v)
	assert.EqualValues(t, 3, iterations.Load())
}

func TestSequence_LoopGlobalTermination(t *testing.T) {
	var after atomic.Bool
	seq := sequence.New()
	seq.Loop(
		func(c *sequence.Control, arg any) (any, error) {
			return arg, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			c.Resolve("whole run")
			return nil, nil
		},
	)
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		after.Store(true)
		return arg, nil
	})

	v, err := wait(t, seq.Run(0))
	require.NoError(t, err)
	assert.Equal(t, "whole run", v)
	assert.False(t, after.Load())
}

func TestSequence_LoopManySynchronousIterations(t *testing.T) {
	const limit = 200000
	count := 0
	seq := sequence.New().Loop(
		func(c *sequence.Control, arg any) (any, error) {
			count++
			if count == limit {
				c.ExitLoop(count)
			}
			return nil, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			return nil, nil
		},
	)
	seq.Add(add(1))

	v, err := wait(t, seq.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, limit+1, v)
	assert.Equal(t, 2, seq.Len())
}

func TestSequence_LoopStateResetsBetweenRuns(t *testing.T) {
	var mu sync.Mutex
	var firstCalls []string
	seq := sequence.New().Loop(
		func(c *sequence.Control, arg any) (any, error) {
			mu.Lock()
			firstCalls = append(firstCalls, "cond")
			mu.Unlock()
			return arg, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			mu.Lock()
			firstCalls = append(firstCalls, "body")
			mu.Unlock()
			c.ExitLoop(arg)
			return nil, nil
		},
	)

	for i := 0; i < 2; i++ {
		v, err := wait(t, seq.Run(i))
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, []string{"cond", "body", "cond", "body"}, firstCalls)
}

func TestSequence_LoopIteration(t *testing.T) {
	var condSeen, bodySeen []int
	seq := sequence.New().
		Add(func(c *sequence.Control, arg any) (any, error) {
			assert.Zero(t, c.Iteration())
			return arg, nil
		}).
		Loop(
			func(c *sequence.Control, arg any) (any, error) {
				condSeen = append(condSeen, c.Iteration())
				if c.Iteration() == 3 {
					c.ExitLoop()
				}
				return arg, nil
			},
			func(c *sequence.Control, arg any) (any, error) {
				bodySeen = append(bodySeen, c.Iteration())
				return nil, nil
			},
		)

	for i := 0; i < 2; i++ {
		condSeen, bodySeen = nil, nil
		_, err := wait(t, seq.Run(0))
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3}, condSeen)
		assert.Equal(t, []int{0, 1, 2}, bodySeen)
	}
}

func TestSequence_LoopIterationRestartsAfterAbortedRun(t *testing.T) {
	abort := true
	bodyCalls := 0
	seq := sequence.New().Loop(
		func(c *sequence.Control, arg any) (any, error) {
			if c.Iteration() == 3 {
				c.ExitLoop()
			}
			return arg, nil
		},
		func(c *sequence.Control, arg any) (any, error) {
			bodyCalls++
			if abort && bodyCalls == 2 {
				c.Reject("abort")
			}
			return nil, nil
		},
	)

	_, err := wait(t, seq.RunWithID("r1", nil))
	require.Error(t, err)

	abort, bodyCalls = false, 0
	_, err = wait(t, seq.RunWithID("r1", nil))
	require.NoError(t, err)
	assert.Equal(t, 3, bodyCalls)
}

func TestSequence_ConcurrentRuns(t *testing.T) {
	seq := sequence.New()
	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		return later(arg.(int)*2, nil), nil
	})
	seq.Add(add(1))

	var wg sync.WaitGroup
	results := make([]any, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := seq.Run(i).Wait(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		assert.Equal(t, i*2+1, v)
	}
}

func TestSequence_AddAfterRunDoesNotAffectInFlightRun(t *testing.T) {
	gate := deferred.New()
	seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
		return gate, nil
	})

	d := seq.Run(nil)
	seq.Add(add(1))
	gate.Resolve(1)

	v, err := wait(t, d)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = wait(t, seq.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestSequence_RunWithID(t *testing.T) {
	var seen string
	seq := sequence.New().Add(func(c *sequence.Control, arg any) (any, error) {
		seen = c.RunID()
		return arg, nil
	})

	_, err := wait(t, seq.RunWithID("run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, "run-1", seen)

	_, err = wait(t, seq.Run(nil))
	require.NoError(t, err)
	assert.NotEqual(t, "run-1", seen)
	assert.NotEmpty(t, seen)
}
