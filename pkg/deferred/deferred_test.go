package deferred_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/sequence/pkg/deferred"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferred_SettlesOnce(t *testing.T) {
	d := deferred.New()
	assert.False(t, d.Settled())

	_, err := d.Result()
	assert.ErrorIs(t, err, deferred.ErrPending)

	assert.True(t, d.Resolve(1))
	assert.False(t, d.Resolve(2), "second resolve must be a no-op")
	assert.False(t, d.Reject(errors.New("late")), "late reject must be a no-op")

	v, err := d.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestDeferred_RejectNilReason(t *testing.T) {
	d := deferred.New()
	d.Reject(nil)

	_, err := d.Result()
	assert.ErrorIs(t, err, deferred.ErrNilReason)
}

func TestDeferred_Then(t *testing.T) {
	t.Run("AlreadySettled", func(t *testing.T) {
		var got any
		deferred.Resolved("ok").Then(func(v any) { got = v }, nil)
		assert.Equal(t, "ok", got, "callback runs before Then returns")
	})

	t.Run("Pending", func(t *testing.T) {
		d := deferred.New()
		var fulfilled, rejected int
		d.Then(func(any) { fulfilled++ }, func(error) { rejected++ })
		d.Then(func(any) { fulfilled++ }, func(error) { rejected++ })
		assert.Zero(t, fulfilled)

		d.Resolve(nil)
		d.Resolve(nil)
		assert.Equal(t, 2, fulfilled)
		assert.Zero(t, rejected)
	})

	t.Run("Rejected", func(t *testing.T) {
		boom := errors.New("boom")
		var got error
		deferred.Rejected(boom).Then(nil, func(err error) { got = err })
		assert.ErrorIs(t, got, boom)
	})
}

func TestDeferred_Go(t *testing.T) {
	d := deferred.Go(func() (any, error) {
		time.Sleep(5 * time.Millisecond)
		return 42, nil
	})

	v, err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = deferred.Go(func() (any, error) { return nil, boom }).Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDeferred_WaitContext(t *testing.T) {
	d := deferred.New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, d.Settled(), "giving up waiting must not settle the deferred")
}

func TestDeferred_ConcurrentSettle(t *testing.T) {
	d := deferred.New()
	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins <- d.Resolve(i)
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for w := range wins {
		if w {
			count++
		}
	}
	assert.Equal(t, 1, count)
	<-d.Done()
}
