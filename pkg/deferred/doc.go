/*
Package deferred implements a settle-once value that completes later with
either a fulfilment value or a rejection error.

A Deferred is the return type of sequence.Run and the usual way for a step to
hand back asynchronous work. Settlement happens at most once: every later call
to Resolve or Reject is a no-op that reports false.

# Usage

	d := deferred.Go(func() (any, error) {
		return fetch(ctx)
	})

	d.Then(func(v any) {
		log.Println("fulfilled:", v)
	}, func(err error) {
		log.Println("rejected:", err)
	})

	v, err := d.Wait(ctx)
*/
package deferred
