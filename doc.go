/*
Package sequence runs a list of steps one after another, feeding each step
the settled result of the previous one.

A step may return a plain value or a deferred value (any Awaitable, such as
*deferred.Deferred); the sequence waits for deferred values before moving on.
Any step may end the whole run early through its Control, and loops repeat a
condition step and a body step until one of them exits the loop.

# Concept

Every step invocation ends with exactly one outcome:

  - Continue: the result flows to the next step.
  - Resolve: the run resolves now, with the Resolve argument or the step's result.
  - Reject: the run rejects now with a *domain.RejectedError.
  - ExitLoop: the enclosing loop ends, its result flows to the next step.

A returned error, a panic or a rejected Awaitable rejects the run with that
error. The Deferred returned by Run settles exactly once.

# Usage

	seq := sequence.New(sequence.WithName("checkout"))

	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		return lookupCart(arg.(string))
	})

	seq.Add(func(c *sequence.Control, arg any) (any, error) {
		cart := arg.(*Cart)
		if cart.Empty() {
			c.Resolve("nothing to do")
			return nil, nil
		}
		return deferred.Go(func() (any, error) {
			return charge(cart)
		}), nil
	})

	result, err := seq.Run("cart-42").Wait(ctx)

# Loops

The condition of a loop is always called with the argument the loop was
entered with; the body is called with the latest condition result.

	seq.Loop(
		func(c *sequence.Control, arg any) (any, error) {
			page, err := queue.Next()
			if page == nil {
				c.ExitLoop(arg)
			}
			return page, err
		},
		func(c *sequence.Control, page any) (any, error) {
			return deferred.Go(func() (any, error) { return nil, process(page) }), nil
		},
	)
*/
package sequence
