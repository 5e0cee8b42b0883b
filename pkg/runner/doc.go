/*
Package runner starts runs of named sequences and records their outcome.

It acts as the bridge between sequences and the outside world: every run gets
an ID, a RunRecord persisted through a ports.RunStore, and optionally a
distributed lock so a pipeline runs one activation at a time across replicas.

# Usage

	r := runner.NewRunner(
		runner.WithStore(redis.New("localhost:6379", "", 0)),
		runner.WithLogger(logger),
	)
	r.Register("checkout", seq)

	record, err := r.Run(ctx, "checkout", "cart-42")
*/
package runner
