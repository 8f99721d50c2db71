// Package runner drives a single concurrency sweep.
//
// A sweep runs a fixed number of workflow instances with exactly N worker
// goroutines that pull instance indices from one unbuffered channel:
//
//	r := runner.New(runner.Options{
//		Executor:  exec,
//		Collector: metrics.NewCollector(),
//	})
//	res, err := r.Run(ctx, 50, 200000)
//
// Run resets the shared [metrics.Collector], dispatches indices in order,
// and waits for every worker to exit before reading the final snapshot, so
// the returned [Result] always reflects all dispatched instances.
//
// # Pacing
//
// RatePerSecond limits how fast instances are started. Pacing happens in
// the dispatcher, not in the workers, so the limit holds regardless of
// concurrency.
//
// # Middleware
//
// [WithLogging] wraps an [Executor] to report failed outcomes.
package runner
