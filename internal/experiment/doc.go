// Package experiment sequences a warmup and a series of concurrency sweeps
// against the checkout workflow, settles the target between sweeps and
// selects the best performing concurrency level.
package experiment
