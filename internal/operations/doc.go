// Package operations contains the pipeline engine: the fixed ordered stage
// sequence that takes an upload job from raw file to published report, with
// per-step accounting on every run.
//
// A job's stages always execute sequentially in a single goroutine; the first
// stage error aborts the run. Concurrency across jobs is owned by the task
// queue, not by this package.
package operations
