// Package pipeline generalizes the channel-based worker pool used to
// fan fingerprinting work out across goroutines: W workers read jobs
// from a shared input channel, a failed job is logged, and callers get
// back one Result per job, successful or not. The track-mode scan
// fingerprints every file through this pool; the album scanner does
// not use it and fingerprints each album's tracks one after another.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"duperscooper/internal/logx"
)

// ErrNotRun marks a job that was never submitted because the context
// was cancelled before its turn came up.
var ErrNotRun = errors.New("pipeline: cancelled before this job started")

// Job is one unit of work: a path plus whatever index the caller
// needs to reassemble results in order.
type Job struct {
	Path  string
	Index int
}

// Result is the outcome of running one Job: either Value is populated
// or Err is non-nil, never both.
type Result struct {
	Index int
	Value interface{}
	Err   error
}

// Run fans jobs out across workers goroutines, applying fn to each.
// It checks ctx before submitting each job and stops submitting new
// work once ctx is done, so cancellation takes effect as each
// in-flight job completes and frees a worker; in-flight jobs are
// allowed to finish. Results are returned in the same order as jobs
// regardless of completion order.
func Run(ctx context.Context, jobs []Job, workers int, fn func(context.Context, Job) (interface{}, error)) []Result {
	if workers <= 0 {
		workers = 1
	}

	input := make(chan Job)
	results := make([]Result, len(jobs))
	for i := range results {
		results[i] = Result{Index: i, Err: ErrNotRun}
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			logger := logx.NewWorker()
			defer logger.Flush()
			for job := range input {
				logger.Flush()
				value, err := fn(ctx, job)
				if err != nil {
					logger.Warning.Printf("pipeline: job %s failed: %v", job.Path, err)
				}
				results[job.Index] = Result{Index: job.Index, Value: value, Err: err}
			}
		}()
	}

	go func() {
		defer close(input)
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case input <- job:
			}
		}
	}()

	wg.Wait()
	return results
}
