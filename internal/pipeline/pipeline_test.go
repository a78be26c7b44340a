package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReturnsResultsInOrder(t *testing.T) {
	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = Job{Path: "file", Index: i}
	}

	results := Run(context.Background(), jobs, 4, func(ctx context.Context, j Job) (interface{}, error) {
		return j.Index * 2, nil
	})

	require.Len(t, results, 10)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i*2, r.Value)
	}
}

func TestRunCountsFailures(t *testing.T) {
	jobs := []Job{{Path: "ok", Index: 0}, {Path: "bad", Index: 1}}

	results := Run(context.Background(), jobs, 2, func(ctx context.Context, j Job) (interface{}, error) {
		if j.Path == "bad" {
			return nil, errors.New("boom")
		}
		return "done", nil
	})

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestRunStopsSubmittingAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Path: "a", Index: 0}, {Path: "b", Index: 1}}
	results := Run(ctx, jobs, 1, func(ctx context.Context, j Job) (interface{}, error) {
		return "ran", nil
	})

	// With the context already cancelled, at least one job should never
	// have been submitted.
	notRun := 0
	for _, r := range results {
		if errors.Is(r.Err, ErrNotRun) {
			notRun++
		}
	}
	assert.Greater(t, notRun, 0)
}
