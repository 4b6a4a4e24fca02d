package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
)

func TestPoolRunProcessesEveryJob(t *testing.T) {
	jobs := make([]PageJob, 10)
	for i := range jobs {
		jobs[i] = PageJob{Page: pdfmodel.PageInfo{PageNo: i}}
	}

	var seen atomic.Int32
	pool := NewPool(3, nil, func(ctx context.Context, job PageJob) PageResult {
		seen.Add(1)
		return PageResult{PageNo: job.Page.PageNo, MergedPath: "ok"}
	})

	results, err := pool.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	if int(seen.Load()) != len(jobs) {
		t.Errorf("expected every job processed, got %d", seen.Load())
	}
	for i, res := range results {
		if res.PageNo != i || res.MergedPath != "ok" {
			t.Errorf("result %d malformed: %+v", i, res)
		}
	}
}

func TestPoolRunSurvivesAPageError(t *testing.T) {
	jobs := []PageJob{
		{Page: pdfmodel.PageInfo{PageNo: 0}},
		{Page: pdfmodel.PageInfo{PageNo: 1}},
	}
	wantErr := errors.New("boom")

	pool := NewPool(2, nil, func(ctx context.Context, job PageJob) PageResult {
		if job.Page.PageNo == 1 {
			return PageResult{PageNo: 1, Err: wantErr}
		}
		return PageResult{PageNo: 0, MergedPath: "ok"}
	})

	results, err := pool.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("pool.Run itself should not fail on a single page error: %v", err)
	}
	if results[1].Err == nil {
		t.Error("expected page 1's result to carry its error")
	}
	if results[0].Err != nil {
		t.Errorf("page 0 should be unaffected by page 1's failure, got %v", results[0].Err)
	}
}

func TestPoolRunHonorsCancellation(t *testing.T) {
	jobs := make([]PageJob, 20)
	for i := range jobs {
		jobs[i] = PageJob{Page: pdfmodel.PageInfo{PageNo: i}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(2, nil, func(ctx context.Context, job PageJob) PageResult {
		time.Sleep(time.Millisecond)
		return PageResult{PageNo: job.Page.PageNo, MergedPath: "ok"}
	})

	results, _ := pool.Run(ctx, jobs)
	var cancelled int
	for _, res := range results {
		if res.Err != nil {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected at least some jobs to observe the already-cancelled context")
	}
}

func TestPoolDefaultsWorkersToOne(t *testing.T) {
	pool := NewPool(0, nil, func(ctx context.Context, job PageJob) PageResult {
		return PageResult{PageNo: job.Page.PageNo}
	})
	if pool.workers != 1 {
		t.Errorf("expected workers to default to 1, got %d", pool.workers)
	}
}
