// Package pipeline implements the per-page workflow from spec.md §4.3:
// rasterise -> preprocess -> OCR -> compose -> repack, run by a bounded
// worker pool and rejoined in order by the Assembler (§5).
//
// The pool shape is grounded on the teacher's internal/jobs.CPUWorkerPool:
// a fixed number of goroutines pulling from one shared queue gives natural
// load balancing, same as the teacher's "all workers pull from this"
// design. Unlike the teacher's WorkUnit/OnComplete job model (built for
// multi-phase LLM workflows), a page here runs its whole pipeline
// synchronously inside one worker - spec.md §4.3 prescribes a strictly
// sequential per-page pipeline, so there is no OnComplete fan-out to model.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ocrforge/pdfsandwich/internal/pdfmodel"
)

// PageJob is one unit of work submitted to the pool.
type PageJob struct {
	Page   pdfmodel.PageInfo
	Action pdfmodel.PageAction
}

// PageResult is what a worker reports back after running the full
// pipeline for one page (or failing it).
type PageResult struct {
	PageNo      int
	MergedPath  string // empty on failure
	SidecarText string
	Warning     string // non-fatal note (e.g. "[empty]" OCR, soft-failed)
	Err         error
}

// Pool runs a bounded number of goroutines over a channel of PageJob
// indices, invoking process for each, and collects one PageResult per job
// into the slice Run returns once every page is done.
// There is no shared mutable PDF object across workers (§5); each worker
// only touches the files it itself produces.
type Pool struct {
	workers int
	logger  *slog.Logger
	process func(ctx context.Context, job PageJob) PageResult

	inFlight atomic.Int32
}

// NewPool builds a Pool with the given worker count (from the job's
// `jobs` option) and a process function implementing the pipeline stages.
func NewPool(workers int, logger *slog.Logger, process func(ctx context.Context, job PageJob) PageResult) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{workers: workers, logger: logger.With("pool", "pages", "workers", workers), process: process}
}

// Run submits every job in jobs to the pool and returns all PageResults,
// one per input job, as soon as every one has been processed or the
// context is cancelled. It does not guarantee completion order - callers
// that need ordering (the Assembler) sort by PageResult.PageNo themselves,
// since §5 guarantees no output byte depends on completion order.
func (p *Pool) Run(ctx context.Context, jobs []PageJob) ([]PageResult, error) {
	results := make([]PageResult, len(jobs))
	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var mu sync.Mutex
	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			for idx := range jobCh {
				select {
				case <-gctx.Done():
					mu.Lock()
					results[idx] = PageResult{PageNo: jobs[idx].Page.PageNo, Err: gctx.Err()}
					mu.Unlock()
					continue
				default:
				}

				p.inFlight.Add(1)
				res := p.process(gctx, jobs[idx])
				p.inFlight.Add(-1)

				mu.Lock()
				results[idx] = res
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("page pool: %w", err)
	}
	return results, nil
}

// InFlight reports the number of pages currently being processed, for
// progress reporting.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }
