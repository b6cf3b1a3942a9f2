// Package workerpool provides the bounded submit(job) -> future<result>
// abstraction Chain.verifyInputs uses to parallelize per-input script
// verification, grounded on golang.org/x/sync/errgroup the way
// lightningnetwork-lnd fans work out across its subsystems.
package workerpool

import (
	"context"

	"github.com/bchcore/node/internal/logs"
	"golang.org/x/sync/errgroup"
)

var log = logs.Get(logs.SubsystemTags.WKRP)

// Pool bounds concurrent job execution to size goroutines: Submit gates
// each job on a buffered semaphore channel, and Run sets the same limit on
// its errgroup.Group with SetLimit.
type Pool struct {
	size int
	sem  chan struct{}
}

// New returns a Pool that runs at most size jobs concurrently. size <= 0
// means unbounded.
func New(size int) *Pool {
	p := &Pool{size: size}
	if size > 0 {
		p.sem = make(chan struct{}, size)
	}
	return p
}

// Future is the handle returned by Submit; Wait blocks until the job
// completes and returns its error.
type Future struct {
	done chan struct{}
	err  error
}

// Wait blocks until the submitted job completes, returning its error.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// Submit schedules job to run, respecting the pool's concurrency bound,
// and returns a Future for its result.
func (p *Pool) Submit(job func() error) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() { <-p.sem }()
		}
		defer close(f.done)
		f.err = job()
	}()
	return f
}

// Run executes every job in jobs concurrently (bounded by Pool.size) and
// returns the first error encountered, the way Chain.verifyInputs awaits
// joinAll across one per-input job per spec.md §5's concurrency model.
func (p *Pool) Run(ctx context.Context, jobs []func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	if p.size > 0 {
		g.SetLimit(p.size)
	}
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			return job(ctx)
		})
	}
	return g.Wait()
}
