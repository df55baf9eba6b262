package background

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Pool runs named fire-and-forget jobs on a bounded set of workers. Jobs are
// detached from the submitting request's lifetime: they run under the pool's
// own context and are only cancelled when the pool shuts down.
type Pool struct {
	jobs    chan job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	onDepth func(int)
}

type job struct {
	name string
	run  func(ctx context.Context)
}

func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan job, queueDepth),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// SetDepthGauge registers a callback invoked with the queue depth on every
// submit and completion.
func (p *Pool) SetDepthGauge(fn func(depth int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDepth = fn
}

// Submit enqueues a job. Returns false when the pool is shut down or the
// queue is full; the caller treats that as a lost best-effort task.
func (p *Pool) Submit(name string, run func(ctx context.Context)) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	select {
	case p.jobs <- job{name: name, run: run}:
		p.reportDepth()
		return true
	default:
		log.Printf("background: queue full, dropping job %s", name)
		return false
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case j := <-p.jobs:
			p.runJob(j)
			p.reportDepth()
		}
	}
}

func (p *Pool) runJob(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("background: job %s panicked: %v", j.name, r)
		}
	}()
	j.run(p.ctx)
}

func (p *Pool) reportDepth() {
	p.mu.Lock()
	fn := p.onDepth
	p.mu.Unlock()
	if fn != nil {
		fn(len(p.jobs))
	}
}

// Close stops accepting new jobs and waits up to timeout for workers to go
// idle before cancelling whatever is still running.
func (p *Pool) Close(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.drain(timeout)
		p.cancel()
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout + time.Second):
		p.cancel()
		return errors.New("background pool drain timed out")
	}
}

func (p *Pool) drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(p.jobs) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}
