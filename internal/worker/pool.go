package worker

import (
	"log/slog"
	"sync"

	"github.com/baharkarakas/taskboard/internal/metrics"
)

type task func()

// Pool runs fire-and-forget side work (audit writes, last-login stamps) off
// the request path.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan task
	mu     sync.RWMutex
	closed bool
}

const queueSize = 1024

func NewPool(n int) *Pool { return newPool(n, queueSize) }

func newPool(n, size int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, size)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker job panic", "err", rec)
		}
	}()
	job()
}

// Submit queues f without blocking and reports whether it was accepted. Jobs
// are dropped when the queue is full or the pool has been stopped.
func (p *Pool) Submit(f task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.WorkerDroppedJobs.Inc()
		slog.Warn("worker pool stopped, job dropped")
		return false
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return true
	default:
		metrics.WorkerDroppedJobs.Inc()
		slog.Warn("worker queue full, job dropped", "capacity", cap(p.jobs))
		return false
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
