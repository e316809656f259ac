// Package worker bounds how many scans run at once.
package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when every worker is busy and the queue is full
	ErrQueueFull = errors.New("scan queue is full")
	// ErrPoolClosed is returned after Shutdown
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Task is a unit of work executed on a pool worker
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// Pool runs tasks on a fixed number of workers behind a bounded queue
type Pool struct {
	workers    int
	jobQueue   chan job
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	startOnce  sync.Once
	closeOnce  sync.Once
}

// NewPool creates a pool with the given number of workers and queue depth
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan job, queueDepth),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers. Calling it again is a no-op.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case j := <-p.jobQueue:
			// The caller stopped waiting while the job sat in the queue
			if err := j.ctx.Err(); err != nil {
				j.done <- err
				continue
			}
			j.done <- j.task(j.ctx)
		}
	}
}

// Run queues task and waits for it to finish. It fails fast with ErrQueueFull
// instead of blocking when no worker or queue slot is free.
func (p *Pool) Run(ctx context.Context, task Task) error {
	j := job{ctx: ctx, task: task, done: make(chan error, 1)}

	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobQueue <- j:
	default:
		return ErrQueueFull
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Pending returns the number of queued tasks not yet picked up by a worker
func (p *Pool) Pending() int {
	return len(p.jobQueue)
}

// Shutdown stops the workers once their current task returns
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.cancelFunc()
		p.wg.Wait()
	})
}
