// Package worker runs background units of work with a bounded number of
// concurrent workers.
package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"WooWithBizimHesap/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Its error is logged; it never stops the pool.
type Task func(ctx context.Context) error

type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	group   errgroup.Group
	pending sync.WaitGroup
	logger  *logging.Logger
}

// New starts a pool of size workers whose tasks run under ctx.
func New(ctx context.Context, size int, logger *logging.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{ctx: ctx, cancel: cancel, logger: logger}
	p.group.SetLimit(size)
	return p
}

// Submit queues task and returns without waiting for a free worker.
func (p *Pool) Submit(task Task) {
	p.SubmitAfter(0, task)
}

// SubmitAfter queues task to start no earlier than delay from now. Tasks
// still waiting when the pool stops are dropped.
func (p *Pool) SubmitAfter(delay time.Duration, task Task) {
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-p.ctx.Done():
				return
			case <-timer.C:
			}
		}
		if p.ctx.Err() != nil {
			return
		}
		p.group.Go(func() error {
			p.run(task)
			return nil
		})
	}()
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("worker task panic: %v\n%s", r, debug.Stack())
		}
	}()
	if err := task(p.ctx); err != nil {
		p.logger.Warnf("worker task: %v", err)
	}
}

// Wait blocks until every submitted task has run or been dropped.
func (p *Pool) Wait() {
	p.pending.Wait()
	_ = p.group.Wait()
}

// Stop drops queued tasks, cancels running ones and waits for them.
func (p *Pool) Stop() {
	p.cancel()
	p.Wait()
}

