// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool runs independent evaluations, e.g. of candidate topologies, with bounded parallelism.
package workerspool

import (
	"runtime"
	"sync"

	"github.com/gomlx/rankmesh/pkg/support/xsync"
)

// Pool of workers. The zero value is not usable, create it with New.
type Pool struct {
	// maxParallelism is the limit of tasks running at the same time.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning is decreased.
	numRunning     int

	pending *xsync.DynamicWaitGroup
}

// New returns a new Pool of workers with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	w := &Pool{
		maxParallelism: runtime.NumCPU(),
		pending:        xsync.NewDynamicWaitGroup(),
	}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// MaxParallelism is the limit of tasks running at the same time.
// If 0 tasks run inline, and if -1 parallelism is unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism sets the maxParallelism. It should only be changed before any task starts.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.maxParallelism = maxParallelism
}

// lockedIsFull must be called with w.mu acquired.
func (w *Pool) lockedIsFull() bool {
	return w.maxParallelism > 0 && w.numRunning >= w.maxParallelism
}

// WaitToStart waits until there is a worker available to run the task, and starts it in a goroutine.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
func (w *Pool) WaitToStart(task func()) {
	w.pending.Add(1)
	if w.maxParallelism == 0 {
		defer w.pending.Done()
		task()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.numRunning++
	go func() {
		defer w.pending.Done()
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Signal()
		w.mu.Unlock()
	}()
}

// Wait blocks until every task started so far has finished.
func (w *Pool) Wait() {
	w.pending.Wait()
}

// Map calls fn(i) for i in [0, n) in the pool and waits for all of them to finish.
func (w *Pool) Map(n int, fn func(i int)) {
	for i := range n {
		w.WaitToStart(func() { fn(i) })
	}
	w.Wait()
}
