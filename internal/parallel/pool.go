// Package parallel provides the worker pool used by the CPU device to
// evaluate fragment kernels over row bands.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// minRowsPerTask keeps tasks large enough that scheduling does not dominate
// small textures.
const minRowsPerTask = 8

// Pool is a fixed set of goroutines with per-worker queues. Idle workers
// steal from the other queues, which balances bands whose kernels cost more
// than others.
//
// Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPool starts a pool with the given number of workers. If workers is 0 or
// negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]

	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case task := <-own:
			task()
		default:
			if task := p.steal(id); task != nil {
				task()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case task := <-own:
				task()
			}
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			task()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// Run executes every task and waits for all of them. On a closed pool the
// tasks run on the calling goroutine.
func (p *Pool) Run(tasks []func()) {
	if len(tasks) == 0 {
		return
	}
	if !p.running.Load() || len(tasks) == 1 {
		for _, task := range tasks {
			task()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		wrapped := func() {
			defer wg.Done()
			task()
		}
		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	wg.Wait()
}

// Rows splits [0, height) into contiguous bands and calls fn once per band,
// concurrently. Bands never overlap, so fn may write its rows without
// locking.
func (p *Pool) Rows(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	bands := min(p.workers*2, (height+minRowsPerTask-1)/minRowsPerTask)
	if bands <= 1 {
		fn(0, height)
		return
	}

	step := (height + bands - 1) / bands
	tasks := make([]func(), 0, bands)
	for y0 := 0; y0 < height; y0 += step {
		y1 := min(y0+step, height)
		tasks = append(tasks, func() { fn(y0, y1) })
	}
	p.Run(tasks)
}

// Close stops the workers after the queued tasks complete. Close is safe to
// call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers.
func (p *Pool) Workers() int { return p.workers }

// IsRunning reports whether the pool accepts work.
func (p *Pool) IsRunning() bool { return p.running.Load() }
