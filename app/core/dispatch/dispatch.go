// Package dispatch runs jobs serially per key and concurrently across
// keys. One chat conversation is one key: its messages are processed
// strictly in arrival order, while other conversations proceed in
// parallel.
package dispatch

import (
	"errors"
	"log"
	"sync"
	"time"
)

const (
	defaultBuffer = 64
	idleTimeout   = 2 * time.Minute
)

var ErrStopped = errors.New("dispatcher stopped")
var ErrBusy = errors.New("conversation queue is full")

// Stats is a point-in-time snapshot for status endpoints.
type Stats struct {
	Workers   int   `json:"workers"`
	Pending   int   `json:"pending"`
	Processed int64 `json:"processed"`
}

type worker struct {
	jobs chan func()
}

type Dispatcher struct {
	mu        sync.Mutex
	workers   map[string]*worker
	buffer    int
	processed int64
	stopped   bool
	quit      chan struct{}
	wg        sync.WaitGroup
}

func New(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		workers: make(map[string]*worker),
		buffer:  buffer,
		quit:    make(chan struct{}),
	}
}

// Submit enqueues a job for key. Jobs for the same key run one at a
// time in submission order.
func (d *Dispatcher) Submit(key string, job func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}

	w, ok := d.workers[key]
	if !ok {
		w = &worker{jobs: make(chan func(), d.buffer)}
		d.workers[key] = w
		d.wg.Add(1)
		go d.run(key, w)
	}

	select {
	case w.jobs <- job:
		return nil
	default:
		return ErrBusy
	}
}

// run drains one key's queue. A worker that sits idle retires and
// removes itself, so the map only holds active conversations. The
// empty-queue check happens under the dispatcher lock, which is the
// same lock Submit enqueues under, so no job can slip into a retiring
// worker's channel.
func (d *Dispatcher) run(key string, w *worker) {
	defer d.wg.Done()
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case job := <-w.jobs:
			d.exec(job)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleTimeout)
		case <-idle.C:
			d.mu.Lock()
			if len(w.jobs) == 0 {
				if d.workers[key] == w {
					delete(d.workers, key)
				}
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			idle.Reset(idleTimeout)
		case <-d.quit:
			// Drain whatever was accepted before the stop.
			for {
				select {
				case job := <-w.jobs:
					d.exec(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) exec(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatch] job panicked: %v", r)
		}
	}()
	job()
	d.mu.Lock()
	d.processed++
	d.mu.Unlock()
}

// Stop rejects new jobs, lets workers drain, and waits up to timeout.
func (d *Dispatcher) Stop(timeout time.Duration) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.quit)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("[Dispatch] stop timed out after %s", timeout)
	}
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	pending := 0
	for _, w := range d.workers {
		pending += len(w.jobs)
	}
	return Stats{Workers: len(d.workers), Pending: pending, Processed: d.processed}
}
