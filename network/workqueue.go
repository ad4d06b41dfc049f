package network

import "sync"

// WorkQueue defers work onto a logical side's simulation thread. Submit
// returns a channel closed once the work has run; the registry-snapshot
// injection step is the only caller that blocks on it.
type WorkQueue interface {
	Submit(fn func()) <-chan struct{}
}

// InlineQueue runs submitted work immediately on the calling goroutine.
// The default for connections that never hand work across threads.
type InlineQueue struct{}

func (InlineQueue) Submit(fn func()) <-chan struct{} {
	done := make(chan struct{})
	fn()
	close(done)
	return done
}

// SerialQueue runs submitted work on a single background goroutine in
// submission order, mimicking the host's per-side simulation thread.
type SerialQueue struct {
	mu     sync.Mutex
	work   chan queued
	closed bool
	once   sync.Once
	stop   chan struct{}
	stopWG sync.WaitGroup
}

type queued struct {
	fn   func()
	done chan struct{}
}

// NewSerialQueue starts the worker goroutine. Close must be called to stop it.
func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{
		work: make(chan queued, 64),
		stop: make(chan struct{}),
	}
	q.stopWG.Add(1)
	go q.run()
	return q
}

func (q *SerialQueue) run() {
	defer q.stopWG.Done()
	for {
		select {
		case item := <-q.work:
			item.fn()
			close(item.done)
		case <-q.stop:
			// drain anything accepted before close
			for {
				select {
				case item := <-q.work:
					item.fn()
					close(item.done)
				default:
					return
				}
			}
		}
	}
}

func (q *SerialQueue) Submit(fn func()) <-chan struct{} {
	done := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		close(done)
		return done
	}
	q.work <- queued{fn: fn, done: done}
	q.mu.Unlock()
	return done
}

// Close stops the worker after draining accepted work. Safe to call twice.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.once.Do(func() { close(q.stop) })
	q.stopWG.Wait()
}
