package runtime

import (
	"sync"
)

// SubQueue feeds one subscriber. Producers never block on a slow reader:
// events wait in an unbounded in-memory queue until the dispatcher can hand
// them to the buffered out channel.
type SubQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool

	outCh  chan T
	done   chan struct{}
	paused bool // held until the subscriber's snapshot has been sent
}

func NewSubQueue[T any](outBuf int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh:  make(chan T, outBuf),
		done:   make(chan struct{}),
		paused: true,
	}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends ev for delivery. It is dropped once the queue is closed.
func (sq *SubQueue[T]) Enqueue(ev T) {
	sq.mu.Lock()
	if !sq.closed {
		sq.queue = append(sq.queue, ev)
		sq.cond.Signal()
	}
	sq.mu.Unlock()
}

// Len reports events queued but not yet handed to the out channel.
func (sq *SubQueue[T]) Len() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return len(sq.queue)
}

func (sq *SubQueue[T]) SetPaused(v bool) {
	sq.mu.Lock()
	sq.paused = v
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

// Close stops the dispatcher and closes the out channel. Queued events are
// discarded.
func (sq *SubQueue[T]) Close() {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closed {
		return
	}
	sq.closed = true
	close(sq.done)
	sq.cond.Broadcast()
}

func (sq *SubQueue[T]) dispatch() {
	for {
		sq.mu.Lock()
		for !sq.closed && (sq.paused || len(sq.queue) == 0) {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.queue = nil
			sq.mu.Unlock()
			close(sq.outCh)
			return
		}
		ev := sq.queue[0]
		var zero T
		sq.queue[0] = zero
		sq.queue = sq.queue[1:]
		sq.mu.Unlock()

		select {
		case sq.outCh <- ev:
		case <-sq.done:
			// A reader that went away must not pin the dispatcher.
			close(sq.outCh)
			return
		}
	}
}
