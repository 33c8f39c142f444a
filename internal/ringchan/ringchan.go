// Package ringchan provides a bounded channel that overwrites the oldest
// element instead of blocking producers.
package ringchan

import "sync/atomic"

// RingChannel wraps a buffered channel with overwrite-oldest semantics.
//
// With capacity 1 it behaves as a "latest value" mailbox: a slow consumer
// always sees the newest element and the skipped ones are counted as
// Overwritten.
//
//	rc := ringchan.New[int](3)
//	for i := 0; i < 10; i++ {
//	    rc.Send(i)
//	}
//	for v := range rc.C() { // 7, 8, 9
//	    fmt.Println(v)
//	}
type RingChannel[T any] struct {
	ch      chan T
	closed  atomic.Bool
	metrics Metrics
}

// New creates a RingChannel with the given capacity.
func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the receive side. Reads through C bypass the Processed metric.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts v, dropping the oldest element when full.
// It reports whether an element was dropped. Sends after Close are ignored.
func (rc *RingChannel[T]) Send(v T) bool {
	if rc.closed.Load() {
		rc.metrics.addError()
		return false
	}

	dropped := false
	for {
		select {
		case rc.ch <- v:
			rc.metrics.addWritten(1)
			return dropped
		default:
		}
		// Another consumer may drain in between, so only count a real drop.
		select {
		case <-rc.ch:
			rc.metrics.addOverwritten(1)
			dropped = true
		default:
		}
	}
}

// TrySend inserts v only if there is room.
func (rc *RingChannel[T]) TrySend(v T) bool {
	if rc.closed.Load() {
		return false
	}
	select {
	case rc.ch <- v:
		rc.metrics.addWritten(1)
		return true
	default:
		return false
	}
}

// Receive blocks until a value is available or the channel is closed.
func (rc *RingChannel[T]) Receive() (v T, ok bool) {
	v, ok = <-rc.ch
	if ok {
		rc.metrics.addProcessed(1)
	}
	return
}

// TryReceive is the non-blocking Receive.
func (rc *RingChannel[T]) TryReceive() (v T, ok bool) {
	select {
	case v, ok = <-rc.ch:
		if ok {
			rc.metrics.addProcessed(1)
		}
		return
	default:
		var zero T
		return zero, false
	}
}

// Drain discards everything currently buffered and returns how many elements were dropped.
func (rc *RingChannel[T]) Drain() int {
	n := 0
	for {
		select {
		case _, ok := <-rc.ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Cap returns the capacity.
func (rc *RingChannel[T]) Cap() int {
	return cap(rc.ch)
}

// Close closes the channel once. Buffered elements remain readable.
// Producers must be stopped before Close.
func (rc *RingChannel[T]) Close() {
	if rc.closed.CompareAndSwap(false, true) {
		close(rc.ch)
	}
}

// GetMetrics returns a snapshot of the counters.
func (rc *RingChannel[T]) GetMetrics() Metrics {
	return Metrics{
		Processed:   atomic.LoadInt64(&rc.metrics.Processed),
		Written:     atomic.LoadInt64(&rc.metrics.Written),
		Overwritten: atomic.LoadInt64(&rc.metrics.Overwritten),
		Errors:      atomic.LoadInt64(&rc.metrics.Errors),
	}
}

// Metrics are updated atomically; Errors counts sends rejected after Close.
type Metrics struct {
	Processed   int64
	Written     int64
	Overwritten int64
	Errors      int64
}

func (m *Metrics) addProcessed(n int) {
	atomic.AddInt64(&m.Processed, int64(n))
}

func (m *Metrics) addWritten(n int) {
	atomic.AddInt64(&m.Written, int64(n))
}

func (m *Metrics) addOverwritten(n int) {
	atomic.AddInt64(&m.Overwritten, int64(n))
}

func (m *Metrics) addError() {
	atomic.AddInt64(&m.Errors, 1)
}
