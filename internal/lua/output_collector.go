package lua

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
)

// Collector lifecycle states.
const (
	CollectorStateNotRunning uint32 = iota
	CollectorStateRunning
	CollectorStateStopping

	// MaxBufferSize guards against accidental misconfiguration.
	MaxBufferSize uint32 = 1024 * 1024
)

var ErrCollectorRunning = errors.New("collector is already running")

// CollectorMetrics are updated atomically.
type CollectorMetrics struct {
	RecordsProcessed   int64
	RecordsOverwritten int64
	ErrorsOccurred     int64
}

// OutputCollector moves script output from an engine channel into an
// overlapped ring buffer, where old records are overwritten when nobody
// consumes them. Tests and the shell read it back with ConsumePlainText.
type OutputCollector struct {
	outputChan <-chan LuaOutputRecord
	buffer     mpmc.RichOverlappedRingBuffer[LuaOutputRecord]
	stop       chan struct{}
	done       chan struct{}
	onError    func(error)
	metrics    CollectorMetrics
	state      atomic.Uint32
}

// NewOutputCollector creates a collector over ch. onError is called on buffer
// failures; nil panics.
func NewOutputCollector(ch <-chan LuaOutputRecord, bufferSize uint32, onError func(error)) (*OutputCollector, error) {
	if ch == nil {
		return nil, fmt.Errorf("output channel cannot be nil")
	}
	if bufferSize == 0 {
		return nil, fmt.Errorf("buffer size must be > 0")
	}
	if bufferSize > MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", bufferSize, MaxBufferSize)
	}
	if onError == nil {
		onError = func(err error) {
			panic(fmt.Sprintf("OutputCollector: %v", err))
		}
	}

	return &OutputCollector{
		outputChan: ch,
		buffer:     mpmc.NewOverlappedRingBuffer[LuaOutputRecord](bufferSize),
		onError:    onError,
	}, nil
}

// Start launches the collecting goroutine. A collector can be restarted after Stop.
func (c *OutputCollector) Start() error {
	if !c.state.CompareAndSwap(CollectorStateNotRunning, CollectorStateRunning) {
		if c.state.Load() == CollectorStateStopping {
			return fmt.Errorf("collector is stopping, wait for it to finish")
		}
		return ErrCollectorRunning
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done

	go func() {
		defer func() {
			close(done)
			c.state.Store(CollectorStateNotRunning)
		}()
		for {
			select {
			case <-stop:
				return
			case rec, ok := <-c.outputChan:
				if !ok {
					return
				}
				overwrites, err := c.buffer.EnqueueM(rec)
				if err != nil {
					atomic.AddInt64(&c.metrics.ErrorsOccurred, 1)
					c.onError(fmt.Errorf("unexpected buffer.Enqueue error: %w", err))
					return
				}
				atomic.AddInt64(&c.metrics.RecordsOverwritten, int64(overwrites))
				atomic.AddInt64(&c.metrics.RecordsProcessed, 1)
			}
		}
	}()
	return nil
}

// Stop ends collection. Buffered records stay available.
func (c *OutputCollector) Stop() error {
	if !c.state.CompareAndSwap(CollectorStateRunning, CollectorStateStopping) {
		if c.state.Load() == CollectorStateNotRunning {
			return nil
		}
	} else {
		close(c.stop)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		<-c.done
		return fmt.Errorf("collector stop exceeded 5s")
	}
}

// State returns one of the CollectorState constants.
func (c *OutputCollector) State() uint32 {
	return c.state.Load()
}

// Metrics returns a snapshot of the counters.
func (c *OutputCollector) Metrics() CollectorMetrics {
	return CollectorMetrics{
		RecordsProcessed:   atomic.LoadInt64(&c.metrics.RecordsProcessed),
		RecordsOverwritten: atomic.LoadInt64(&c.metrics.RecordsOverwritten),
		ErrorsOccurred:     atomic.LoadInt64(&c.metrics.ErrorsOccurred),
	}
}

// ConsumerFunc receives buffered records one at a time and a final nil.
// Returning done=true stops early with result.
type ConsumerFunc[T any] func(record *LuaOutputRecord) (result T, done bool, err error)

// PlainTextConsumer concatenates record contents.
func PlainTextConsumer() ConsumerFunc[string] {
	var b strings.Builder
	return func(record *LuaOutputRecord) (string, bool, error) {
		if record == nil {
			return b.String(), true, nil
		}
		b.WriteString(record.Content)
		return "", false, nil
	}
}

// ConsumeRecords drains the buffer through consumer.
func ConsumeRecords[T any](c *OutputCollector, consumer ConsumerFunc[T]) (T, error) {
	for !c.buffer.IsEmpty() {
		rec, err := c.buffer.Dequeue()
		if err != nil {
			var zero T
			return zero, fmt.Errorf("buffer dequeue error: %w", err)
		}
		result, done, err := consumer(&rec)
		if err != nil || done {
			return result, err
		}
	}
	result, _, err := consumer(nil)
	return result, err
}

// ConsumePlainText drains the buffer and returns the output as one string.
func (c *OutputCollector) ConsumePlainText() (string, error) {
	return ConsumeRecords(c, PlainTextConsumer())
}
