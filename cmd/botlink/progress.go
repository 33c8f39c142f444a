package main

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter keeps one status line updated with the current phase and
// the elapsed (or remaining) seconds. It writes to stderr so command output on
// stdout stays machine readable.
//
//	p := NewProgressPrinter(w, "Connecting to AICoBot", "Scanning")
//	p.Start()
//	defer p.Stop()
//
// A ProgressPrinter is single-use.
type ProgressPrinter struct {
	out        io.Writer
	prefix     string
	phase      atomic.Value // string
	stopPhases map[string]struct{}
	startTime  time.Time
	ticker     atomic.Pointer[time.Ticker]
	stopChan   chan struct{}
	done       chan struct{}
	started    atomic.Bool
	duration   time.Duration // zero counts up
}

// NewProgressPrinter creates a printer that shows the elapsed time.
func NewProgressPrinter(out io.Writer, prefix, phase string, stopPhases ...string) *ProgressPrinter {
	return NewCountdownProgressPrinter(out, prefix, phase, 0, stopPhases...)
}

// NewCountdownProgressPrinter creates a printer that counts down from duration.
// Phases in stopPhases stop the printer when reported through Callback.
func NewCountdownProgressPrinter(out io.Writer, prefix, phase string, duration time.Duration, stopPhases ...string) *ProgressPrinter {
	stopSet := make(map[string]struct{}, len(stopPhases))
	for _, p := range stopPhases {
		stopSet[p] = struct{}{}
	}
	p := &ProgressPrinter{
		out:        out,
		prefix:     prefix,
		stopPhases: stopSet,
		duration:   duration,
	}
	p.phase.Store(phase)
	return p
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("ProgressPrinter.Start called more than once")
	}

	p.done = make(chan struct{})
	p.stopChan = make(chan struct{})
	p.startTime = time.Now()
	ticker := time.NewTicker(progressUpdateInterval)
	p.ticker.Store(ticker)

	fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, p.phase.Load().(string))
	go p.loop(ticker, p.stopChan)
}

func (p *ProgressPrinter) loop(ticker *time.Ticker, stop <-chan struct{}) {
	defer close(p.done)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			phase := p.phase.Load().(string)
			if _, isStop := p.stopPhases[phase]; isStop {
				return
			}
			p.print(phase, p.seconds(time.Since(p.startTime)))
		}
	}
}

func (p *ProgressPrinter) seconds(elapsed time.Duration) int {
	if p.duration == 0 {
		return int(elapsed.Seconds())
	}
	remaining := p.duration - elapsed
	if remaining <= 0 {
		return 0
	}
	// round to the nearest second
	return int(remaining.Seconds() + 0.5)
}

func (p *ProgressPrinter) print(phase string, seconds int) {
	if seconds > 0 {
		fmt.Fprintf(p.out, "\r%s (%s %ds)   ", p.prefix, phase, seconds)
	} else {
		fmt.Fprintf(p.out, "\r%s (%s...)   ", p.prefix, phase)
	}
}

// Callback returns a phase setter. Stop phases stop the printer.
func (p *ProgressPrinter) Callback() func(phase string) {
	return func(phase string) {
		p.phase.Store(phase)
		if _, isStop := p.stopPhases[phase]; isStop {
			p.Stop()
		}
	}
}

// Stop clears the line. Safe to call multiple times.
func (p *ProgressPrinter) Stop() {
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return
	}

	ticker.Stop()
	close(p.stopChan)
	<-p.done

	fmt.Fprint(p.out, clearLineSequence)
}
