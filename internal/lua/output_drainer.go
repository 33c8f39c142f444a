package lua

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/groutine"
)

// drainGrace bounds the final drain after stop so a chatty script cannot
// hold the caller forever.
const drainGrace = 100 * time.Millisecond

// OutputDrainer copies engine output to writers while a script runs.
type OutputDrainer struct {
	cancelOnce sync.Once
	stop       chan struct{}
	wg         sync.WaitGroup
}

// NewOutputDrainer starts draining outputChan into stdout and stderr. Nil
// writers discard.
func NewOutputDrainer(ctx context.Context, outputChan <-chan LuaOutputRecord, logger *logrus.Logger, stdout, stderr io.Writer) *OutputDrainer {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	d := &OutputDrainer{stop: make(chan struct{})}
	write := func(rec LuaOutputRecord) {
		w := stdout
		if rec.Source == "stderr" {
			w = stderr
		}
		if _, err := fmt.Fprint(w, rec.Content); err != nil {
			logger.WithFields(logrus.Fields{
				"source": rec.Source,
				"error":  err,
			}).Warn("Output drainer: write failed")
		}
	}

	d.wg.Add(1)
	groutine.Go(ctx, "lua-output-drainer", func(ctx context.Context) {
		defer d.wg.Done()
		defer logger.Debugf("%s: exiting", groutine.GetName(ctx))

		for {
			select {
			case rec, ok := <-outputChan:
				if !ok {
					return
				}
				write(rec)
			case <-d.stop:
				drainFor(outputChan, write, drainGrace)
				return
			case <-ctx.Done():
				drainFor(outputChan, write, drainGrace)
				return
			}
		}
	})
	return d
}

// drainFor writes whatever is buffered, giving up after timeout or once the
// channel stays empty.
func drainFor(ch <-chan LuaOutputRecord, write func(LuaOutputRecord), timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return
			}
			write(rec)
		case <-deadline:
			return
		default:
			return
		}
	}
}

// Cancel asks the drainer to flush and exit.
func (d *OutputDrainer) Cancel() {
	d.cancelOnce.Do(func() { close(d.stop) })
}

// Wait blocks until the drainer has exited.
func (d *OutputDrainer) Wait() {
	d.wg.Wait()
}
