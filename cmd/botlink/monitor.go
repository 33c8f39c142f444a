package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/protocol"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <extension>",
	Short: "Stream telemetry from a robot",
	Long: `Connect to a robot and print every telemetry snapshot it reports: the raw
fields followed by the value of each reporter block that takes no arguments.

The command fails when the robot stops reporting for longer than the
watchdog timeout or drops the connection.`,
	Args: cobra.ExactArgs(1),
	RunE: runMonitor,
}

var (
	monitorConnect connectOptions
	monitorCount   int
	monitorRaw     bool
)

func init() {
	addConnectFlags(monitorCmd, &monitorConnect)
	monitorCmd.Flags().IntVarP(&monitorCount, "count", "n", 0, "Exit after this many snapshots (0 for unlimited)")
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "Print only the raw telemetry fields")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if monitorCount < 0 {
		return fmt.Errorf("invalid count %d: must not be negative", monitorCount)
	}
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := openRobot(ctx, cmd, args[0], monitorConnect)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := r.watch(ctx)
	defer cancel(nil)

	m := &monitor{ext: r.ext, out: cmd.OutOrStdout(), raw: monitorRaw}
	err = m.run(ctx, r.session().Events(), monitorCount)
	if err == nil {
		return nil
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	// Ctrl+C ends monitoring normally
	return nil
}

// monitor prints telemetry snapshots with the derived reporter values.
type monitor struct {
	ext extension.Extension
	out io.Writer
	raw bool
}

// run prints snapshots until count were printed or ctx ends.
func (m *monitor) run(ctx context.Context, events <-chan protocol.Telemetry, count int) error {
	reporters := m.reporters()
	stamp := color.New(color.FgCyan)

	for printed := 0; count == 0 || printed < count; printed++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-events:
			stamp.Fprint(m.out, time.Now().Format("15:04:05.000"))
			fmt.Fprintf(m.out, "  [%s]", t.String())
			if !m.raw {
				fmt.Fprint(m.out, m.evaluate(ctx, reporters))
			}
			fmt.Fprintln(m.out)
		}
	}
	return nil
}

// reporters lists the value blocks that can be evaluated without arguments.
func (m *monitor) reporters() []string {
	var out []string
	for _, b := range m.ext.Info().BlockList() {
		if b.Type != extension.Command && len(b.Args) == 0 {
			out = append(out, b.Opcode)
		}
	}
	return out
}

func (m *monitor) evaluate(ctx context.Context, opcodes []string) string {
	var sb strings.Builder
	for _, op := range opcodes {
		v, err := m.ext.Call(ctx, op, nil)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, " %s=%s", op, formatResult(v))
	}
	return sb.String()
}
