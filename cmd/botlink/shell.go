package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/srg/botlink/internal/extension"
	"golang.org/x/term"
)

var shellCmd = &cobra.Command{
	Use:   "shell <extension>",
	Short: "Call blocks interactively",
	Long: `Connect to a robot and call its blocks line by line.

Each line is an opcode followed by arguments, either by name or in
declaration order. Quote values that contain spaces:

  motor RIGHTLEFT=right TEXT=50
  motor left 30
  getultrasonic

Reporter results are printed. Other commands:

  help      list the blocks
  stop      put the robot into its safe state and disconnect
  connect   scan and connect again after stop
  quit      leave the shell (also exit, Ctrl+D)`,
	Args: cobra.ExactArgs(1),
	RunE: runShellCmd,
}

var shellConnect connectOptions

func init() {
	addConnectFlags(shellCmd, &shellConnect)
}

func runShellCmd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := openRobot(ctx, cmd, args[0], shellConnect)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := r.watch(ctx)
	defer cancel(nil)

	in := cmd.InOrStdin()
	sh := &shell{
		runtime: r.runtime,
		info:    r.ext.Info(),
		out:     cmd.OutOrStdout(),
		reconnect: func(ctx context.Context) error {
			timeout := r.cfg.ScanTimeout
			if shellConnect.scanTimeout > 0 {
				timeout = shellConnect.scanTimeout
			}
			_, err := r.connect(ctx, shellConnect.address, timeout, func(string) {})
			return err
		},
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sh.prompt = r.ext.Info().ID + "> "
	}

	err = sh.run(ctx, in)
	if cause := context.Cause(ctx); err != nil && cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

// shell executes block calls typed one per line.
type shell struct {
	runtime   *extension.Runtime
	info      *extension.Info
	out       io.Writer
	prompt    string
	reconnect func(ctx context.Context) error
}

// run reads lines until EOF, quit or ctx ends.
func (sh *shell) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(sh.out, sh.prompt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := sh.execute(ctx, line)
			if err != nil {
				fmt.Fprintf(sh.out, "error: %s\n", FormatUserError(err))
			}
			if quit {
				return nil
			}
		}
	}
}

// execute runs one line and reports whether the shell should exit.
func (sh *shell) execute(ctx context.Context, line string) (bool, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("failed to parse line: %w", err)
	}
	if len(tokens) == 0 {
		return false, nil
	}

	switch tokens[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		return false, displayInfo(sh.out, sh.info)
	case "stop":
		sh.runtime.StopAll()
		fmt.Fprintln(sh.out, "stopped")
		return false, nil
	case "connect":
		if sh.reconnect == nil {
			return false, fmt.Errorf("reconnect is not available")
		}
		if err := sh.reconnect(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(sh.out, "connected")
		return false, nil
	}

	opcode, args, err := parseCall(sh.info, tokens)
	if err != nil {
		return false, err
	}
	result, err := sh.runtime.Call(ctx, sh.info.ID, opcode, args)
	if err != nil {
		return false, err
	}
	if result != nil {
		fmt.Fprintln(sh.out, formatResult(result))
	}
	return false, nil
}

// parseCall maps "opcode NAME=value ..." or "opcode value ..." tokens onto
// the block's declared arguments.
func parseCall(info *extension.Info, tokens []string) (string, extension.Args, error) {
	opcode := tokens[0]
	block, ok := info.Block(opcode)
	if !ok {
		return "", nil, fmt.Errorf("%s.%s: %w", info.ID, opcode, extension.ErrUnknownBlock)
	}

	args := extension.Args{}
	pos := 0
	for _, tok := range tokens[1:] {
		if name, value, found := strings.Cut(tok, "="); found {
			if arg, ok := lookupArg(block, name); ok {
				args[arg.Name] = value
				continue
			}
		}
		if pos >= len(block.Args) {
			return "", nil, fmt.Errorf("%s takes %d argument(s), got extra %q", opcode, len(block.Args), tok)
		}
		args[block.Args[pos].Name] = tok
		pos++
	}
	return opcode, args, nil
}

func lookupArg(block extension.Block, name string) (extension.Arg, bool) {
	if arg, ok := block.Arg(name); ok {
		return arg, true
	}
	for _, a := range block.Args {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return extension.Arg{}, false
}

func formatResult(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
