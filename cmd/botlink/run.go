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

	"github.com/spf13/cobra"
	"github.com/srg/botlink"
	"github.com/srg/botlink/internal/lua"
)

var runCmd = &cobra.Command{
	Use:   "run <extension> <script.lua|-|@example>",
	Short: "Run a Lua script against a robot",
	Long: `Connect to a robot and run a Lua script that calls its blocks.

Each extension is a global table with one function per block opcode.
Arguments are passed by name or in declaration order:

  aicobot.motor{RIGHTLEFT = "right", TEXT = 50}
  aicobot.motor("right", 50)
  print(aicobot.getultrasonic())

The botlink table provides wait(seconds), stop_all(), connected(id) and
extensions(). Values given with --arg are available in the global arg table.
Use - to read the script from stdin, or @name for a built-in example.

Ctrl+C stops the script, puts the robot into its safe state and disconnects.`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

var (
	runConnect connectOptions
	runArgs    map[string]string
)

func init() {
	runCmd.Long += "\n\nBuilt-in examples: @" + strings.Join(botlink.ExampleScripts(), ", @")
	addConnectFlags(runCmd, &runConnect)
	runCmd.Flags().StringToStringVar(&runArgs, "arg", nil, "Script arguments as key=value")
}

func runRun(cmd *cobra.Command, args []string) error {
	script, err := readScript(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := openRobot(ctx, cmd, args[0], runConnect)
	if err != nil {
		return err
	}
	defer r.Close()

	scriptCtx, cancel := r.watch(ctx)
	defer cancel(nil)

	err = lua.RunScript(scriptCtx, r.runtime, r.logger, script, runArgs, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err == nil {
		return nil
	}
	if lua.IsCancelled(err) {
		// a session error takes precedence over the cancellation it caused
		if cause := context.Cause(scriptCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return context.Canceled
	}
	return err
}

func readScript(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(path, "@"):
		return botlink.ExampleScript(path[1:])
	case path == "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return string(data), nil
}
