//go:build test

package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/srg/botlink/internal/testutils"
)

// CommandTestSuite extends MockBLEPeripheralSuite with command testing utilities.
// All cmd/botlink suites that need a robot embed this instead of MockBLEPeripheralSuite.
type CommandTestSuite struct {
	testutils.MockBLEPeripheralSuite
}

func (s *CommandTestSuite) SetupTest() {
	resetCommandFlags()
	s.MockBLEPeripheralSuite.SetupTest()
}

// ExecuteCommand runs the root command with args and returns stdout and the
// error. Stderr (progress lines, logs) is discarded.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	return s.ExecuteCommandWithInput(nil, args...)
}

// ExecuteCommandWithInput is ExecuteCommand with stdin.
func (s *CommandTestSuite) ExecuteCommandWithInput(in io.Reader, args ...string) (string, error) {
	return executeRoot(context.Background(), in, args...)
}

// ExecuteAsync runs the command in the background. The returned function
// waits for it and returns its output and error.
func (s *CommandTestSuite) ExecuteAsync(args ...string) func() (string, error) {
	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := executeRoot(context.Background(), nil, args...)
		done <- result{out, err}
	}()
	return func() (string, error) {
		select {
		case r := <-done:
			return r.out, r.err
		case <-time.After(s.TestTimeout):
			s.Require().FailNow("command MUST finish in time", strings.Join(args, " "))
			return "", nil
		}
	}
}

func executeRoot(ctx context.Context, in io.Reader, args ...string) (string, error) {
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	if in == nil {
		in = strings.NewReader("")
	}
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// resetCommandFlags restores every flag to its default so state does not leak
// between executions of the shared command tree.
func resetCommandFlags() {
	reset := func(cmd *cobra.Command) {
		visit := func(f *pflag.Flag) {
			if f.Name == "arg" {
				return
			}
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
		cmd.Flags().VisitAll(visit)
		cmd.PersistentFlags().VisitAll(visit)
	}
	reset(rootCmd)
	for _, cmd := range rootCmd.Commands() {
		reset(cmd)
	}
	runArgs = map[string]string{}
}
