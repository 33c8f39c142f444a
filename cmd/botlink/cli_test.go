package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/extensions/aicobot"
	"github.com/srg/botlink/internal/lua"
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/session"
	"github.com/srg/botlink/internal/testutils"
	"github.com/srg/botlink/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "watchdog",
			err:  &session.DataStoppedError{Extension: "AICoBot", Cause: session.ErrWatchdogExpired},
			want: "AICoBot extension stopped receiving data: no telemetry received, is the robot switched on and in range?",
		},
		{
			name: "link loss",
			err:  &session.DataStoppedError{Extension: "RoboDog", Cause: device.ErrNotConnected},
			want: "RoboDog extension stopped receiving data: the robot disconnected",
		},
		{
			name: "bluetooth off",
			err:  fmt.Errorf("failed to create BLE device: %w", device.ErrBluetoothOff),
			want: "Bluetooth is turned off or unavailable",
		},
		{
			name: "missing characteristic",
			err:  &device.NotFoundError{Resource: "characteristic", UUIDs: []string{"2261", "0227"}},
			want: `robot does not look like the selected extension: characteristic "0227" not found in service "2261"`,
		},
		{
			name: "unknown extension",
			err:  fmt.Errorf("%w: %q", extension.ErrUnknownExtension, "tello"),
			want: `unknown extension: "tello" (available: aicobot, aidrone, firmtech, jcboard, jdcode, robodog)`,
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			want: "operation timed out: context deadline exceeded",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUserError(tt.err))
		})
	}
	assert.Empty(t, FormatUserError(nil))

	var luaErr *lua.LuaError
	err := lua.RunScript(context.Background(), extension.NewRuntime(testutils.NewSilentLogger()),
		testutils.NewSilentLogger(), "local x = = 1", nil, nil, nil)
	require.ErrorAs(t, err, &luaErr)
	assert.Equal(t, luaErr.Error(), FormatUserError(err), "Lua errors MUST be shown without the wrapping context")
}

func TestConfigureLogger(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("log-level", "", "")
		cmd.Flags().Bool("verbose", false, "")
		require.NoError(t, cmd.Flags().Parse(args))
		return cmd
	}
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"

	tests := []struct {
		name     string
		args     []string
		fromFile bool
		want     logrus.Level
	}{
		{name: "silent by default", want: logrus.PanicLevel},
		{name: "log level flag", args: []string{"--log-level", "error"}, fromFile: true, want: logrus.ErrorLevel},
		{name: "verbose", args: []string{"--verbose"}, want: logrus.DebugLevel},
		{name: "config file", fromFile: true, want: logrus.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := configureLogger(newCmd(tt.args...), cfg, tt.fromFile)
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}

	_, err := configureLogger(newCmd("--log-level", "loud"), cfg, false)
	assert.ErrorContains(t, err, "invalid log level: loud")
}

func newOfflineRobot(t *testing.T) (*aicobot.Extension, *extension.Runtime) {
	t.Helper()
	logger := testutils.NewSilentLogger()
	robot := aicobot.New(nil, session.Options{}, logger)
	rt := extension.NewRuntime(logger)
	require.NoError(t, rt.Register(robot))
	return robot, rt
}

func TestParseCall(t *testing.T) {
	robot, _ := newOfflineRobot(t)
	info := robot.Info()

	tests := []struct {
		name   string
		tokens []string
		want   extension.Args
		errMsg string
	}{
		{name: "named", tokens: []string{"motor", "RIGHTLEFT=left", "TEXT=30"}, want: extension.Args{"RIGHTLEFT": "left", "TEXT": "30"}},
		{name: "named ignores case", tokens: []string{"motor", "text=30"}, want: extension.Args{"TEXT": "30"}},
		{name: "positional", tokens: []string{"motor", "left", "30"}, want: extension.Args{"RIGHTLEFT": "left", "TEXT": "30"}},
		{name: "mixed", tokens: []string{"motor", "TEXT=30", "left"}, want: extension.Args{"RIGHTLEFT": "left", "TEXT": "30"}},
		{name: "no args", tokens: []string{"getbutton"}, want: extension.Args{}},
		{name: "too many", tokens: []string{"getbutton", "1"}, errMsg: "getbutton takes 0 argument(s)"},
		{name: "unknown opcode", tokens: []string{"fly"}, errMsg: "aicobot.fly: unknown block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opcode, args, err := parseCall(info, tt.tokens)
			if tt.errMsg != "" {
				assert.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tokens[0], opcode)
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestShellExecute(t *testing.T) {
	robot, rt := newOfflineRobot(t)

	var out bytes.Buffer
	sh := &shell{runtime: rt, info: robot.Info(), out: &out}

	input := strings.Join([]string{
		`motor left 30`,
		`servo ONETWO="2번" TEXT=45`,
		``,
		`getultrasonic`,
		`fly`,
		`motor "unterminated`,
		`quit`,
		`motor right 10`,
	}, "\n")
	require.NoError(t, sh.run(context.Background(), strings.NewReader(input)))

	cmd := robot.Profile().Command()
	assert.Equal(t, int8(30), cmd.MotorL)
	assert.Equal(t, int8(45), cmd.Servo2, "menu labels MUST resolve like values")
	assert.Equal(t, int8(0), cmd.MotorR, "lines after quit MUST NOT run")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0", lines[0])
	assert.Equal(t, "error: aicobot.fly: unknown block", lines[1])
	assert.Contains(t, lines[2], "error: failed to parse line")

	t.Run("stop", func(t *testing.T) {
		stopped := 0
		rt.OnStopAll(func() { stopped++ })
		out.Reset()

		quit, err := sh.execute(context.Background(), "stop")
		require.NoError(t, err)
		assert.False(t, quit)
		assert.Equal(t, 1, stopped)
		assert.Equal(t, "stopped\n", out.String())
		assert.Equal(t, aicobot.Command{}, robot.Profile().Command(), "stop MUST reset the outbound state")
	})

	t.Run("connect without transport", func(t *testing.T) {
		_, err := sh.execute(context.Background(), "connect")
		assert.Error(t, err)
	})

	t.Run("help", func(t *testing.T) {
		out.Reset()
		_, err := sh.execute(context.Background(), "help")
		require.NoError(t, err)
		assert.Contains(t, out.String(), "getultrasonic")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := sh.run(ctx, strings.NewReader("getbutton\n"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMonitorRun(t *testing.T) {
	robot, _ := newOfflineRobot(t)

	t.Run("count", func(t *testing.T) {
		var out bytes.Buffer
		m := &monitor{ext: robot, out: &out}

		events := make(chan protocol.Telemetry, 3)
		events <- protocol.NewTelemetry(1, 0, 0, 0, 25)
		events <- protocol.NewTelemetry(0, 0, 0, 0, 30)
		events <- protocol.NewTelemetry(0, 0, 0, 0, 35)

		require.NoError(t, m.run(context.Background(), events, 2))

		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "[1,0,0,0,25]")
		assert.Contains(t, lines[0], "getultrasonic=0")
		assert.Contains(t, lines[1], "[0,0,0,0,30]")
		assert.NotContains(t, lines[0], "getirsensor", "reporters with arguments MUST be skipped")
		assert.Len(t, events, 1)
	})

	t.Run("raw", func(t *testing.T) {
		var out bytes.Buffer
		m := &monitor{ext: robot, out: &out, raw: true}
		events := make(chan protocol.Telemetry, 1)
		events <- protocol.NewTelemetry(7, 8)

		require.NoError(t, m.run(context.Background(), events, 1))
		assert.True(t, strings.HasSuffix(out.String(), "  [7,8]\n"), "raw output MUST end with the fields, got %q", out.String())
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		m := &monitor{ext: robot, out: &bytes.Buffer{}}
		err := m.run(ctx, make(chan protocol.Telemetry), 0)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestReadScript(t *testing.T) {
	t.Run("example", func(t *testing.T) {
		script, err := readScript(nil, "@drone_hop")
		require.NoError(t, err)
		assert.Contains(t, script, "drone.takeoff()")

		_, err = readScript(nil, "@dance")
		assert.ErrorContains(t, err, "unknown example script")
	})

	t.Run("stdin", func(t *testing.T) {
		script, err := readScript(strings.NewReader("print(1)"), "-")
		require.NoError(t, err)
		assert.Equal(t, "print(1)", script)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readScript(nil, "/nonexistent/botlink.lua")
		assert.ErrorContains(t, err, "failed to read script /nonexistent/botlink.lua")
	})
}
