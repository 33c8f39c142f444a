package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/extensions/catalog"
	"github.com/srg/botlink/internal/lua"
	"github.com/srg/botlink/internal/session"
)

// Command-level errors
var (
	// ErrNoPeripheral means the scan ended without finding the requested robot.
	ErrNoPeripheral = errors.New("no robot found")

	// ErrNotConnected means Connect returned without establishing a link,
	// typically because the scan was stopped underneath it.
	ErrNotConnected = errors.New("connection was not established")
)

// FormatUserError turns internal errors into a one-line message for humans.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var (
		dataStopped *session.DataStoppedError
		notFound    *device.NotFoundError
		luaErr      *lua.LuaError
	)
	switch {
	case errors.As(err, &dataStopped):
		if errors.Is(err, session.ErrWatchdogExpired) {
			return fmt.Sprintf("%s: no telemetry received, is the robot switched on and in range?", dataStopped.Error())
		}
		return fmt.Sprintf("%s: the robot disconnected", dataStopped.Error())
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off or unavailable"
	case errors.Is(err, device.ErrNotInitialized):
		return "Bluetooth adapter is not initialized"
	case errors.Is(err, device.ErrNotConnected):
		return "robot is not connected"
	case errors.As(err, &notFound):
		return fmt.Sprintf("robot does not look like the selected extension: %s", notFound.Error())
	case errors.Is(err, extension.ErrUnknownExtension):
		return fmt.Sprintf("%s (available: %s)", err.Error(), strings.Join(catalog.IDs(), ", "))
	case errors.As(err, &luaErr):
		return luaErr.Error()
	case errors.Is(err, device.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("operation timed out: %s", err.Error())
	default:
		return err.Error()
	}
}
