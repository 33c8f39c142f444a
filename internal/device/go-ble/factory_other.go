//go:build !darwin && !linux

package goble

import (
	"fmt"
	"runtime"

	"github.com/go-ble/ble"
	"github.com/srg/botlink/internal/device"
)

// DeviceFactory has no native backend on this platform (can be overridden in tests).
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return nil, fmt.Errorf("%w: no BLE backend for %s", device.ErrUnsupported, runtime.GOOS)
}
