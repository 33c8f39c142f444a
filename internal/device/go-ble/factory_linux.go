//go:build linux

package goble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// DeviceFactory creates ble.Device instances on the default HCI adapter
// (can be overridden in tests).
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return linux.NewDevice()
}
