//go:build darwin

package goble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

// DeviceFactory opens the CoreBluetooth central. Peripheral addresses on
// macOS are CoreBluetooth UUIDs rather than MACs (can be overridden in tests).
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = func() (ble.Device, error) {
	return darwin.NewDevice()
}
