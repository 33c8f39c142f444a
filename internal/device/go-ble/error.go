package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/srg/botlink/internal/device"
)

// errorPatterns pairs lowercase fragments of go-ble and HCI error text with
// the sentinel they stand for. First match wins.
var errorPatterns = []struct {
	fragment string
	sentinel error
}{
	{"is bluetooth turned on", device.ErrBluetoothOff},
	{"bluetooth is turned off", device.ErrBluetoothOff},
	{"can't init hci", device.ErrBluetoothOff},
	{"no devices available", device.ErrBluetoothOff},
	{"device already connected", device.ErrAlreadyConnected},
	{"device not connected", device.ErrNotConnected},
	{"disconnected", device.ErrNotConnected},
	{"connection is not initialized", device.ErrNotInitialized},
}

// NormalizeError classifies a go-ble error as one of the device sentinels so
// sessions and the CLI can match it with errors.Is. The original text stays
// in the message. Errors that are already classified pass through.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	var cerr *device.ConnectionError
	if errors.As(err, &cerr) || errors.Is(err, device.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", device.ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(msg, p.fragment) {
			return fmt.Errorf("%w: %v", p.sentinel, err)
		}
	}
	return err
}
