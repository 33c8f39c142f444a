package goble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
)

// DefaultConnectTimeout applies when ConnectOptions leaves the timeout unset.
const DefaultConnectTimeout = 10 * time.Second

// Transport implements device.Transport on top of go-ble.
// The underlying ble.Device is created lazily through DeviceFactory and shared
// by scans and connections.
type Transport struct {
	logger *logrus.Logger
	mu     sync.Mutex
	dev    ble.Device
}

// NewTransport creates a go-ble transport.
func NewTransport(logger *logrus.Logger) *Transport {
	return &Transport{logger: logger}
}

func (t *Transport) device() (ble.Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev != nil {
		return t.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		t.logger.WithField("error", err).Error("Failed to create BLE device")
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	ble.SetDefaultDevice(dev)
	t.dev = dev
	return dev, nil
}

// Scan reports advertisements until ctx ends. Cancellation is not an error.
func (t *Transport) Scan(ctx context.Context, allowDup bool, handler func(device.Advertisement)) error {
	dev, err := t.device()
	if err != nil {
		return err
	}

	t.logger.WithField("allow_dup", allowDup).Debug("Starting BLE scan...")
	err = dev.Scan(ctx, allowDup, func(adv ble.Advertisement) {
		handler(NewBLEAdvertisement(adv))
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return NormalizeError(err)
	}
	t.logger.Debug("BLE scan finished")
	return nil
}

// Connect dials the peripheral, discovers its profile and binds the rx/tx pair.
func (t *Transport) Connect(ctx context.Context, opts *device.ConnectOptions) (device.Link, error) {
	if opts == nil || strings.TrimSpace(opts.Address) == "" {
		t.logger.Error("Connection attempt with empty address")
		return nil, fmt.Errorf("device address is empty")
	}
	if _, err := t.device(); err != nil {
		return nil, err
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	t.logger.WithFields(logrus.Fields{
		"address": opts.Address,
		"service": opts.ServiceUUID,
		"timeout": timeout,
	}).Info("Connecting to BLE device...")

	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ble.Dial(connCtx, ble.NewAddr(opts.Address))
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"address": opts.Address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", device.ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", opts.Address, NormalizeError(err))
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"address": opts.Address,
			"error":   err,
		}).Error("Failed to discover profile")
		t.cancelConnection(client)
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	rx, tx, err := resolvePair(profile, opts)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"address": opts.Address,
			"error":   err,
		}).Error("Peripheral does not expose the expected characteristics")
		t.cancelConnection(client)
		return nil, err
	}

	link := newLink(client, rx, tx, t.logger)
	t.logger.WithFields(logrus.Fields{
		"address": opts.Address,
		"rx":      device.NormalizeUUID(rx.UUID.String()),
		"tx":      device.NormalizeUUID(tx.UUID.String()),
	}).Info("BLE device connected successfully")
	return link, nil
}

func (t *Transport) cancelConnection(client ble.Client) {
	if err := client.CancelConnection(); err != nil {
		t.logger.WithField("cancel_error", err).Warn("Failed to cancel connection")
	}
}

// resolvePair finds the rx and tx characteristics inside the requested service.
func resolvePair(profile *ble.Profile, opts *device.ConnectOptions) (rx, tx *ble.Characteristic, err error) {
	want := device.NormalizeUUID(opts.ServiceUUID)
	var svc *ble.Service
	for _, s := range profile.Services {
		if device.NormalizeUUID(s.UUID.String()) == want {
			svc = s
			break
		}
	}
	if svc == nil {
		return nil, nil, &device.NotFoundError{Resource: "service", UUIDs: []string{opts.ServiceUUID}}
	}

	find := func(uuid string) *ble.Characteristic {
		n := device.NormalizeUUID(uuid)
		for _, c := range svc.Characteristics {
			if device.NormalizeUUID(c.UUID.String()) == n {
				return c
			}
		}
		return nil
	}

	if rx = find(opts.RxUUID); rx == nil {
		return nil, nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{opts.ServiceUUID, opts.RxUUID}}
	}
	if tx = find(opts.TxUUID); tx == nil {
		return nil, nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{opts.ServiceUUID, opts.TxUUID}}
	}
	return rx, tx, nil
}
