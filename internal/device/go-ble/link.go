package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/device"
	"github.com/srg/botlink/internal/groutine"
)

// Link is a live connection bound to one rx/tx characteristic pair.
type Link struct {
	client ble.Client
	rx     *ble.Characteristic
	tx     *ble.Characteristic
	logger *logrus.Logger

	writeMutex sync.Mutex
	connMutex  sync.RWMutex
	connected  bool
	subscribed bool

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newLink(client ble.Client, rx, tx *ble.Characteristic, logger *logrus.Logger) *Link {
	l := &Link{
		client:    client,
		rx:        rx,
		tx:        tx,
		logger:    logger,
		connected: true,
	}
	l.ctx, l.cancel = context.WithCancelCause(context.Background())

	// CoreBluetooth (and the srgg fork on Linux) report link loss through Disconnected().
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(context.Background(), "ble-link-monitor", func(context.Context) {
			select {
			case <-dc.Disconnected():
				l.logger.Warn("Peripheral reported disconnection, cancelling link context")
				l.connMutex.Lock()
				l.connected = false
				l.connMutex.Unlock()
				l.cancel(device.ErrNotConnected)
			case <-l.ctx.Done():
			}
		})
	} else {
		l.logger.Debug("Client does not support Disconnected() channel")
	}
	return l
}

// Write sends data to the tx characteristic. Writes are serialized.
func (l *Link) Write(ctx context.Context, data []byte, withResponse bool) error {
	l.connMutex.RLock()
	if !l.connected {
		l.connMutex.RUnlock()
		return device.ErrNotConnected
	}
	client := l.client
	l.connMutex.RUnlock()

	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- client.WriteCharacteristic(l.tx, data, !withResponse)
	}()

	select {
	case err := <-resultCh:
		if err != nil {
			return fmt.Errorf("failed to write characteristic %s: %w", l.tx.UUID, NormalizeError(err))
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: write to %s: %v", device.ErrTimeout, l.tx.UUID, ctx.Err())
	case <-l.ctx.Done():
		return device.ErrNotConnected
	}
}

// Subscribe enables notifications on the rx characteristic.
// Each notification is delivered as a private copy.
func (l *Link) Subscribe(handler func([]byte)) error {
	l.connMutex.Lock()
	defer l.connMutex.Unlock()

	if !l.connected {
		return device.ErrNotConnected
	}
	if l.subscribed {
		return nil
	}

	err := l.client.Subscribe(l.rx, false, func(req []byte) {
		data := make([]byte, len(req))
		copy(data, req)
		handler(data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", l.rx.UUID, NormalizeError(err))
	}
	l.subscribed = true
	l.logger.WithField("char_uuid", l.rx.UUID.String()).Debug("Subscribed to telemetry notifications")
	return nil
}

// Done is closed when the link is closed or lost.
func (l *Link) Done() <-chan struct{} {
	return l.ctx.Done()
}

// Err is nil after Close and ErrNotConnected after a peripheral-side drop.
func (l *Link) Err() error {
	if l.ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(l.ctx)
	if cause == context.Canceled {
		return nil
	}
	return cause
}

func (l *Link) IsConnected() bool {
	l.connMutex.RLock()
	defer l.connMutex.RUnlock()
	return l.connected
}

// Close unsubscribes and cancels the connection. It is safe to call twice.
func (l *Link) Close() error {
	l.connMutex.Lock()
	if l.client == nil {
		l.connMutex.Unlock()
		return nil
	}
	client := l.client
	subscribed := l.subscribed
	l.client = nil
	l.connected = false
	l.subscribed = false
	l.connMutex.Unlock()

	l.cancel(nil)

	if subscribed {
		if err := NormalizeError(client.Unsubscribe(l.rx, false)); err != nil {
			l.logger.WithField("error", err).Warn("Failed to unsubscribe from telemetry notifications")
		}
	}

	if err := client.CancelConnection(); err != nil {
		l.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		return NormalizeError(err)
	}
	l.logger.Info("BLE device disconnected successfully")
	return nil
}
