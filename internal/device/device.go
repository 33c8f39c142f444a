package device

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NotFoundError reports a GATT resource missing from the discovered profile.
type NotFoundError struct {
	Resource string   // "service" or "characteristic"
	UUIDs    []string // [serviceUUID] or [serviceUUID, charUUID]
}

func (e *NotFoundError) Error() string {
	switch len(e.UUIDs) {
	case 0:
		return fmt.Sprintf("%s not found", e.Resource)
	case 1:
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	default:
		return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
	}
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
	BluetoothOff     ConnectionState = "bluetooth_off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
	ErrBluetoothOff     = &ConnectionError{State: BluetoothOff}
)

var (
	ErrTimeout     = errors.New("timeout")
	ErrUnsupported = errors.New("unsupported")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// Advertisement is the subset of an advertising report the robots care about.
type Advertisement interface {
	LocalName() string
	Addr() string
	RSSI() int
	Services() []string
	ManufacturerData() []byte
	Connectable() bool
}

// Scanner reports advertisements until ctx ends.
type Scanner interface {
	Scan(ctx context.Context, allowDup bool, handler func(Advertisement)) error
}

// ConnectOptions selects the peripheral and the characteristic pair used for
// the command/telemetry exchange. Rx and Tx may name the same characteristic.
type ConnectOptions struct {
	Address        string
	ServiceUUID    string
	RxUUID         string
	TxUUID         string
	ConnectTimeout time.Duration
}

// Link is an open connection bound to one rx/tx characteristic pair.
type Link interface {
	// Write sends data to the tx characteristic.
	Write(ctx context.Context, data []byte, withResponse bool) error
	// Subscribe enables notifications on the rx characteristic.
	Subscribe(handler func([]byte)) error
	// Done is closed once the link is gone, whether closed locally or lost.
	Done() <-chan struct{}
	// Err returns why Done was closed: nil after Close, ErrNotConnected on loss.
	Err() error
	IsConnected() bool
	Close() error
}

// Transport discovers peripherals and opens links to them.
type Transport interface {
	Scanner
	Connect(ctx context.Context, opts *ConnectOptions) (Link, error)
}

// AdvertisesAny reports whether adv lists at least one of the given service UUIDs.
// An empty filter matches everything.
func AdvertisesAny(adv Advertisement, serviceUUIDs []string) bool {
	if len(serviceUUIDs) == 0 {
		return true
	}
	for _, s := range adv.Services() {
		n := NormalizeUUID(s)
		for _, want := range serviceUUIDs {
			if n == NormalizeUUID(want) {
				return true
			}
		}
	}
	return false
}
