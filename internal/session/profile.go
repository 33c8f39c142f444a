package session

import (
	"fmt"

	"github.com/srg/botlink/internal/protocol"
)

// Descriptor identifies a device family and the GATT endpoints it talks over.
type Descriptor struct {
	ID   string
	Name string
	// Product names the device in user-facing errors. Name is used when empty.
	Product         string
	ServiceUUID     string
	RxUUID          string
	TxUUID          string
	TelemetryFields int
}

// DataStoppedMessage is the text signalled when the device goes silent.
func (d Descriptor) DataStoppedMessage() string {
	return fmt.Sprintf("%s extension stopped receiving data", d.product())
}

func (d Descriptor) product() string {
	if d.Product == "" {
		return d.Name
	}
	return d.Product
}

// Profile is the per-device half of a session: the outbound command state and
// the logic that reacts to telemetry. The session serializes every call, so
// implementations need no locking of their own.
type Profile interface {
	Descriptor() Descriptor
	// Reset puts the outbound state into the device's safe state.
	Reset()
	// Tick runs once per poll period before the frame is taken.
	Tick()
	// Frame serializes the outbound state into a fresh wire frame.
	Frame() []byte
	// Ingest runs synchronously for every parsed telemetry message.
	Ingest(t protocol.Telemetry)
}

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Scanning
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Scanning:
		return "scanning"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
