package drone

import "github.com/srg/botlink/internal/protocol"

const (
	rxStatus  = 0
	rxBattery = 1
	rxTiltLR  = 2
	rxTiltFB  = 3
	rxAlt     = 4
	rxMoveXLo = 5
	rxMoveXHi = 6
	rxMoveYLo = 7
	rxMoveYHi = 8

	statusFault    = 0x01
	statusNotReady = 0x03
)

// Ready is true when no status bit blocks takeoff.
func Ready(t protocol.Telemetry) bool {
	return t.Field(rxStatus)&statusNotReady == 0
}

func Battery(t protocol.Telemetry) int { return t.Field(rxBattery) }

func Altitude(t protocol.Telemetry) int { return t.Field(rxAlt) }

// Tilt reads the roll angle when lr is set, the pitch angle otherwise.
func Tilt(t protocol.Telemetry, lr bool) int {
	if lr {
		return t.Signed8(rxTiltLR)
	}
	return t.Signed8(rxTiltFB)
}

// Displacement reads the X (lr) or Y position estimate.
func Displacement(t protocol.Telemetry, lr bool) int {
	if lr {
		return t.Word16(rxMoveXLo, rxMoveXHi)
	}
	return t.Word16(rxMoveYLo, rxMoveYHi)
}
