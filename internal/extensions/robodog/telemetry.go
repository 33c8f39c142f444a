package robodog

import "github.com/srg/botlink/internal/protocol"

const (
	rxBattery  = 0
	rxDistance = 1
	rxTiltLR   = 2
	rxTiltFB   = 3
	rxYawLo    = 4
	rxYawHi    = 5
	rxPiData   = 12 // 12..15 values relayed from the Raspberry Pi
)

func Battery(t protocol.Telemetry) int { return t.Field(rxBattery) }

// Distance is the time-of-flight sensor reading.
func Distance(t protocol.Telemetry) int { return t.Field(rxDistance) }

// Tilt reads the roll angle when lr is set, the pitch angle otherwise.
func Tilt(t protocol.Telemetry, lr bool) int {
	if lr {
		return t.Signed8(rxTiltLR)
	}
	return t.Signed8(rxTiltFB)
}

func Yaw(t protocol.Telemetry) int { return t.Word16(rxYawLo, rxYawHi) }

// PiData reads relay slot 0..3.
func PiData(t protocol.Telemetry, n int) int {
	if n < 0 || n > 3 {
		n = 0
	}
	return t.Field(rxPiData + n)
}
