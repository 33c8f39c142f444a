package aicobot

import "github.com/srg/botlink/internal/protocol"

// Telemetry field layout.
const (
	rxButton     = 0
	rxIR         = 1 // 1..3 left, middle, right
	rxUltrasonic = 4
	rxJoyFB      = 5
	rxJoyLR      = 6
	rxTiltFB     = 7
	rxTiltLR     = 8
	rxSound      = 9
	rxIllum      = 10
	rxMode       = 11

	// modeUnsignedJoystick reports the left/right joystick axis unsigned.
	modeUnsignedJoystick = 4
)

// Button is the push button state.
func Button(t protocol.Telemetry) int { return t.Field(rxButton) }

// IR reads sensor 0 (left), 1 (middle) or 2 (right).
func IR(t protocol.Telemetry, sensor int) int { return t.Field(rxIR + sensor) }

func Ultrasonic(t protocol.Telemetry) int { return t.Field(rxUltrasonic) }

// Joystick reads the forward/back axis, or the left/right axis when lr is set.
func Joystick(t protocol.Telemetry, lr bool) int {
	if !lr {
		return t.Signed8(rxJoyFB)
	}
	if t.Field(rxMode) == modeUnsignedJoystick {
		return t.Field(rxJoyLR)
	}
	return t.Signed8(rxJoyLR)
}

// Tilt reads the forward/back angle, or left/right when lr is set.
func Tilt(t protocol.Telemetry, lr bool) int {
	if lr {
		return t.Signed8(rxTiltLR)
	}
	return t.Signed8(rxTiltFB)
}

func Sound(t protocol.Telemetry) int { return t.Signed8(rxSound) }

func Illumination(t protocol.Telemetry) int { return t.Field(rxIllum) }
