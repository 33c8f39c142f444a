// Package drone drives the quadcopter family sold as AIDrone, FDrone2 and
// JDCode. The three builds share one firmware protocol: seven little-endian
// int16 words out, eleven comma separated fields back.
package drone

import (
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/session"
)

const (
	ServiceUUID     = "2261"
	CharUUID        = "00000227-0000-1000-8000-00805f9b34fb"
	TelemetryFields = 11

	// armDisableTicks is how long the arm word stays 0 after the interlock trips.
	armDisableTicks = 5
)

// Word indices of Command.
const (
	WordRoll     = 0 // left/right velocity or X target, also right_up motor
	WordPitch    = 1 // forward/back velocity or Y target, also left_up motor
	WordYaw      = 2 // heading target, also left_down motor
	WordThrottle = 3 // altitude or propeller speed, also right_down motor
	WordMode     = 4
	WordMoveVel  = 5
	WordYawVel   = 6
)

// Mode word values.
const (
	ModeArmed     int16 = 0x01
	ModeTakeoff   int16 = 0x2F
	ModePosition  int16 = 0x20
	ModeMotorTest int16 = -0x8000 // 0x8000 on the wire
)

// Command is the outbound word array.
type Command [7]int16

// Encode lays the words out little-endian.
func (c Command) Encode() []byte {
	return protocol.EncodeInt16LE(c[:])
}

// Profile is the flight state of one drone.
type Profile struct {
	variant Variant
	cmd     Command

	moveX, moveY float64
	rotation     float64
	flying       bool
	armDisable   int
}

func NewProfile(v Variant) *Profile {
	return &Profile{variant: v}
}

func (p *Profile) Descriptor() session.Descriptor {
	return session.Descriptor{
		ID:              p.variant.ID,
		Name:            p.variant.Name,
		Product:         p.variant.Product,
		ServiceUUID:     ServiceUUID,
		RxUUID:          CharUUID,
		TxUUID:          CharUUID,
		TelemetryFields: TelemetryFields,
	}
}

// Reset is the hover-safe state: motors idle, armed, default velocities.
func (p *Profile) Reset() {
	p.cmd = Command{}
	p.cmd[WordMode] = ModeArmed
	p.cmd[WordMoveVel] = 100
	p.cmd[WordYawVel] = 100
	p.moveX, p.moveY, p.rotation = 0, 0, 0
	p.flying = false
}

// Tick re-arms the drone once the interlock cool-down has run out. The
// countdown is not cleared by Reset, Takeoff or Emergency, so a takeoff
// inside the cool-down is downgraded to ModeArmed when it expires.
func (p *Profile) Tick() {
	if p.armDisable > 0 {
		p.armDisable--
		if p.armDisable == 0 {
			p.cmd[WordMode] = ModeArmed
		}
	}
}

func (p *Profile) Frame() []byte {
	return p.cmd.Encode()
}

// Ingest trips the interlock: a drone that reports a fault while flying is
// dropped to the safe state with the arm word held at 0 for a few ticks.
func (p *Profile) Ingest(t protocol.Telemetry) {
	if p.flying && t.Field(rxStatus)&statusFault != 0 {
		p.Reset()
		p.cmd[WordMode] = 0
		p.flying = false
		p.armDisable = armDisableTicks
	}
}

// Command returns a copy of the outbound words.
func (p *Profile) Command() Command {
	return p.cmd
}

func (p *Profile) Flying() bool {
	return p.flying
}

// Takeoff lifts off from the safe state. Without ready it does nothing.
func (p *Profile) Takeoff(ready bool) {
	if !ready {
		return
	}
	p.Reset()
	p.cmd[WordThrottle] = 70
	p.cmd[WordMode] = ModeTakeoff
	p.flying = true
}

func (p *Profile) Landing() {
	p.cmd[WordThrottle] = 0
	p.flying = false
}

// Altitude sets the target height in cm, [0, 150]. Ignored on the ground.
func (p *Profile) Altitude(cm float64) {
	if !p.flying {
		return
	}
	p.cmd[WordThrottle] = word(protocol.Clamp(cm, 0, 150))
}

// Velocity flies continuously in direction (a FBRLValues entry) at [0, 200]
// cm/s and leaves position mode. Ignored on the ground.
func (p *Profile) Velocity(direction string, v float64) {
	if !p.flying {
		return
	}
	v = protocol.Clamp(v, 0, 200)
	switch direction {
	case "forward":
		p.cmd[WordPitch] = word(v)
	case "backward":
		p.cmd[WordPitch] = word(-v)
	case "right":
		p.cmd[WordRoll] = word(v)
	case "left":
		p.cmd[WordRoll] = word(-v)
	}
	p.cmd[WordMode] &^= ModePosition
}

// Move adds a relative displacement to the position target. Ignored on the ground.
func (p *Profile) Move(direction string, dist, v float64) {
	if !p.flying {
		return
	}
	dist = protocol.Clamp(dist, 0, 2000)
	v = protocol.Clamp(v, 0, 200)
	switch direction {
	case "forward":
		p.moveY += dist
	case "backward":
		p.moveY -= dist
	case "right":
		p.moveX += dist
	case "left":
		p.moveX -= dist
	}
	p.cmd[WordRoll] = word(p.moveX)
	p.cmd[WordPitch] = word(p.moveY)
	p.cmd[WordMode] |= ModePosition
	p.cmd[WordMoveVel] = word(v)
}

// Rotate adds deg, [0, 179], to the heading target. Anything but clockwise
// turns the other way. Ignored on the ground.
func (p *Profile) Rotate(clockwise bool, deg, v float64) {
	if !p.flying {
		return
	}
	deg = protocol.Clamp(deg, 0, 179)
	v = protocol.Clamp(v, 0, 200)
	if clockwise {
		p.rotation += deg
	} else {
		p.rotation -= deg
	}
	p.cmd[WordYaw] = word(p.rotation)
	p.cmd[WordYawVel] = word(v)
}

// Propeller spins all props at speed percent. Above 100 runs them flat out.
func (p *Profile) Propeller(speed float64) {
	switch {
	case speed > 100:
		speed = 1000
	case speed < 0:
		speed = 0
	default:
		speed *= 10
	}
	p.cmd[WordThrottle] = word(speed)
	p.cmd[WordMode] = ModeArmed
}

// MotorTest spins one motor (a LTRBValues entry) at [0, 100].
func (p *Profile) MotorTest(motor string, speed float64) {
	v := word(protocol.Clamp(speed, 0, 100))
	switch motor {
	case "left_down":
		p.cmd[WordYaw] = v
	case "left_up":
		p.cmd[WordPitch] = v
	case "right_down":
		p.cmd[WordThrottle] = v
	case "right_up":
		p.cmd[WordRoll] = v
	}
	p.cmd[WordMode] = ModeMotorTest
}

// Emergency cuts everything, the arm word included.
func (p *Profile) Emergency() {
	p.flying = false
	p.moveX, p.moveY, p.rotation = 0, 0, 0
	p.cmd = Command{}
	p.cmd[WordMoveVel] = 100
	p.cmd[WordYawVel] = 100
}

// word stores f the way an Int16Array element assignment does.
func word(f float64) int16 {
	return int16(protocol.Truncate(f))
}
