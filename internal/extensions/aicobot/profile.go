// Package aicobot drives the AICoBot ground robot: two wheel motors, two
// servos, LEDs, a buzzer and an IR/ultrasonic/joystick sensor set.
package aicobot

import (
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/session"
)

const (
	ID          = "aicobot"
	Name        = "AICoBot"
	ServiceUUID = "2261"
	CharUUID    = "00000227-0000-1000-8000-00805f9b34fb"

	// TelemetryFields is the number of comma separated values the robot reports.
	TelemetryFields = 12
	sequenceBound   = 14
)

// LED bits of Command.LED. The lit flag is set together with a side and is
// not cleared when a side is switched off.
const (
	LEDRight byte = 0x01
	LEDLeft  byte = 0x02
	LEDLit   byte = 0x10
)

// IR sensor enable bits of Command.IR.
const (
	IRLeft   byte = 0x01
	IRMiddle byte = 0x02
	IRRight  byte = 0x04
)

// Command is the 12 byte outbound frame.
type Command struct {
	LED       byte   // [0]
	Tone      byte   // [1] note | tune id<<4
	ToneTicks byte   // [2] 100 ms units
	MotorR    int8   // [3]
	MotorL    int8   // [4]
	Move      uint16 // [5] lo, [6] hi: 12 bit distance | move id<<12
	Rotate    uint16 // [7] lo, [8] hi: 12 bit angle | rotate id<<12
	Servo1    int8   // [9]
	Servo2    int8   // [10]
	IR        byte   // [11]
}

// Encode lays the command out on the wire.
func (c *Command) Encode() []byte {
	moveLo, moveHi := protocol.SplitWord(c.Move)
	rotLo, rotHi := protocol.SplitWord(c.Rotate)
	return []byte{
		c.LED,
		c.Tone,
		c.ToneTicks,
		byte(c.MotorR),
		byte(c.MotorL),
		moveLo, moveHi,
		rotLo, rotHi,
		byte(c.Servo1),
		byte(c.Servo2),
		c.IR,
	}
}

// Profile holds the outbound state. It is driven by the session, which
// serializes all calls.
type Profile struct {
	cmd    Command
	tune   *protocol.Sequence
	move   *protocol.Sequence
	rotate *protocol.Sequence
}

func NewProfile() *Profile {
	return &Profile{
		tune:   protocol.NewSequence(sequenceBound),
		move:   protocol.NewSequence(sequenceBound),
		rotate: protocol.NewSequence(sequenceBound),
	}
}

func (p *Profile) Descriptor() session.Descriptor {
	return session.Descriptor{
		ID:              ID,
		Name:            Name,
		ServiceUUID:     ServiceUUID,
		RxUUID:          CharUUID,
		TxUUID:          CharUUID,
		TelemetryFields: TelemetryFields,
	}
}

// Reset zeroes the frame. Sequence ids keep counting so the robot still sees
// the next command as new.
func (p *Profile) Reset() {
	p.cmd = Command{}
}

func (p *Profile) Tick() {}

func (p *Profile) Frame() []byte {
	return p.cmd.Encode()
}

func (p *Profile) Ingest(protocol.Telemetry) {}

// Command returns a copy of the outbound state.
func (p *Profile) Command() Command {
	return p.cmd
}

// SetLED switches one side. Switching on also sets the lit flag.
func (p *Profile) SetLED(side byte, on bool) {
	if on {
		p.cmd.LED = protocol.SetBits(p.cmd.LED, side|LEDLit)
		return
	}
	p.cmd.LED = protocol.ClearBits(p.cmd.LED, side)
}

// Buzz plays note (1..7, 0 for none) for ticks*100 ms. A fresh tune id is
// taken even when the note repeats.
func (p *Profile) Buzz(note int, ticks byte) {
	id := p.tune.Next()
	p.cmd.Tone = protocol.PackNibble(note, id)
	if ticks > 0 {
		p.cmd.ToneTicks = ticks
	}
}

// SetMotor sets one wheel power in [-100, 100].
func (p *Profile) SetMotor(right bool, power float64) {
	v := int8(protocol.Truncate(protocol.Clamp(power, -100, 100)))
	if right {
		p.cmd.MotorR = v
	} else {
		p.cmd.MotorL = v
	}
}

// Move drives a distance in cm, negative for backwards, saturated at ±1000.
func (p *Profile) Move(cm float64) {
	v := protocol.Truncate(protocol.Clamp(cm, -1000, 1000))
	p.cmd.Move = protocol.Pack12(v, p.move.Next())
}

// Rotate turns by degrees, negative for counterclockwise, saturated at ±1000.
func (p *Profile) Rotate(deg float64) {
	v := protocol.Truncate(protocol.Clamp(deg, -1000, 1000))
	p.cmd.Rotate = protocol.Pack12(v, p.rotate.Next())
}

// SetServo positions servo 1 or 2 in [-90, 90] degrees.
func (p *Profile) SetServo(first bool, deg float64) {
	v := int8(protocol.Truncate(protocol.Clamp(deg, -90, 90)))
	if first {
		p.cmd.Servo1 = v
	} else {
		p.cmd.Servo2 = v
	}
}

// SetIR enables or disables IR sensors.
func (p *Profile) SetIR(mask byte, on bool) {
	p.cmd.IR = protocol.ApplyFlag(p.cmd.IR, mask, on)
}
