// Package jcboard drives the JCBoard maker board: two DC motors, four servos,
// five digital pins, a buzzer and an ultrasonic sensor on a selectable port.
package jcboard

import (
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/session"
)

const (
	ID              = "jcboard"
	Name            = "JCBoard"
	ServiceUUID     = "2262"
	CharUUID        = "00000227-0000-1000-8000-00805f9b34fb"
	TelemetryFields = 11
	FrameSize       = 20

	sequenceBound = 14
)

// Frame byte layout.
const (
	txLED        = 0
	txDigital    = 1
	txTone       = 2
	txToneTicks  = 3
	txMotor      = 4 // 4..5
	txServo      = 6 // 6..9
	txUltrasonic = 10
)

// LED bits, shared with the AICoBot layout.
const (
	LEDFirst  byte = 0x01
	LEDSecond byte = 0x02
	LEDLit    byte = 0x10
)

// Profile is the board's outbound state.
type Profile struct {
	buf          [FrameSize]byte
	tune         *protocol.Sequence
	tuneDuration int
}

func NewProfile() *Profile {
	return &Profile{tune: protocol.NewSequence(sequenceBound)}
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

func (p *Profile) Reset() {
	p.buf = [FrameSize]byte{}
}

// Tick counts the tone down and silences the buzzer when it runs out.
func (p *Profile) Tick() {
	if p.tuneDuration > 0 {
		p.tuneDuration--
		if p.tuneDuration == 0 {
			p.buf[txTone] = 0
			p.buf[txToneTicks] = 0
		}
	}
}

func (p *Profile) Frame() []byte {
	out := make([]byte, FrameSize)
	copy(out, p.buf[:])
	return out
}

func (p *Profile) Ingest(protocol.Telemetry) {}

// Bytes returns a copy of the outbound frame.
func (p *Profile) Bytes() [FrameSize]byte {
	return p.buf
}

// UseUltrasonic routes the ultrasonic sensor to port 1..5.
func (p *Profile) UseUltrasonic(port int) {
	if port < 1 || port > 5 {
		return
	}
	p.buf[txUltrasonic] = 1 << (port - 1)
}

// SetLED switches LED 1 or 2.
func (p *Profile) SetLED(first, on bool) {
	side := LEDSecond
	if first {
		side = LEDFirst
	}
	if on {
		p.buf[txLED] = protocol.SetBits(p.buf[txLED], side|LEDLit)
		return
	}
	p.buf[txLED] = protocol.ClearBits(p.buf[txLED], side)
}

// Buzz plays note 1..7 for ticks*100 ms; a zero ticks keeps the previous
// duration.
func (p *Profile) Buzz(note int, ticks byte) {
	p.buf[txTone] = protocol.PackNibble(note, p.tune.Next())
	if ticks > 0 {
		p.buf[txToneTicks] = ticks
	}
	p.tuneDuration = int(p.buf[txToneTicks])
}

// SetMotor sets DC motor 1 or 2 to [-100, 100].
func (p *Profile) SetMotor(first bool, power float64) {
	i := txMotor + 1
	if first {
		i = txMotor
	}
	p.buf[i] = byte(protocol.Truncate(protocol.Clamp(power, -100, 100)))
}

// SetServo positions servo 1..4 in [-90, 90] degrees.
func (p *Profile) SetServo(n int, deg float64) {
	if n < 1 || n > 4 {
		return
	}
	p.buf[txServo+n-1] = byte(protocol.Truncate(protocol.Clamp(deg, -90, 90)))
}

// SetDigital drives digital pin 1..5.
func (p *Profile) SetDigital(pin int, high bool) {
	if pin < 1 || pin > 5 {
		return
	}
	p.buf[txDigital] = protocol.ApplyFlag(p.buf[txDigital], 1<<(pin-1), high)
}
