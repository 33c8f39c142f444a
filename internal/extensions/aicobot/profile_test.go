package aicobot

import (
	"testing"

	"github.com/srg/botlink/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeStateIsZero(t *testing.T) {
	p := NewProfile()
	p.SetMotor(true, 50)
	p.SetLED(LEDLeft, true)
	p.Reset()

	assert.Equal(t, make([]byte, 12), p.Frame())
}

func TestLED(t *testing.T) {
	p := NewProfile()

	p.SetLED(LEDRight, true)
	assert.Equal(t, byte(0x11), p.Command().LED)

	p.SetLED(LEDLeft, true)
	assert.Equal(t, byte(0x13), p.Command().LED)

	p.SetLED(LEDRight, false)
	assert.Equal(t, byte(0x12), p.Command().LED, "switching one side off MUST keep the other side and the lit flag")

	p.SetLED(LEDLeft, false)
	assert.Equal(t, byte(0x10), p.Command().LED)
}

func TestIRBitsRoundTrip(t *testing.T) {
	p := NewProfile()
	for _, mask := range []byte{IRLeft, IRMiddle, IRRight} {
		p.SetIR(mask, true)
		assert.True(t, protocol.HasBits(p.Command().IR, mask))
	}
	assert.Equal(t, byte(0x07), p.Command().IR)

	p.SetIR(IRMiddle, false)
	assert.Equal(t, byte(0x05), p.Command().IR)
}

func TestMotorAndServoClamp(t *testing.T) {
	p := NewProfile()

	p.SetMotor(true, 150)
	p.SetMotor(false, -250)
	p.SetServo(true, 120)
	p.SetServo(false, -45.9)

	c := p.Command()
	assert.Equal(t, int8(100), c.MotorR)
	assert.Equal(t, int8(-100), c.MotorL)
	assert.Equal(t, int8(90), c.Servo1)
	assert.Equal(t, int8(-45), c.Servo2)

	frame := p.Frame()
	assert.Equal(t, byte(100), frame[3])
	assert.Equal(t, byte(0x9C), frame[4])
	assert.Equal(t, byte(90), frame[9])
	assert.Equal(t, byte(0xD3), frame[10])
}

func TestMovePacksDistanceAndID(t *testing.T) {
	p := NewProfile()

	p.Move(100)
	frame := p.Frame()
	assert.Equal(t, byte(0x64), frame[5])
	assert.Equal(t, byte(0x10), frame[6], "first move MUST carry id 1")

	p.Move(-100)
	frame = p.Frame()
	assert.Equal(t, byte(0x9C), frame[5])
	assert.Equal(t, byte(0x2F), frame[6])

	p.Move(5000)
	assert.Equal(t, protocol.Pack12(1000, 3), p.Command().Move, "distance MUST saturate at 1000")
}

func TestSequenceIDsWrap(t *testing.T) {
	p := NewProfile()
	for i := 1; i <= 14; i++ {
		p.Rotate(90)
		assert.Equal(t, uint16(i), p.Command().Rotate>>12)
	}
	p.Rotate(90)
	assert.Equal(t, uint16(1), p.Command().Rotate>>12, "the id after 14 MUST be 1")

	p.Reset()
	p.Rotate(90)
	assert.Equal(t, uint16(2), p.Command().Rotate>>12, "reset MUST NOT restart the id counter")
}

func TestBuzz(t *testing.T) {
	p := NewProfile()

	p.Buzz(3, 10)
	assert.Equal(t, byte(0x13), p.Command().Tone)
	assert.Equal(t, byte(10), p.Command().ToneTicks)

	p.Buzz(3, 0)
	assert.Equal(t, byte(0x23), p.Command().Tone, "a repeated note MUST take a fresh tune id")
	assert.Equal(t, byte(10), p.Command().ToneTicks, "a zero delay MUST keep the previous duration")
}

func TestTelemetryDecoders(t *testing.T) {
	tel := protocol.NewTelemetry(1, 0, 1, 1, 42, 200, 250, 10, 246, 128, 77, 0)

	assert.Equal(t, 1, Button(tel))
	assert.Equal(t, 0, IR(tel, 0))
	assert.Equal(t, 1, IR(tel, 2))
	assert.Equal(t, 42, Ultrasonic(tel))
	assert.Equal(t, -56, Joystick(tel, false))
	assert.Equal(t, -6, Joystick(tel, true))
	assert.Equal(t, 10, Tilt(tel, false))
	assert.Equal(t, -10, Tilt(tel, true))
	assert.Equal(t, -128, Sound(tel))
	assert.Equal(t, 77, Illumination(tel))

	unsigned := protocol.NewTelemetry(0, 0, 0, 0, 0, 0, 250, 0, 0, 0, 0, 4)
	assert.Equal(t, 250, Joystick(unsigned, true), "mode 4 MUST report the left/right axis unsigned")

	require.Equal(t, 0, Illumination(protocol.NewTelemetry()), "missing fields MUST read as zero")
}
