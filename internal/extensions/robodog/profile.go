// Package robodog drives the RoboDog quadruped. Its 36 byte frame multiplexes
// several command groups over the same parameter bytes; the low nibble of the
// mode byte tells the robot which group the bytes belong to.
package robodog

import (
	"github.com/srg/botlink/internal/protocol"
	"github.com/srg/botlink/internal/session"
)

const (
	ID              = "robodog"
	Name            = "RoboDog"
	ServiceUUID     = "2264"
	CharUUID        = "00000227-0000-1000-8000-00805f9b34fb"
	TelemetryFields = 16
	FrameSize       = 36
)

// Frame byte layout.
const (
	txSound    = 0
	txVolume   = 1
	txBodyLED  = 2 // 2..4 red, green, blue
	txBodyMode = 5
	txExtServo = 6
	txRotVel   = 7
	txMode     = 9
	txParams   = 10 // 10..17, meaning depends on the group
	txHeadLED  = 18 // 18..33
)

// Group is the command group in the low nibble of the mode byte.
type Group int8

const (
	GroupLocomotion Group = 1
	GroupLegPose    Group = 2
	GroupJoints     Group = 3
	GroupGesture    Group = 4
)

// Head LED modes in the high nibble of the mode byte.
const (
	HeadBitmap     int8 = 0x10
	HeadExpression int8 = 0x20
)

const soundToggle int8 = -0x80 // bit 7

// groupDefault is what the parameter bytes are reset to on entering a group.
func groupDefault(g Group) int8 {
	if g == GroupLegPose || g == GroupJoints {
		return -127
	}
	return 0
}

// Leg slots in the order of the legpos menu.
const (
	LegLeftUp = iota
	LegLeftDown
	LegRightDown
	LegRightUp
)

// Leg sets for SetHeight.
const (
	LegsAll = iota
	LegsFront
	LegsBack
	LegsLeft
	LegsRight
)

var legSets = [...][]int{
	LegsAll:   {0, 1, 2, 3},
	LegsFront: {0, 3},
	LegsBack:  {1, 2},
	LegsLeft:  {0, 1},
	LegsRight: {2, 3},
}

// Profile is the dog's outbound state.
type Profile struct {
	buf [FrameSize]int8
}

func NewProfile() *Profile {
	return &Profile{}
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
	p.buf = [FrameSize]int8{}
}

func (p *Profile) Tick() {}

func (p *Profile) Frame() []byte {
	return protocol.EncodeInt8(p.buf[:])
}

func (p *Profile) Ingest(protocol.Telemetry) {}

// Bytes returns a copy of the outbound frame.
func (p *Profile) Bytes() [FrameSize]int8 {
	return p.buf
}

// Group returns the active command group, 0 before any group command.
func (p *Profile) Group() Group {
	return Group(p.buf[txMode] & 0x0F)
}

// enter switches to group g. Parameters left over from another group are
// replaced by g's defaults; staying in the same group keeps them.
func (p *Profile) enter(g Group) {
	if p.Group() != g {
		def := groupDefault(g)
		for i := txParams; i < txParams+8; i++ {
			p.buf[i] = def
		}
	}
	p.buf[txMode] = p.buf[txMode]&^0x0F | int8(g)
}

func (p *Profile) setHeadMode(mode int8) {
	p.buf[txMode] = p.buf[txMode]&0x0F | mode
}

// Gesture strikes a preset pose 0..3.
func (p *Profile) Gesture(motion int) {
	p.enter(GroupGesture)
	p.buf[txParams] = int8(motion)
}

// SetHeight sets the standing height, [20, 90], of a leg set.
func (p *Profile) SetHeight(set int, height float64) {
	p.enter(GroupLocomotion)
	if set < 0 || set >= len(legSets) {
		return
	}
	h := cell(protocol.Clamp(height, 20, 90))
	for _, leg := range legSets[set] {
		p.buf[txParams+leg] = h
	}
}

// Walk walks at speed [-100, 100], negative for backwards.
func (p *Profile) Walk(speed float64) {
	p.enter(GroupLocomotion)
	p.buf[txParams+4] = cell(protocol.Clamp(speed, -100, 100))
}

// Turn spins by deg, [-1000, 1000], at vel [10, 100].
func (p *Profile) Turn(deg, vel float64) {
	p.enter(GroupLocomotion)
	d := protocol.Truncate(protocol.Clamp(deg, -1000, 1000))
	p.buf[txParams+5] = cell(protocol.Clamp(vel, 10, 100))
	p.buf[txParams+6] = int8(d & 0xFF)
	p.buf[txParams+7] = int8((d >> 8) & 0xFF)
}

// PoseLeg places one leg: height [20, 90] and foot offset [-90, 90].
func (p *Profile) PoseLeg(leg int, height, forward float64) {
	p.enter(GroupLegPose)
	if leg < 0 || leg > 3 {
		return
	}
	p.buf[txParams+2*leg] = cell(protocol.Clamp(height, 20, 90))
	p.buf[txParams+2*leg+1] = cell(protocol.Clamp(forward, -90, 90))
}

// SetJoints drives one leg's shoulder [-90, 90] and knee [-90, 70] directly.
func (p *Profile) SetJoints(leg int, shoulder, knee float64) {
	p.enter(GroupJoints)
	if leg < 0 || leg > 3 {
		return
	}
	p.buf[txParams+2*leg] = cell(protocol.Clamp(shoulder, -90, 90))
	p.buf[txParams+2*leg+1] = cell(protocol.Clamp(knee, -90, 70))
}

// SetRotationSpeed sets the joint speed, [10, 100].
func (p *Profile) SetRotationSpeed(v float64) {
	p.buf[txRotVel] = cell(protocol.Clamp(v, 10, 100))
}

// ShowExpression shows preset face 0..12 on the head LEDs.
func (p *Profile) ShowExpression(expr int) {
	p.setHeadMode(HeadExpression)
	p.buf[txHeadLED] = int8(expr)
}

// ShowBitmap draws an 8x8 picture, one byte per row with the MSB leftmost, on
// the left or right eye. The robot wants it column major.
func (p *Profile) ShowBitmap(right bool, rows [8]byte) {
	p.setHeadMode(HeadBitmap)
	base := txHeadLED
	if right {
		base += 8
	}
	for n := 0; n < 8; n++ {
		var col byte
		for k := 0; k < 8; k++ {
			col |= ((rows[k] >> (7 - n)) & 0x01) << k
		}
		p.buf[base+n] = int8(col)
	}
}

// SetBodyColor sets the body LED colour, each channel [0, 255].
func (p *Profile) SetBodyColor(r, g, b float64) {
	for i, c := range []float64{r, g, b} {
		p.buf[txBodyLED+i] = cell(protocol.Clamp(c, 0, 255))
	}
	p.buf[txBodyMode] = 0x0F
}

// PlaySound plays effect 1..3 at volume 1..3. Bit 7 flips on every call so a
// repeated effect still reads as a new request.
func (p *Profile) PlaySound(effect, volume int) {
	toggle := soundToggle
	if p.buf[txSound]&soundToggle != 0 {
		toggle = 0
	}
	p.buf[txSound] = int8(effect) | toggle
	p.buf[txVolume] = int8(volume)
}

// SetExtensionServo positions the add-on servo, [-90, 90].
func (p *Profile) SetExtensionServo(deg float64) {
	p.buf[txExtServo] = cell(protocol.Clamp(deg, -90, 90))
}

// cell stores f the way an Int8Array element assignment does.
func cell(f float64) int8 {
	return int8(protocol.Truncate(f))
}
