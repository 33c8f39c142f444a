package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Telemetry is an immutable snapshot of the fields reported by a device.
// A new snapshot replaces the previous one wholesale.
type Telemetry struct {
	fields []int
}

// NewTelemetry copies fields into a snapshot.
func NewTelemetry(fields ...int) Telemetry {
	cp := make([]int, len(fields))
	copy(cp, fields)
	return Telemetry{fields: cp}
}

// ParseTelemetry decodes a comma-delimited text frame such as "1,0,255,12".
func ParseTelemetry(data []byte) (Telemetry, error) {
	text := strings.TrimSpace(string(bytes.TrimRight(data, "\x00")))
	if text == "" {
		return Telemetry{}, fmt.Errorf("empty telemetry frame")
	}

	tokens := strings.Split(text, ",")
	fields := make([]int, len(tokens))
	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return Telemetry{}, fmt.Errorf("telemetry field %d is empty", i)
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return Telemetry{}, fmt.Errorf("telemetry field %d: %w", i, err)
		}
		fields[i] = v
	}
	return Telemetry{fields: fields}, nil
}

// Len returns the number of fields.
func (t Telemetry) Len() int {
	return len(t.fields)
}

// Field returns field i, or 0 when the device did not report it.
func (t Telemetry) Field(i int) int {
	if i < 0 || i >= len(t.fields) {
		return 0
	}
	return t.fields[i]
}

// Signed8 returns field i reinterpreted as a signed byte.
func (t Telemetry) Signed8(i int) int {
	return SignExtend8(t.Field(i))
}

// Word16 reassembles a signed 16-bit value from two byte fields.
func (t Telemetry) Word16(lo, hi int) int {
	return Reassemble16(t.Field(lo), t.Field(hi))
}

// Bit returns bit n of field i as 0 or 1.
func (t Telemetry) Bit(i, n int) int {
	return BitOf(t.Field(i), n)
}

// Fields returns a copy of all fields.
func (t Telemetry) Fields() []int {
	cp := make([]int, len(t.fields))
	copy(cp, t.fields)
	return cp
}

func (t Telemetry) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ",")
}

// SignExtend8 maps values >= 128 to value-256.
func SignExtend8(v int) int {
	if v > 127 {
		return v - 256
	}
	return v
}

// Reassemble16 builds lo|hi<<8 and sign-extends values >= 0x8000.
func Reassemble16(lo, hi int) int {
	v := (lo & 0xFF) | (hi&0xFF)<<8
	if v >= 0x8000 {
		return v - 0x10000
	}
	return v
}
