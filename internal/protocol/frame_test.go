package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeInt16LE(t *testing.T) {
	got := EncodeInt16LE([]int16{0, 1, -1, 100, math.MinInt16, 0x1234, 70})
	assert.Equal(t, []byte{
		0x00, 0x00,
		0x01, 0x00,
		0xFF, 0xFF,
		0x64, 0x00,
		0x00, 0x80,
		0x34, 0x12,
		0x46, 0x00,
	}, got)
}

func TestEncodeInt8(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x81, 0x7F, 0xFF}, EncodeInt8([]int8{0, -127, 127, -1}))
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected float64
	}{
		{name: "float", in: 12.5, expected: 12.5},
		{name: "int", in: 7, expected: 7},
		{name: "numeric string", in: " 42 ", expected: 42},
		{name: "negative string", in: "-3.5", expected: -3.5},
		{name: "empty string", in: "", expected: 0},
		{name: "garbage string", in: "abc", expected: 0},
		{name: "hex string", in: "0x3C", expected: 60},
		{name: "binary string", in: "0b00111100", expected: 60},
		{name: "signed hex is garbage", in: "-0x10", expected: 0},
		{name: "NaN", in: math.NaN(), expected: 0},
		{name: "true", in: true, expected: 1},
		{name: "nil", in: nil, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Number(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, 3, Truncate(3.9))
	assert.Equal(t, -3, Truncate(-3.9))
	assert.Equal(t, 0, Truncate(math.Inf(1)))
	assert.Equal(t, 0, Truncate(math.NaN()))
	assert.Equal(t, 50, Int("50.7"))
}
