package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTelemetry(t *testing.T) {
	t.Run("comma separated fields", func(t *testing.T) {
		tm, err := ParseTelemetry([]byte("1,0,255,12"))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 0, 255, 12}, tm.Fields())
		assert.Equal(t, 4, tm.Len())
		assert.Equal(t, "1,0,255,12", tm.String())
	})

	t.Run("whitespace and trailing NUL tolerated", func(t *testing.T) {
		tm, err := ParseTelemetry([]byte(" 3, 4 ,5\r\n\x00"))
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4, 5}, tm.Fields())
	})

	t.Run("negative fields", func(t *testing.T) {
		tm, err := ParseTelemetry([]byte("-3,7"))
		require.NoError(t, err)
		assert.Equal(t, -3, tm.Field(0))
	})

	for _, bad := range []string{"", "   ", "1,,2", "1,x,2", "1.5"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseTelemetry([]byte(bad))
			assert.Error(t, err)
		})
	}
}

func TestTelemetryAccessors(t *testing.T) {
	tm := NewTelemetry(200, 5, 0x18, 0xFC, 3)

	assert.Equal(t, 0, tm.Field(42), "missing field MUST read as zero")
	assert.Equal(t, 0, tm.Field(-1))
	assert.Equal(t, -56, tm.Signed8(0))
	assert.Equal(t, 5, tm.Signed8(1))
	assert.Equal(t, -1000, tm.Word16(2, 3))
	assert.Equal(t, 1, tm.Bit(4, 0))
	assert.Equal(t, 1, tm.Bit(4, 1))
	assert.Equal(t, 0, tm.Bit(4, 2))
}

func TestTelemetryIsImmutable(t *testing.T) {
	src := []int{1, 2, 3}
	tm := NewTelemetry(src...)
	src[0] = 99
	out := tm.Fields()
	out[1] = 99

	assert.Equal(t, []int{1, 2, 3}, tm.Fields())
}

func TestSignExtend8RoundTrip(t *testing.T) {
	for v := -128; v < 128; v++ {
		raw := v
		if v < 0 {
			raw = v + 256
		}
		assert.Equal(t, v, SignExtend8(raw), "raw %d MUST decode to %d", raw, v)
	}
}

func TestReassemble16(t *testing.T) {
	tests := []struct {
		lo, hi   int
		expected int
	}{
		{0x34, 0x12, 0x1234},
		{0xFF, 0x7F, 32767},
		{0x00, 0x80, -32768},
		{0xFF, 0xFF, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Reassemble16(tt.lo, tt.hi))
	}
}
