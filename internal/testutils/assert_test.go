package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingT struct {
	messages []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func TestTextAsserter(t *testing.T) {
	t.Run("trailing whitespace ignored by default", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewTextAsserter(rt).Assert("a  \nb\n\n", "a\nb")
		assert.True(t, ok)
		assert.Empty(t, rt.messages)
	})

	t.Run("difference reported as unified diff", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewTextAsserter(rt).Assert("motor 1\nled 2", "motor 1\nled 3")
		assert.False(t, ok)
		if assert.Len(t, rt.messages, 1) {
			assert.Contains(t, rt.messages[0], "-led 3")
			assert.Contains(t, rt.messages[0], "+led 2")
		}
	})

	t.Run("empty lines optionally ignored", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewTextAsserter(rt).WithOptions(WithIgnoreEmptyLines(true)).Assert("a\n\nb", "a\nb")
		assert.True(t, ok)
	})
}

func TestJSONAsserter(t *testing.T) {
	t.Run("extra keys ignored", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewJSONAsserter(rt).Assert(`{"id":"aicobot","name":"AICoBot"}`, `{"id":"aicobot"}`)
		assert.True(t, ok)
	})

	t.Run("presence placeholder", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewJSONAsserter(rt).Assert(`{"id":"x","rssi":-40}`, `{"id":"x","rssi":"<<PRESENCE>>"}`)
		assert.True(t, ok)
	})

	t.Run("root arrays compared", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewJSONAsserter(rt).Assert(`[{"a":1},{"a":2}]`, `[{"a":1},{"a":3}]`)
		assert.False(t, ok)
		assert.Len(t, rt.messages, 1)
	})

	t.Run("strict mode reports extra keys", func(t *testing.T) {
		rt := &recordingT{}
		ok := NewJSONAsserter(rt).WithOptions(WithIgnoreExtraKeys(false)).Assert(`{"a":1,"b":2}`, `{"a":1}`)
		assert.False(t, ok)
	})
}
