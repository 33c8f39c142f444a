package protocol

import "encoding/binary"

// EncodeInt16LE serializes words as consecutive little-endian byte pairs.
func EncodeInt16LE(words []int16) []byte {
	out := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(w))
	}
	return out
}

// EncodeInt8 reinterprets signed bytes for the wire.
func EncodeInt8(values []int8) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v)
	}
	return out
}
