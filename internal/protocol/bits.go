package protocol

import "cmp"

// Clamp saturates v into [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetBits returns b with every bit of mask set.
func SetBits(b, mask byte) byte {
	return b | mask
}

// ClearBits returns b with every bit of mask cleared.
func ClearBits(b, mask byte) byte {
	return b &^ mask
}

// HasBits reports whether all bits of mask are set in b.
func HasBits(b, mask byte) bool {
	return b&mask == mask
}

// BitOf returns bit n of v as 0 or 1.
func BitOf(v, n int) int {
	return (v >> n) & 1
}

// ApplyFlag sets or clears mask depending on on.
func ApplyFlag(b, mask byte, on bool) byte {
	if on {
		return SetBits(b, mask)
	}
	return ClearBits(b, mask)
}

// Sequence is a small wrapping counter used to tag successive commands.
// Values run 1..Bound and never produce 0.
type Sequence struct {
	Bound int
	cur   int
}

// NewSequence returns a counter wrapping after bound.
func NewSequence(bound int) *Sequence {
	return &Sequence{Bound: bound}
}

// Next advances the counter and returns the new id.
func (s *Sequence) Next() int {
	if s.cur < s.Bound {
		s.cur++
	} else {
		s.cur = 1
	}
	return s.cur
}

// Current returns the last id handed out, or 0 before the first Next.
func (s *Sequence) Current() int {
	return s.cur
}

// Pack12 packs the low 12 bits of value with a 4-bit id in the high nibble.
func Pack12(value, id int) uint16 {
	return uint16(value&0x0FFF) | uint16(id&0x0F)<<12
}

// PackNibble puts lo in the low nibble and hi in the high nibble of one byte.
func PackNibble(lo, hi int) byte {
	return byte(lo&0x0F) | byte(hi&0x0F)<<4
}

// SplitWord splits w into its little-endian bytes.
func SplitWord(w uint16) (lo, hi byte) {
	return byte(w), byte(w >> 8)
}
