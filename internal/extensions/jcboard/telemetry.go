package jcboard

import "github.com/srg/botlink/internal/protocol"

// Button reads push button 1 or 2.
func Button(t protocol.Telemetry, n int) int {
	if n < 1 || n > 2 {
		return 0
	}
	return t.Bit(0, n-1)
}

// Analog reads analog input 1..5.
func Analog(t protocol.Telemetry, n int) int {
	if n < 1 || n > 5 {
		return 0
	}
	return t.Field(n)
}
