package protocol

import (
	"math"
	"strconv"
	"strings"
)

// Number converts a block argument to a float64.
// Unparseable input and NaN become 0, the way block runtimes treat loose arguments.
func Number(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint8:
		f = float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return prefixedInt(s)
		}
		f = p
	default:
		return 0
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// Truncate drops the fractional part toward zero. Non-finite values become 0.
func Truncate(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Trunc(f))
}

// Int is Truncate(Number(v)).
func Int(v any) int {
	return Truncate(Number(v))
}

// prefixedInt accepts the unsigned 0x, 0o and 0b literals block editors pass
// through for bit patterns.
func prefixedInt(s string) float64 {
	if len(s) < 3 || s[0] != '0' || !strings.ContainsRune("xXoObB", rune(s[1])) {
		return 0
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0
	}
	return float64(v)
}
