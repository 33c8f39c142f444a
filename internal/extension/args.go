package extension

import (
	"strconv"

	"github.com/srg/botlink/internal/protocol"
)

// Args are the named arguments of one block call. Menu arguments hold the
// canonical item value after Extension.Call resolved them.
type Args map[string]any

// Number casts the argument to a number. Missing or garbage input is 0.
func (a Args) Number(name string) float64 {
	v := a[name]
	if mv, ok := v.(menuValue); ok {
		v = string(mv)
	}
	return protocol.Number(v)
}

// Int truncates the argument toward zero.
func (a Args) Int(name string) int {
	return protocol.Truncate(a.Number(name))
}

// String renders the argument as text.
func (a Args) String(name string) string {
	return stringify(a[name])
}

// Item returns a menu argument. Values outside the menu come back as "".
func (a Args) Item(name string) string {
	if v, ok := a[name].(menuValue); ok {
		return string(v)
	}
	return ""
}

// menuValue marks an argument that matched its menu.
type menuValue string

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case menuValue:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
