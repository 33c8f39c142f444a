package device

import (
	"fmt"
	"strings"
)

const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID to the lowercase, dash-less form used for
// lookups. A 0x prefix is stripped and UUIDs in the Bluetooth SIG base form
// (0000xxxx-0000-1000-8000-00805f9b34fb) shrink to their 16-bit short form.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")
	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, sigBaseSuffix) {
		return s[4:8]
	}
	return s
}

// NormalizeUUIDs normalizes every element of uuids.
func NormalizeUUIDs(uuids []string) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = NormalizeUUID(u)
	}
	return out
}

// ValidateUUID validates that UUID strings are non-empty and well-formed.
// Returns normalized UUID strings or an error.
func ValidateUUID(uuids ...string) ([]string, error) {
	if len(uuids) == 0 {
		return nil, fmt.Errorf("at least one UUID is required")
	}

	result := make([]string, 0, len(uuids))
	for i, uuid := range uuids {
		if uuid == "" {
			return nil, fmt.Errorf("UUID at index %d cannot be empty", i)
		}
		normalized := NormalizeUUID(uuid)
		if !isHex(normalized) {
			return nil, fmt.Errorf("invalid UUID format at index %d: %s", i, uuid)
		}
		switch len(normalized) {
		case 4, 8, 32:
		default:
			return nil, fmt.Errorf("invalid UUID length at index %d: %s", i, uuid)
		}
		result = append(result, normalized)
	}
	return result, nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
