package fields

import (
	"math"
	"strconv"
	"strings"
)

// ParseCount parses an integer counter cell. Integral float notation such as
// "12.0" is accepted because some SIPp builds print counters that way.
func ParseCount(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, malformed(s, "empty value")
	}
	if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, malformed(s, "not an integer")
	}
	return int64(f), nil
}

// ParseRate parses a floating-point rate cell such as CallRate(P).
func ParseRate(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, malformed(s, "empty value")
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, malformed(s, "not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, malformed(s, "not a finite number")
	}
	return f, nil
}
