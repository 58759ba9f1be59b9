package fields

import (
	"strconv"
	"strings"
)

// ParseDuration parses an HH:MM:SS:microseconds field such as "01:02:03:500000".
// Exactly four non-negative integer components are required. Components are not
// range checked, so "00:00:95:0" is 95 seconds.
//
// On failure the returned duration is zero and the error wraps ErrMalformedField.
// Callers decide whether zero is an acceptable fallback.
func ParseDuration(s string) (Duration, error) {
	parts, err := splitComponents(s, 4, 4)
	if err != nil {
		return 0, err
	}

	whole := parts[0]*3600 + parts[1]*60 + parts[2]
	return Duration(float64(whole) + float64(parts[3])/1e6), nil
}

// ParseElapsed parses the cumulative elapsed-time counter and truncates it to
// whole seconds. Both the HH:MM:SS form and the HH:MM:SS:microseconds form
// written by newer SIPp versions are accepted.
func ParseElapsed(s string) (int64, error) {
	parts, err := splitComponents(s, 3, 4)
	if err != nil {
		return 0, err
	}
	return int64(parts[0]*3600 + parts[1]*60 + parts[2]), nil
}

func splitComponents(s string, minParts, maxParts int) ([]uint64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, malformed(s, "empty value")
	}

	tokens := strings.Split(trimmed, ":")
	if len(tokens) < minParts || len(tokens) > maxParts {
		if minParts == maxParts {
			return nil, malformed(s, "expected %d colon-separated components, got %d", minParts, len(tokens))
		}
		return nil, malformed(s, "expected %d to %d colon-separated components, got %d", minParts, maxParts, len(tokens))
	}

	parts := make([]uint64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, malformed(s, "component %d (%q) is not a non-negative integer", i+1, tok)
		}
		parts[i] = v
	}
	return parts, nil
}
