package fields

import (
	"strings"
	"time"
)

// TimestampLayout is the layout of the authoritative date and time tokens.
// Fractional seconds are accepted when parsing even though the layout omits them.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses the composite CurrentTime/StartTime field, for example
// "2024-01-01 10:00:00.123456 1704103200.123456". Only the first two
// whitespace-separated tokens are used; the epoch copy and anything after it
// are ignored.
//
// On failure it returns Missing and an error wrapping ErrMalformedField.
func ParseTimestamp(s string) (Timestamp, error) {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return Missing, malformed(s, "expected date and time tokens")
	}

	t, err := time.Parse(TimestampLayout, tokens[0]+" "+tokens[1])
	if err != nil {
		return Missing, malformed(s, "%v", err)
	}
	return NewTimestamp(t), nil
}
