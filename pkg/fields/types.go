// Package fields parses the individual cells of a SIPp statistics report
// into typed values.
package fields

import (
	"encoding/json"
	"time"
)

// Duration is a non-negative number of seconds.
type Duration float64

// Seconds returns the duration as float seconds.
func (d Duration) Seconds() float64 {
	return float64(d)
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() float64 {
	return float64(d) * 1000
}

// Timestamp is a wall-clock date and time taken from a report row.
// Valid is false when the source cell was missing or unparseable.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// Missing is the sentinel returned when a timestamp cannot be parsed.
var Missing = Timestamp{}

// NewTimestamp wraps t as a valid timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// Before reports whether both timestamps are valid and t is before u.
func (t Timestamp) Before(u Timestamp) bool {
	return t.Valid && u.Valid && t.Time.Before(u.Time)
}

// MarshalJSON encodes a missing timestamp as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time)
}

// UnmarshalJSON decodes null as a missing timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Missing
		return nil
	}
	var parsed time.Time
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*t = NewTimestamp(parsed)
	return nil
}
