package series

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrCorruptSeries is returned when decoded data violates series invariants.
var ErrCorruptSeries = errors.New("corrupt series")

// WriteJSON encodes s so that ReadJSON returns an identical series.
func WriteJSON(w io.Writer, s *Series) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// ReadJSON decodes a series written by WriteJSON and checks its invariants.
func ReadJSON(r io.Reader) (*Series, error) {
	var s Series
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding series: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks ordering and histogram shape.
func (s *Series) Validate() error {
	for i, rec := range s.Records {
		if len(rec.Histogram) != len(s.Columns) {
			return fmt.Errorf("%w: record %d has %d buckets, want %d", ErrCorruptSeries, i, len(rec.Histogram), len(s.Columns))
		}
		if i > 0 && rec.ElapsedSeconds < s.Records[i-1].ElapsedSeconds {
			return fmt.Errorf("%w: record %d is out of order", ErrCorruptSeries, i)
		}
	}
	return nil
}
