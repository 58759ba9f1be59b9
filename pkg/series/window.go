package series

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWindow is returned when a window's minimum exceeds its maximum.
var ErrInvalidWindow = errors.New("invalid window")

// Window is an inclusive range of elapsed seconds.
type Window struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Unbounded returns a window that contains every elapsed time.
func Unbounded() Window {
	return Window{Min: math.MinInt64, Max: math.MaxInt64}
}

// NewWindow returns the inclusive window [min, max].
func NewWindow(min, max int64) (Window, error) {
	if min > max {
		return Window{}, fmt.Errorf("%w: min %d > max %d", ErrInvalidWindow, min, max)
	}
	return Window{Min: min, Max: max}, nil
}

// Contains reports whether s lies within the window, bounds included.
func (w Window) Contains(s int64) bool {
	return s >= w.Min && s <= w.Max
}

// Intersect returns the range covered by both w and o. Disjoint windows give
// a window with Min > Max that contains nothing.
func (w Window) Intersect(o Window) Window {
	return Window{Min: max(w.Min, o.Min), Max: min(w.Max, o.Max)}
}

// IsUnbounded reports whether the window places no restriction.
func (w Window) IsUnbounded() bool {
	return w == Unbounded()
}

func (w Window) String() string {
	lo, hi := "-inf", "+inf"
	if w.Min != math.MinInt64 {
		lo = fmt.Sprintf("%ds", w.Min)
	}
	if w.Max != math.MaxInt64 {
		hi = fmt.Sprintf("%ds", w.Max)
	}
	return "[" + lo + ", " + hi + "]"
}
