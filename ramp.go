package texforge

import (
	"errors"
	"sort"

	"github.com/soypat/geometry/ms3"
)

// MaxRampStops bounds the control point count of a [Ramp], matching the
// fixed-size parameter block the dispatch contract reserves for it.
const MaxRampStops = 64

// RampStop is one control point of a color ramp.
type RampStop struct {
	// Position in [0,1]. Stops must be monotonically non-decreasing.
	Position float32
	Color    ms3.Vec
}

// Ramp is an ordered gradient lookup table. Evaluation at any factor
// uses the bracketing stop pair and linear interpolation; factors
// outside [Min,Max] clamp to the configured range before lookup.
type Ramp struct {
	Stops []RampStop
	// Min and Max remap the lookup domain. A zero-valued range is
	// treated as [0,1].
	Min, Max float32
}

// NewRamp builds a ramp from stops, sorting them by position.
func NewRamp(stops ...RampStop) (Ramp, error) {
	if len(stops) == 0 {
		return Ramp{}, errors.New("ramp requires at least one stop")
	}
	if len(stops) > MaxRampStops {
		return Ramp{}, errors.New("ramp exceeds maximum stop count")
	}
	s := make([]RampStop, len(stops))
	copy(s, stops)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Position < s[j].Position })
	return Ramp{Stops: s, Min: 0, Max: 1}, nil
}

// Lookup evaluates the ramp at factor f.
func (r *Ramp) Lookup(f float32) ms3.Vec {
	if len(r.Stops) == 0 {
		return ms3.Vec{}
	}
	lo, hi := r.Min, r.Max
	if lo == 0 && hi == 0 {
		hi = 1
	}
	f = clampf(f, lo, hi)
	stops := r.Stops
	if f <= stops[0].Position {
		return stops[0].Color
	}
	last := len(stops) - 1
	if f >= stops[last].Position {
		return stops[last].Color
	}
	// Bracketing pair search. Stop counts are small (<=64) so a linear
	// scan beats binary search in practice.
	for i := 1; i <= last; i++ {
		if f <= stops[i].Position {
			a, b := stops[i-1], stops[i]
			span := b.Position - a.Position
			if span < epstol {
				return b.Color
			}
			t := (f - a.Position) / span
			return ms3.InterpElem(a.Color, b.Color, ms3.Vec{X: t, Y: t, Z: t})
		}
	}
	return stops[last].Color
}
