package texforge

import (
	"math/bits"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// RadicalInverse is the base-2 Van der Corput radical inverse used by
// the Hammersley sequence.
func RadicalInverse(i uint32) float32 {
	return float32(bits.Reverse32(i)) * 2.3283064365386963e-10 // 1/2^32
}

// Hammersley returns the i-th point of the n-point low-discrepancy
// Hammersley set in the unit square. Used for stratified Monte Carlo
// sampling by the variable-radius blur, the scatter operator and the
// environment prefilter.
func Hammersley(i, n uint32) ms2.Vec {
	return ms2.Vec{X: float32(i) / float32(n), Y: RadicalInverse(i)}
}

// DiskSample maps a unit-square point onto the unit disk with uniform
// area density.
func DiskSample(p ms2.Vec) ms2.Vec {
	r := math32.Sqrt(p.X)
	a := tau * p.Y
	return ms2.Vec{X: r * math32.Cos(a), Y: r * math32.Sin(a)}
}

// NGonSample maps a unit-square point onto a regular n-gon with the
// given rotation, approximating uniform density by sampling a triangle
// fan sector. Used for shaped camera apertures.
func NGonSample(p ms2.Vec, blades int, rotation float32) ms2.Vec {
	if blades < 3 {
		return DiskSample(p)
	}
	n := float32(blades)
	sector := math32.Floor(p.X * n)
	frac := p.X*n - sector
	a0 := rotation + sector*tau/n
	a1 := a0 + tau/n
	v0 := ms2.Vec{X: math32.Cos(a0), Y: math32.Sin(a0)}
	v1 := ms2.Vec{X: math32.Cos(a1), Y: math32.Sin(a1)}
	// Uniform triangle sample between the origin and two vertices.
	s := math32.Sqrt(p.Y)
	return ms2.Add(ms2.Scale(s*(1-frac), v0), ms2.Scale(s*frac, v1))
}
