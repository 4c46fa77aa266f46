package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Lattice hashing in the style of the classic fract(sin(dot)) shader
// hash. Lattice coordinates are wrapped before hashing so that noise
// domains tile exactly at integer period boundaries.

func hash12(p ms2.Vec) float32 {
	return fractf(math32.Sin(p.X*12.9898+p.Y*78.233) * 43758.5453)
}

func hash22(p ms2.Vec) ms2.Vec {
	return ms2.Vec{
		X: fractf(math32.Sin(p.X*127.1+p.Y*311.7) * 43758.5453),
		Y: fractf(math32.Sin(p.X*269.5+p.Y*183.3) * 43758.5453),
	}
}

func hash13(p ms3.Vec) float32 {
	return fractf(math32.Sin(p.X*12.9898+p.Y*78.233+p.Z*37.719) * 43758.5453)
}

func hash33(p ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: fractf(math32.Sin(p.X*127.1+p.Y*311.7+p.Z*74.7) * 43758.5453),
		Y: fractf(math32.Sin(p.X*269.5+p.Y*183.3+p.Z*246.1) * 43758.5453),
		Z: fractf(math32.Sin(p.X*113.5+p.Y*271.9+p.Z*124.6) * 43758.5453),
	}
}

func wrapCell2(c ms2.Vec, period float32) ms2.Vec {
	return ms2.Vec{X: modf(c.X, period), Y: modf(c.Y, period)}
}

func wrapCell3(c ms3.Vec, period float32) ms3.Vec {
	return ms3.Vec{X: modf(c.X, period), Y: modf(c.Y, period), Z: modf(c.Z, period)}
}

// gradient2 returns a unit gradient for the wrapped lattice point.
func gradient2(cell ms2.Vec, period float32) ms2.Vec {
	a := hash12(wrapCell2(cell, period)) * tau
	return ms2.Vec{X: math32.Cos(a), Y: math32.Sin(a)}
}

// perlin2 evaluates tileable gradient noise at p with the given integer
// lattice period. Output is remapped to [0,1].
func perlin2(p ms2.Vec, period float32) float32 {
	cell := ms2.Vec{X: math32.Floor(p.X), Y: math32.Floor(p.Y)}
	f := ms2.Sub(p, cell)
	u := f.X * f.X * f.X * (f.X*(f.X*6-15) + 10)
	v := f.Y * f.Y * f.Y * (f.Y*(f.Y*6-15) + 10)

	d00 := ms2.Dot(gradient2(cell, period), f)
	d10 := ms2.Dot(gradient2(ms2.Add(cell, ms2.Vec{X: 1}), period), ms2.Sub(f, ms2.Vec{X: 1}))
	d01 := ms2.Dot(gradient2(ms2.Add(cell, ms2.Vec{Y: 1}), period), ms2.Sub(f, ms2.Vec{Y: 1}))
	d11 := ms2.Dot(gradient2(ms2.Add(cell, ms2.Vec{X: 1, Y: 1}), period), ms2.Sub(f, ms2.Vec{X: 1, Y: 1}))

	n := mixf(mixf(d00, d10, u), mixf(d01, d11, u), v)
	// Gradient noise spans roughly [-sqrt(2)/2, sqrt(2)/2].
	return clampf(n*math32.Sqrt2*0.5+0.5, 0, 1)
}

// fbm2 accumulates octaves of tileable perlin noise. Non-integer octave
// counts contribute the trailing octave partially so the parameter
// animates smoothly.
func fbm2(p ms2.Vec, period, octaves, roughness float32) float32 {
	var sum, norm float32
	amp := float32(1)
	freq := float32(1)
	n := int(octaves)
	for i := 0; i < n; i++ {
		sum += amp * perlin2(ms2.Scale(freq, p), period*freq)
		norm += amp
		amp *= roughness
		freq *= 2
	}
	if frac := fractf(octaves); frac > 0 {
		sum += frac * amp * perlin2(ms2.Scale(freq, p), period*freq)
		norm += frac * amp
	}
	if norm < epstol {
		return 0
	}
	return sum / norm
}

// CellMetric selects the distance metric for cellular noise and the
// distance transform.
type CellMetric uint8

const (
	MetricEuclidean CellMetric = iota
	MetricManhattan
	MetricChebyshev
	MetricMinkowski
)

func (m CellMetric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricManhattan:
		return "manhattan"
	case MetricChebyshev:
		return "chebyshev"
	case MetricMinkowski:
		return "minkowski"
	}
	return "unknown"
}

func metricDist2(d ms2.Vec, m CellMetric, exponent float32) float32 {
	switch m {
	case MetricManhattan:
		return absf(d.X) + absf(d.Y)
	case MetricChebyshev:
		return maxf(absf(d.X), absf(d.Y))
	case MetricMinkowski:
		e := maxf(exponent, epstol)
		return math32.Pow(math32.Pow(absf(d.X), e)+math32.Pow(absf(d.Y), e), 1/e)
	default:
		return ms2.Norm(d)
	}
}

func metricDist3(d ms3.Vec, m CellMetric, exponent float32) float32 {
	switch m {
	case MetricManhattan:
		return absf(d.X) + absf(d.Y) + absf(d.Z)
	case MetricChebyshev:
		return maxf(absf(d.X), maxf(absf(d.Y), absf(d.Z)))
	case MetricMinkowski:
		e := maxf(exponent, epstol)
		return math32.Pow(math32.Pow(absf(d.X), e)+math32.Pow(absf(d.Y), e)+math32.Pow(absf(d.Z), e), 1/e)
	default:
		return ms3.Norm(d)
	}
}

// CellMethod selects which cellular noise feature is output.
type CellMethod uint8

const (
	CellF1 CellMethod = iota
	CellF2
	CellDistanceToEdge
)

// Worley2 evaluates tileable cellular noise at p over an integer lattice
// period. randomness 0 yields a perfectly regular grid, 1 full jitter.
// The distance-to-edge method measures the perpendicular bisector
// distance between the owning feature point and every other candidate,
// which is not expressible as F2-F1.
func Worley2(p ms2.Vec, period float32, m CellMetric, exponent float32, method CellMethod, randomness float32) float32 {
	cell := ms2.Vec{X: math32.Floor(p.X), Y: math32.Floor(p.Y)}
	f := ms2.Sub(p, cell)

	f1 := float32(largenum)
	f2 := float32(largenum)
	var nearest ms2.Vec // offset of nearest feature point relative to f
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			neighbor := ms2.Vec{X: float32(dx), Y: float32(dy)}
			jitter := hash22(wrapCell2(ms2.Add(cell, neighbor), period))
			point := ms2.Add(neighbor, ms2.Scale(randomness, jitter))
			diff := ms2.Sub(point, f)
			d := metricDist2(diff, m, exponent)
			if d < f1 {
				f2 = f1
				f1 = d
				nearest = diff
			} else if d < f2 {
				f2 = d
			}
		}
	}
	switch method {
	case CellF2:
		return f2
	case CellDistanceToEdge:
		dmin := float32(largenum)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				neighbor := ms2.Vec{X: float32(dx), Y: float32(dy)}
				jitter := hash22(wrapCell2(ms2.Add(cell, neighbor), period))
				point := ms2.Add(neighbor, ms2.Scale(randomness, jitter))
				diff := ms2.Sub(point, f)
				sep := ms2.Sub(diff, nearest)
				n2 := ms2.Norm2(sep)
				if n2 < epstol {
					continue // the owning point itself
				}
				mid := ms2.Scale(0.5, ms2.Add(nearest, diff))
				d := ms2.Dot(mid, ms2.Scale(1/math32.Sqrt(n2), sep))
				dmin = minf(dmin, d)
			}
		}
		return dmin
	default:
		return f1
	}
}

// Worley3 is the 3D analog of [Worley2] over a 3x3x3 neighborhood.
func Worley3(p ms3.Vec, period float32, m CellMetric, exponent float32, method CellMethod, randomness float32) float32 {
	cell := ms3.Vec{X: math32.Floor(p.X), Y: math32.Floor(p.Y), Z: math32.Floor(p.Z)}
	f := ms3.Sub(p, cell)

	f1 := float32(largenum)
	f2 := float32(largenum)
	var nearest ms3.Vec
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				neighbor := ms3.Vec{X: float32(dx), Y: float32(dy), Z: float32(dz)}
				jitter := hash33(wrapCell3(ms3.Add(cell, neighbor), period))
				point := ms3.Add(neighbor, ms3.Scale(randomness, jitter))
				diff := ms3.Sub(point, f)
				d := metricDist3(diff, m, exponent)
				if d < f1 {
					f2 = f1
					f1 = d
					nearest = diff
				} else if d < f2 {
					f2 = d
				}
			}
		}
	}
	switch method {
	case CellF2:
		return f2
	case CellDistanceToEdge:
		dmin := float32(largenum)
		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					neighbor := ms3.Vec{X: float32(dx), Y: float32(dy), Z: float32(dz)}
					jitter := hash33(wrapCell3(ms3.Add(cell, neighbor), period))
					point := ms3.Add(neighbor, ms3.Scale(randomness, jitter))
					diff := ms3.Sub(point, f)
					sep := ms3.Sub(diff, nearest)
					n2 := ms3.Norm2(sep)
					if n2 < epstol {
						continue
					}
					mid := ms3.Scale(0.5, ms3.Add(nearest, diff))
					d := ms3.Dot(mid, ms3.Scale(1/math32.Sqrt(n2), sep))
					dmin = minf(dmin, d)
				}
			}
		}
		return dmin
	default:
		return f1
	}
}

// worleyFbm2 accumulates cellular noise octaves with roughness falloff
// and fractional trailing octave, like fbm2 but on Worley2.
func worleyFbm2(p ms2.Vec, period float32, m CellMetric, exponent float32, method CellMethod, randomness, octaves, roughness float32) float32 {
	var sum, norm float32
	amp := float32(1)
	freq := float32(1)
	n := int(octaves)
	for i := 0; i < n; i++ {
		sum += amp * Worley2(ms2.Scale(freq, p), period*freq, m, exponent, method, randomness)
		norm += amp
		amp *= roughness
		freq *= 2
	}
	if frac := fractf(octaves); frac > 0 {
		sum += frac * amp * Worley2(ms2.Scale(freq, p), period*freq, m, exponent, method, randomness)
		norm += frac * amp
	}
	if norm < epstol {
		return 0
	}
	return sum / norm
}
