// Package texforge implements the operators of a procedural texture
// pipeline: generators, per-pixel transforms, multi-pass filters and
// compositors, each a pure function dispatched over an output texture.
//
// Operators are parameter structs implementing [texel.Operator]. The
// graph subpackage sequences them over a node DAG; the render and ibl
// subpackages consume the produced textures as PBR material channels.
package texforge

import (
	"github.com/chewxy/math32"
)

const (
	// epstol guards badly conditioned denominators such as lengths used
	// for normalization and near-zero chroma in color conversions.
	epstol = 6e-7
	// largenum stands in for infinity in distance scans.
	largenum = 1e20
	pi       = math32.Pi
	tau      = 2 * math32.Pi
)

func minf(a, b float32) float32 { return math32.Min(a, b) }
func maxf(a, b float32) float32 { return math32.Max(a, b) }
func absf(a float32) float32    { return math32.Abs(a) }

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}

func mixf(x, y, a float32) float32 { return x*(1-a) + y*a }

func signf(a float32) float32 {
	if a == 0 {
		return 0
	}
	return math32.Copysign(1, a)
}

func fractf(a float32) float32 { return a - math32.Floor(a) }

// modf is the GLSL mod: result has the sign of the divisor.
func modf(a, b float32) float32 { return a - b*math32.Floor(a/b) }

func stepf(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

func smoothstepf(e0, e1, x float32) float32 {
	t := clampf((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

func smootherstepf(e0, e1, x float32) float32 {
	t := clampf((x-e0)/(e1-e0), 0, 1)
	return t * t * t * (t*(t*6-15) + 10)
}
