package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/texforge/texforge/texel"
)

// Transform applies an affine transform to the image plane. The output
// pixel is mapped through the inverse transform to find its source
// sample, so parameters read as moving the image, not the domain.
type Transform struct {
	Translation ms2.Vec
	Scale       ms2.Vec
	Shear       ms2.Vec
	Rotation    float32 // radians
	// Tiling keeps the result seamless by repeat-addressing the source.
	// When false, samples outside the unit square return border black.
	Tiling  bool
	MirrorX bool
	MirrorY bool
}

func DefaultTransform() Transform {
	return Transform{Scale: ms2.Vec{X: 1, Y: 1}, Tiling: true}
}

func (op Transform) Name() string               { return "transform" }
func (op Transform) Inputs() []texel.SocketSpec { return oneInput("in", texel.Dynamic) }
func (op Transform) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Dynamic}
}

// mirrorRepeat folds a coordinate into [0,1] as a triangle wave.
func mirrorRepeat(u float32) float32 {
	return 1 - absf(modf(u, 2)-1)
}

func (op Transform) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	// Forward transform is T·R·Shear·Scale about the image center.
	// Build its column vectors, then invert analytically.
	sx := op.Scale.X
	sy := op.Scale.Y
	if absf(sx) < epstol {
		sx = epstol
	}
	if absf(sy) < epstol {
		sy = epstol
	}
	cosr := math32.Cos(op.Rotation)
	sinr := math32.Sin(op.Rotation)
	// Columns of R·Shear·Scale.
	c0 := ms2.Vec{X: cosr, Y: sinr}
	c1 := ms2.Vec{X: -sinr, Y: cosr}
	c0 = ms2.Add(c0, ms2.Scale(op.Shear.Y, c1)) // shear Y tilts the x column
	c1 = ms2.Add(c1, ms2.Scale(op.Shear.X, c0))
	c0 = ms2.Scale(sx, c0)
	c1 = ms2.Scale(sy, c1)
	det := c0.X*c1.Y - c1.X*c0.Y
	if absf(det) < epstol {
		det = epstol
	}
	inv := 1 / det

	smp := tileSampler
	if !op.Tiling {
		smp = texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapBorder}
	}
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		p := ms2.Vec{X: u - 0.5 - op.Translation.X, Y: v - 0.5 - op.Translation.Y}
		su := (p.X*c1.Y - p.Y*c1.X) * inv
		sv := (p.Y*c0.X - p.X*c0.Y) * inv
		su += 0.5
		sv += 0.5
		if op.MirrorX {
			su = mirrorRepeat(su)
		}
		if op.MirrorY {
			sv = mirrorRepeat(sv)
		}
		return src.Sample(smp, su, sv)
	})
	return nil
}

// CoordinateSpace labels the interpretation of image coordinates.
type CoordinateSpace uint8

const (
	SpaceCartesian CoordinateSpace = iota
	SpacePolar
)

// CoordinateTransform resamples the input between Cartesian and polar
// coordinates. In polar space the horizontal axis is the angle and the
// vertical axis the radius from the image center.
type CoordinateTransform struct {
	FromSpace CoordinateSpace
	ToSpace   CoordinateSpace
	// Supersample averages a 2x2 sample grid per pixel to tame the
	// stretching artifacts near the pole.
	Supersample bool
}

func DefaultCoordinateTransform() CoordinateTransform {
	return CoordinateTransform{FromSpace: SpaceCartesian, ToSpace: SpacePolar}
}

func (op CoordinateTransform) Name() string               { return "coordinate_transform" }
func (op CoordinateTransform) Inputs() []texel.SocketSpec { return oneInput("input", texel.Dynamic) }
func (op CoordinateTransform) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "output", Type: texel.Dynamic}
}

// sourceUV maps an output coordinate in ToSpace back to the input
// coordinate in FromSpace.
func (op CoordinateTransform) sourceUV(u, v float32) (float32, float32) {
	if op.FromSpace == op.ToSpace {
		return u, v
	}
	if op.ToSpace == SpacePolar {
		// Output is the polar unwrap: u is angle, v radius.
		angle := u * tau
		r := v * 0.5
		return 0.5 + r*math32.Cos(angle), 0.5 + r*math32.Sin(angle)
	}
	// Output is Cartesian, input is a polar unwrap.
	dx := u - 0.5
	dy := v - 0.5
	angle := math32.Atan2(dy, dx)
	if angle < 0 {
		angle += tau
	}
	r := math32.Hypot(dx, dy)
	return angle / tau, minf(r*2, 1)
}

func (op CoordinateTransform) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	w := float32(out.Width())
	h := float32(out.Height())
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		if !op.Supersample {
			su, sv := op.sourceUV(u, v)
			return src.Sample(tileSampler, su, sv)
		}
		var acc texel.RGBA
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				ou := u + (float32(i)-0.5)/(2*w)
				ov := v + (float32(j)-0.5)/(2*h)
				su, sv := op.sourceUV(ou, ov)
				c := src.Sample(tileSampler, su, sv)
				for k := 0; k < 4; k++ {
					acc[k] += c[k] * 0.25
				}
			}
		}
		return acc
	})
	return nil
}
