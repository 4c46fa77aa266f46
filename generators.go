package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/texel"
)

// Value fills the output with a constant grayscale value.
type Value struct {
	Value float32
}

func DefaultValue() Value { return Value{Value: 0.5} }

func (op Value) Name() string              { return "value" }
func (op Value) Inputs() []texel.SocketSpec { return noInputs() }
func (op Value) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color", Type: texel.Grayscale}
}

func (op Value) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	out.Fill(texel.RGBA{op.Value, op.Value, op.Value, 1})
	return nil
}

// Rgb fills the output with a constant color.
type Rgb struct {
	RGB ms3.Vec
}

func DefaultRgb() Rgb { return Rgb{RGB: ms3.Vec{X: 0.5, Y: 0.7, Z: 0.3}} }

func (op Rgb) Name() string               { return "rgb" }
func (op Rgb) Inputs() []texel.SocketSpec { return noInputs() }
func (op Rgb) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color", Type: texel.Color}
}

func (op Rgb) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	out.Fill(texel.FromVec(op.RGB, 1))
	return nil
}

// Checker generates a tileable checkerboard.
type Checker struct {
	// Tiling is the number of cell pairs along each axis.
	Tiling   uint32
	Rotated  bool
	Inverted bool
}

func DefaultChecker() Checker { return Checker{Tiling: 2} }

func (op Checker) Name() string               { return "checker" }
func (op Checker) Inputs() []texel.SocketSpec { return noInputs() }
func (op Checker) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "pattern", Type: texel.Grayscale}
}

func (op Checker) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	tiling := float32(op.Tiling)
	if tiling < 1 {
		tiling = 1
	}
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		p := ms2.Vec{X: u, Y: v}
		if op.Rotated {
			// 45 degree rotation keeps the pattern tileable because the
			// lattice is self-similar under it.
			p = ms2.Vec{X: p.X + p.Y, Y: p.Y - p.X}
		}
		ix := int(math32.Floor(p.X * 2 * tiling))
		iy := int(math32.Floor(p.Y * 2 * tiling))
		val := float32((ix + iy) & 1)
		if op.Inverted {
			val = 1 - val
		}
		return val
	})
	return nil
}

// ShapeType enumerates the analytic SDF primitives of [Shape].
type ShapeType uint8

const (
	ShapeCircle ShapeType = iota
	ShapeBox
	ShapeRegularNGon
	ShapeRegularStar
	ShapeEllipse
)

// Shape renders an antialiased analytic 2D SDF primitive.
type Shape struct {
	Translation ms2.Vec
	Rotation    float32 // radians
	MirrorX     bool
	MirrorY     bool
	ShapeType   ShapeType
	// Shell renders only the zero-isoline of the field as a thin outline.
	Shell       bool
	Radius      float32 // circle, ngon, star
	Width       float32 // box, ellipse
	Height      float32 // box, ellipse
	AngleFactor float32 // star inner radius factor
	Sides       int     // ngon, star
}

func DefaultShape() Shape {
	return Shape{
		ShapeType:   ShapeCircle,
		Radius:      0.3,
		Width:       0.4,
		Height:      0.2,
		AngleFactor: 0.5,
		Sides:       6,
	}
}

func (op Shape) Name() string               { return "shape" }
func (op Shape) Inputs() []texel.SocketSpec { return noInputs() }
func (op Shape) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "shape", Type: texel.Grayscale}
}

func (op Shape) distance(p ms2.Vec) float32 {
	switch op.ShapeType {
	case ShapeBox:
		d := ms2.Sub(ms2.AbsElem(p), ms2.Vec{X: op.Width / 2, Y: op.Height / 2})
		outside := ms2.Norm(ms2.MaxElem(d, ms2.Vec{}))
		return outside + minf(maxf(d.X, d.Y), 0)
	case ShapeRegularNGon:
		n := float32(max(op.Sides, 3))
		an := pi / n
		a := math32.Atan2(p.Y, p.X)
		r := ms2.Norm(p)
		sector := modf(a+an, 2*an) - an
		return r*math32.Cos(sector) - op.Radius*math32.Cos(an)
	case ShapeRegularStar:
		n := float32(max(op.Sides, 3))
		an := pi / n
		inner := op.Radius * clampf(op.AngleFactor, 0, 1)
		a := math32.Atan2(p.Y, p.X)
		r := ms2.Norm(p)
		sector := absf(modf(a, 2*an) - an)
		// Distance to the segment joining an outer tip and inner valley.
		tip := ms2.Vec{X: op.Radius * math32.Cos(an), Y: op.Radius * math32.Sin(an)}
		valley := ms2.Vec{X: inner, Y: 0}
		q := ms2.Vec{X: r * math32.Cos(sector), Y: r * math32.Sin(sector)}
		e := ms2.Sub(tip, valley)
		w := ms2.Sub(q, valley)
		proj := clampf(ms2.Dot(w, e)/maxf(ms2.Norm2(e), epstol), 0, 1)
		d := ms2.Norm(ms2.Sub(w, ms2.Scale(proj, e)))
		side := signf(e.X*w.Y - e.Y*w.X)
		return d * side
	case ShapeEllipse:
		// Scaled-circle approximation; exact near the axes, adequate
		// for mask generation.
		a := maxf(op.Width/2, epstol)
		b := maxf(op.Height/2, epstol)
		k0 := math32.Hypot(p.X/a, p.Y/b)
		k1 := math32.Hypot(p.X/(a*a), p.Y/(b*b))
		if k1 < epstol {
			return -minf(a, b)
		}
		return k0 * (k0 - 1) / k1
	default:
		return ms2.Norm(p) - op.Radius
	}
}

func (op Shape) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	aa := 1.5 / float32(out.Width()) // antialias width of one and a half texels
	rot := ms2.RotationMat2(-op.Rotation)
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		p := ms2.Vec{X: u - 0.5, Y: v - 0.5}
		if op.MirrorX {
			p.X = absf(p.X)
		}
		if op.MirrorY {
			p.Y = absf(p.Y)
		}
		p = ms2.Sub(p, op.Translation)
		p = ms2.MulMatVec(rot, p)
		d := op.distance(p)
		if op.Shell {
			d = absf(d) - aa
		}
		return 1 - smoothstepf(-aa, aa, d)
	})
	return nil
}

// PerlinNoise generates tileable fractal gradient noise.
type PerlinNoise struct {
	Scale     float32
	Octaves   float32
	Roughness float32
}

func DefaultPerlinNoise() PerlinNoise {
	return PerlinNoise{Scale: 3, Octaves: 2, Roughness: 0.5}
}

func (op PerlinNoise) Name() string               { return "perlin_noise" }
func (op PerlinNoise) Inputs() []texel.SocketSpec { return noInputs() }
func (op PerlinNoise) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "noise", Type: texel.Grayscale}
}

func (op PerlinNoise) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	// The lattice period is the rounded scale so the domain tiles: the
	// wrap-around cell addressing requires an integer tile count.
	period := maxf(math32.Round(op.Scale), 1)
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		p := ms2.Vec{X: u * period, Y: v * period}
		return fbm2(p, period, op.Octaves, op.Roughness)
	})
	return nil
}

// Voronoi generates tileable cellular noise with fractal octaves.
type Voronoi struct {
	Metric     CellMetric
	Exponent   float32 // Minkowski exponent
	Method     CellMethod
	Scale      float32
	Octaves    float32
	Roughness  float32
	Randomness float32
}

func DefaultVoronoi() Voronoi {
	return Voronoi{
		Metric:     MetricEuclidean,
		Exponent:   1,
		Method:     CellF1,
		Scale:      3,
		Octaves:    2,
		Roughness:  0.5,
		Randomness: 1,
	}
}

func (op Voronoi) Name() string               { return "voronoi" }
func (op Voronoi) Inputs() []texel.SocketSpec { return noInputs() }
func (op Voronoi) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "noise", Type: texel.Grayscale}
}

func (op Voronoi) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	period := maxf(math32.Round(op.Scale), 1)
	randomness := clampf(op.Randomness, 0, 1)
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		p := ms2.Vec{X: u * period, Y: v * period}
		return worleyFbm2(p, period, op.Metric, op.Exponent, op.Method, randomness, op.Octaves, op.Roughness)
	})
	return nil
}
