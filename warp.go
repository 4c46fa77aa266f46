package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/texforge/texforge/texel"
)

// WarpMode selects how the intensity texture displaces sample
// coordinates.
type WarpMode uint8

const (
	// WarpPush displaces along the intensity gradient.
	WarpPush WarpMode = iota
	// WarpPull displaces against the intensity gradient.
	WarpPull
	// WarpDirectional displaces along a fixed angle, scaled by the
	// intensity value.
	WarpDirectional
	// WarpSlopeBlur accumulates samples while sliding down the
	// intensity gradient.
	WarpSlopeBlur
	// WarpSlopeBlurInv slides up the gradient instead.
	WarpSlopeBlurInv
)

// WarpBlend selects how slope blur iterations combine.
type WarpBlend uint8

const (
	WarpBlendMix WarpBlend = iota
	WarpBlendMin
	WarpBlendMax
)

// sobelGradient estimates the gradient of a grayscale texture at uv
// with a 3x3 Sobel stencil over one-texel steps.
func sobelGradient(t *texel.Texture, u, v float32) ms2.Vec {
	du := 1 / float32(t.Width())
	dv := 1 / float32(t.Height())
	s := func(x, y float32) float32 { return t.SampleGray(tileSampler, u+x*du, v+y*dv) }
	gx := s(1, -1) + 2*s(1, 0) + s(1, 1) - s(-1, -1) - 2*s(-1, 0) - s(-1, 1)
	gy := s(-1, 1) + 2*s(0, 1) + s(1, 1) - s(-1, -1) - 2*s(0, -1) - s(1, -1)
	return ms2.Vec{X: gx, Y: gy}
}

// Warp displaces the sampling coordinates of the in texture by the
// gradient (or value, in directional mode) of a second intensity
// texture. Slope blur modes iterate the displacement, accumulating the
// samples seen along the slide.
type Warp struct {
	Mode       WarpMode
	BlendMode  WarpBlend
	Intensity  float32
	Angle      float32
	Iterations int
}

func DefaultWarp() Warp {
	return Warp{Mode: WarpPush, BlendMode: WarpBlendMix, Intensity: 1, Iterations: 32}
}

func (op Warp) Name() string { return "warp" }
func (op Warp) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "in", Type: texel.Dynamic},
		{Name: "intensity", Type: texel.Grayscale},
	}
}
func (op Warp) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Dynamic}
}

func (op Warp) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src, strength := in[0], in[1]
	switch op.Mode {
	case WarpSlopeBlur, WarpSlopeBlurInv:
		op.slopeBlur(ctx, src, strength, out)
		return nil
	}
	dir := ms2.Vec{X: math32.Cos(op.Angle), Y: math32.Sin(op.Angle)}
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		var off ms2.Vec
		switch op.Mode {
		case WarpPull:
			off = ms2.Scale(-op.Intensity*0.1, sobelGradient(strength, u, v))
		case WarpDirectional:
			off = ms2.Scale(op.Intensity*0.1*strength.SampleGray(tileSampler, u, v), dir)
		default:
			off = ms2.Scale(op.Intensity*0.1, sobelGradient(strength, u, v))
		}
		return src.Sample(tileSampler, u+off.X, v+off.Y)
	})
	return nil
}

// slopeBlur walks each pixel down (or up) the strength gradient in
// Iterations short steps, blending the sample found at every stop.
func (op Warp) slopeBlur(ctx *texel.Context, src, strength, out *texel.Texture) {
	iters := op.Iterations
	if iters < 1 {
		iters = 1
	}
	sign := float32(1)
	if op.Mode == WarpSlopeBlurInv {
		sign = -1
	}
	step := sign * op.Intensity * 0.1 / float32(iters)
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		p := ms2.Vec{X: u, Y: v}
		acc := src.Sample(tileSampler, u, v)
		for i := 1; i <= iters; i++ {
			p = ms2.Add(p, ms2.Scale(step, sobelGradient(strength, p.X, p.Y)))
			c := src.Sample(tileSampler, p.X, p.Y)
			switch op.BlendMode {
			case WarpBlendMin:
				for k := range acc {
					acc[k] = minf(acc[k], c[k])
				}
			case WarpBlendMax:
				for k := range acc {
					acc[k] = maxf(acc[k], c[k])
				}
			default:
				// running mean over the samples seen so far
				w := 1 / float32(i+1)
				for k := range acc {
					acc[k] = mixf(acc[k], c[k], w)
				}
			}
		}
		return acc
	})
}

// DirectionalWarp is the standalone single-pass directional warp: the
// in texture is sampled at coordinates offset along Angle by the
// intensity texture value.
type DirectionalWarp struct {
	Intensity float32
	Angle     float32
}

func DefaultDirectionalWarp() DirectionalWarp { return DirectionalWarp{Intensity: 1} }

func (op DirectionalWarp) Name() string { return "directional_warp" }
func (op DirectionalWarp) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "in", Type: texel.Dynamic},
		{Name: "intensity", Type: texel.Grayscale},
	}
}
func (op DirectionalWarp) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Dynamic}
}

func (op DirectionalWarp) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src, strength := in[0], in[1]
	dir := ms2.Vec{X: math32.Cos(op.Angle), Y: math32.Sin(op.Angle)}
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		s := strength.SampleGray(tileSampler, u, v) * op.Intensity * 0.1
		return src.Sample(tileSampler, u+dir.X*s, v+dir.Y*s)
	})
	return nil
}

// NoiseSpread jitters each pixel's sample coordinate by a hashed
// random offset, averaging Samples takes. Distance is the jitter
// radius as a fraction of one twentieth of the image.
type NoiseSpread struct {
	Distance float32
	Samples  int
}

func DefaultNoiseSpread() NoiseSpread { return NoiseSpread{Distance: 1, Samples: 1} }

func (op NoiseSpread) Name() string { return "noise_spread" }
func (op NoiseSpread) Inputs() []texel.SocketSpec {
	return oneInput("in", texel.Dynamic)
}
func (op NoiseSpread) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Dynamic}
}

func (op NoiseSpread) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	samples := op.Samples
	if samples < 1 {
		samples = 1
	}
	radius := op.Distance * 0.05
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		var acc texel.RGBA
		for s := 0; s < samples; s++ {
			j := hash22(ms2.Vec{X: u + float32(s)*17.13, Y: v - float32(s)*9.77})
			c := src.Sample(tileSampler, u+(j.X-0.5)*2*radius, v+(j.Y-0.5)*2*radius)
			for k := range acc {
				acc[k] += c[k]
			}
		}
		inv := 1 / float32(samples)
		for k := range acc {
			acc[k] *= inv
		}
		return acc
	})
	return nil
}
