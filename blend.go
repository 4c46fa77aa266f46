package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/texel"
)

// BlendMode enumerates the compositing modes of [Blend].
type BlendMode uint8

const (
	BlendMix BlendMode = iota
	BlendMultiply
	BlendAdd
	BlendSubtract
	BlendScreen
	BlendDifference
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendInvertLighten
	BlendSmoothDarken
	BlendSmoothLighten
	BlendSmoothInvertLighten
)

// IsSmooth reports whether the mode uses the log-sum-exp soft extremum
// controlled by the sharpness parameter.
func (m BlendMode) IsSmooth() bool {
	return m == BlendSmoothDarken || m == BlendSmoothLighten || m == BlendSmoothInvertLighten
}

// softmin is the log-sum-exp soft minimum. Larger k approaches min.
func softmin(a, b, k float32) float32 {
	return -math32.Log(math32.Exp(-k*a)+math32.Exp(-k*b)) / k
}

func softmax(a, b, k float32) float32 {
	return math32.Log(math32.Exp(k*a)+math32.Exp(k*b)) / k
}

func blendChannel(mode BlendMode, bg, fg, k float32) float32 {
	switch mode {
	case BlendMultiply:
		return bg * fg
	case BlendAdd:
		return bg + fg
	case BlendSubtract:
		return bg - fg
	case BlendScreen:
		return 1 - (1-bg)*(1-fg)
	case BlendDifference:
		return absf(bg - fg)
	case BlendOverlay:
		if bg < 0.5 {
			return 2 * bg * fg
		}
		return 1 - 2*(1-bg)*(1-fg)
	case BlendDarken:
		return minf(bg, fg)
	case BlendLighten:
		return maxf(bg, fg)
	case BlendInvertLighten:
		return 1 - maxf(1-bg, fg)
	case BlendSmoothDarken:
		return softmin(bg, fg, k)
	case BlendSmoothLighten:
		return softmax(bg, fg, k)
	case BlendSmoothInvertLighten:
		return 1 - softmax(1-bg, fg, k)
	default:
		return fg
	}
}

// Blend composites a foreground over a background with a configurable
// mode. The optional mask modulates the mix factor per pixel. At mix 0
// the output equals the background for every mode.
type Blend struct {
	BlendMode BlendMode
	Mix       float32
	// Sharpness steers the smooth modes; higher approaches the hard
	// extremum.
	Sharpness   float32
	ClampOutput bool
}

func DefaultBlend() Blend { return Blend{Mix: 0.5, Sharpness: 16} }

func (op Blend) Name() string { return "blend" }
func (op Blend) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "background", Type: texel.Dynamic},
		{Name: "foreground", Type: texel.Dynamic},
		{Name: "mask", Type: texel.Grayscale, Optional: true},
	}
}
func (op Blend) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color", Type: texel.Dynamic}
}

func (op Blend) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	bg, fg, mask := in[0], in[1], in[2]
	k := maxf(op.Sharpness, epstol)
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		cb := bg.Sample(tileSampler, u, v)
		cf := fg.Sample(tileSampler, u, v)
		fac := clampf(op.Mix, 0, 1)
		if mask != nil {
			fac *= mask.SampleGray(tileSampler, u, v)
		}
		var res texel.RGBA
		for i := 0; i < 3; i++ {
			b := blendChannel(op.BlendMode, cb[i], cf[i], k)
			o := mixf(cb[i], b, fac)
			if op.ClampOutput {
				o = clampf(o, 0, 1)
			}
			res[i] = o
		}
		res[3] = cb[3]
		return res
	})
	return nil
}

// NormalBlend combines a base and a detail tangent-space normal map
// using the whiteout reoriented sum, renormalizing the result.
type NormalBlend struct {
	Mix float32
}

func DefaultNormalBlend() NormalBlend { return NormalBlend{Mix: 1} }

func (op NormalBlend) Name() string { return "normal_blend" }
func (op NormalBlend) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "base", Type: texel.Color},
		{Name: "detail", Type: texel.Color},
	}
}
func (op NormalBlend) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "normal", Type: texel.Color}
}

func decodeNormal(c ms3.Vec) ms3.Vec {
	return ms3.AddScalar(-1, ms3.Scale(2, c))
}

func encodeNormal(n ms3.Vec) ms3.Vec {
	return ms3.Scale(0.5, ms3.AddScalar(1, n))
}

func (op NormalBlend) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	base, detail := in[0], in[1]
	t := clampf(op.Mix, 0, 1)
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		nb := decodeNormal(base.Sample(tileSampler, u, v).Vec())
		nd := decodeNormal(detail.Sample(tileSampler, u, v).Vec())
		// Whiteout blend: sum XY slopes, multiply Z.
		blended := ms3.Vec{X: nb.X + nd.X, Y: nb.Y + nd.Y, Z: nb.Z * nd.Z}
		n := ms3.InterpElem(nb, blended, ms3.Vec{X: t, Y: t, Z: t})
		norm := ms3.Norm(n)
		if norm < epstol {
			n = ms3.Vec{Z: 1}
		} else {
			n = ms3.Scale(1/norm, n)
		}
		return texel.FromVec(encodeNormal(n), 1)
	})
	return nil
}
