package texforge

import (
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/texel"
)

// GrayscaleMode selects how [Grayscale] collapses color to a scalar.
type GrayscaleMode uint8

const (
	GrayLuminance GrayscaleMode = iota
	GrayAverage
	GrayDesaturate
	GrayMaxDecompose
	GrayMinDecompose
	GrayRedOnly
	GrayGreenOnly
	GrayBlueOnly
)

// Grayscale converts a color input to a single channel.
type Grayscale struct {
	Mode GrayscaleMode
}

func (op Grayscale) Name() string               { return "grayscale" }
func (op Grayscale) Inputs() []texel.SocketSpec { return oneInput("color", texel.Color) }
func (op Grayscale) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "value", Type: texel.Grayscale}
}

func (op Grayscale) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		c := src.Sample(tileSampler, u, v).Vec()
		switch op.Mode {
		case GrayAverage:
			return (c.X + c.Y + c.Z) / 3
		case GrayDesaturate:
			return 0.5 * (maxf(c.X, maxf(c.Y, c.Z)) + minf(c.X, minf(c.Y, c.Z)))
		case GrayMaxDecompose:
			return maxf(c.X, maxf(c.Y, c.Z))
		case GrayMinDecompose:
			return minf(c.X, minf(c.Y, c.Z))
		case GrayRedOnly:
			return c.X
		case GrayGreenOnly:
			return c.Y
		case GrayBlueOnly:
			return c.Z
		default:
			return luminance(c)
		}
	})
	return nil
}

// Hsv shifts hue and scales saturation and value of a color input.
// All-neutral parameters (Hue 0, Saturation 1, Value 1, Mix 1) are the
// identity transform.
type Hsv struct {
	Hue        float32 // hue shift, wraps around the color wheel
	Saturation float32
	Value      float32
	Mix        float32
}

func DefaultHsv() Hsv { return Hsv{Hue: 0, Saturation: 1, Value: 1, Mix: 1} }

func (op Hsv) Name() string               { return "hsv" }
func (op Hsv) Inputs() []texel.SocketSpec { return oneInput("color_in", texel.Color) }
func (op Hsv) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color_out", Type: texel.Color}
}

func (op Hsv) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		px := src.Sample(tileSampler, u, v)
		c := px.Vec()
		h, s, val := rgb2hsv(c)
		adj := hsv2rgb(h+op.Hue, clampf(s*op.Saturation, 0, 1), val*op.Value)
		t := clampf(op.Mix, 0, 1)
		return texel.FromVec(ms3.InterpElem(c, adj, ms3.Vec{X: t, Y: t, Z: t}), px[3])
	})
	return nil
}

// ColorAdjustMode selects the cylinder [ColorAdjust] works in.
type ColorAdjustMode uint8

const (
	AdjustHSV ColorAdjustMode = iota
	AdjustHSL
	AdjustHCL
)

// ColorAdjust is the generalized color adjustment supporting the HSV,
// HSL and HCL cylinders. Fields not applicable to the selected mode are
// ignored (Value for HSV; Lightness for HSL; Chroma and Lightness for
// HCL), mirroring the conditional parameter visibility of the UI.
type ColorAdjust struct {
	Mode       ColorAdjustMode
	Hue        float32
	Saturation float32
	Value      float32
	Lightness  float32
	Chroma     float32
	Mix        float32
}

func DefaultColorAdjust() ColorAdjust {
	return ColorAdjust{Mode: AdjustHSV, Hue: 0, Saturation: 1, Value: 1, Lightness: 1, Chroma: 1, Mix: 1}
}

func (op ColorAdjust) Name() string               { return "color_adjust" }
func (op ColorAdjust) Inputs() []texel.SocketSpec { return oneInput("color_in", texel.Color) }
func (op ColorAdjust) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color_out", Type: texel.Color}
}

func (op ColorAdjust) adjust(c ms3.Vec) ms3.Vec {
	switch op.Mode {
	case AdjustHSL:
		h, s, l := rgb2hsl(c)
		return hsl2rgb(h+op.Hue, clampf(s*op.Saturation, 0, 1), clampf(l*op.Lightness, 0, 1))
	case AdjustHCL:
		h, chroma, luma := rgb2hcl(c)
		return hcl2rgb(h+op.Hue, chroma*op.Chroma, luma*op.Lightness)
	default:
		h, s, v := rgb2hsv(c)
		return hsv2rgb(h+op.Hue, clampf(s*op.Saturation, 0, 1), v*op.Value)
	}
}

func (op ColorAdjust) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		px := src.Sample(tileSampler, u, v)
		c := px.Vec()
		t := clampf(op.Mix, 0, 1)
		return texel.FromVec(ms3.InterpElem(c, op.adjust(c), ms3.Vec{X: t, Y: t, Z: t}), px[3])
	})
	return nil
}

// RangeMode selects the remap curve of [Range].
type RangeMode uint8

const (
	RangeLinear RangeMode = iota
	RangeSmoothStep
	RangeSmootherStep
	RangeStepped
)

// Range remaps a grayscale input from one interval onto another.
type Range struct {
	RangeMode   RangeMode
	FromMin     float32
	FromMax     float32
	ToMin       float32
	ToMax       float32
	Steps       int // quantization steps for RangeStepped
	ClampOutput bool
}

func DefaultRange() Range {
	return Range{FromMin: 0, FromMax: 1, ToMin: 0, ToMax: 1, Steps: 4, ClampOutput: true}
}

func (op Range) Name() string               { return "range" }
func (op Range) Inputs() []texel.SocketSpec { return oneInput("input", texel.Grayscale) }
func (op Range) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "value", Type: texel.Grayscale}
}

func (op Range) remap(x float32) float32 {
	span := op.FromMax - op.FromMin
	var t float32
	if absf(span) > epstol {
		t = (x - op.FromMin) / span
	}
	switch op.RangeMode {
	case RangeSmoothStep:
		t = smoothstepf(0, 1, t)
	case RangeSmootherStep:
		t = smootherstepf(0, 1, t)
	case RangeStepped:
		steps := float32(max(op.Steps, 2))
		t = clampf(t, 0, 1)
		t = minf(1, float32(int(t*steps))/(steps-1))
	}
	out := op.ToMin + t*(op.ToMax-op.ToMin)
	if op.ClampOutput {
		out = clampf(out, minf(op.ToMin, op.ToMax), maxf(op.ToMin, op.ToMax))
	}
	return out
}

func (op Range) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		return op.remap(src.SampleGray(tileSampler, u, v))
	})
	return nil
}

// Threshold produces a binary (or smoothed) mask from a grayscale input.
type Threshold struct {
	Smooth    bool
	Invert    bool
	Threshold float32
}

func DefaultThreshold() Threshold { return Threshold{Threshold: 0.5} }

func (op Threshold) Name() string               { return "threshold" }
func (op Threshold) Inputs() []texel.SocketSpec { return oneInput("in", texel.Grayscale) }
func (op Threshold) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Grayscale}
}

func (op Threshold) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	// Smooth width spans one texel so the mask stays antialiased at any
	// resolution.
	aa := 1 / float32(out.Width())
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		g := src.SampleGray(tileSampler, u, v)
		var m float32
		if op.Smooth {
			m = smoothstepf(op.Threshold-aa, op.Threshold+aa, g)
		} else {
			m = stepf(op.Threshold, g)
		}
		if op.Invert {
			m = 1 - m
		}
		return m
	})
	return nil
}

// SelectMode chooses the region test of [Select].
type SelectMode uint8

const (
	SelectThreshold SelectMode = iota
	SelectBand
)

// Select produces a mask from proximity to a reference value or color.
// Grayscale inputs compare the scalar against Threshold; color inputs
// compare the distance to Color. Band mode selects a band of the given
// bandwidth around the threshold.
type Select struct {
	SelectMode SelectMode
	Smooth     bool
	Invert     bool
	Threshold  float32
	Bandwidth  float32
	Color      ms3.Vec
}

func DefaultSelect() Select {
	return Select{Threshold: 0.5, Color: ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5}}
}

func (op Select) Name() string { return "select" }
func (op Select) Inputs() []texel.SocketSpec {
	return oneInput("in", texel.Dynamic)
}
func (op Select) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Grayscale}
}

func (op Select) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	isColor := src.Format() != texel.R32F
	aa := 1 / float32(out.Width())
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		var m float32
		if isColor {
			// Color inputs select by proximity to the reference color:
			// pixels within Threshold distance are in the mask.
			d := ms3.Norm(ms3.Sub(src.Sample(tileSampler, u, v).Vec(), op.Color))
			if op.Smooth {
				m = 1 - smoothstepf(op.Threshold-aa, op.Threshold+aa, d)
			} else {
				m = 1 - stepf(op.Threshold, d)
			}
		} else {
			g := src.SampleGray(tileSampler, u, v)
			switch op.SelectMode {
			case SelectBand:
				half := maxf(op.Bandwidth, 0) / 2
				d := absf(g - op.Threshold)
				if op.Smooth {
					m = 1 - smoothstepf(half-aa, half+aa, d)
				} else {
					m = 1 - stepf(half, d)
				}
			default:
				if op.Smooth {
					m = smoothstepf(op.Threshold-aa, op.Threshold+aa, g)
				} else {
					m = stepf(op.Threshold, g)
				}
			}
		}
		if op.Invert {
			m = 1 - m
		}
		return m
	})
	return nil
}

// ChannelSel addresses one channel of a color pixel.
type ChannelSel uint8

const (
	ChannelR ChannelSel = iota
	ChannelG
	ChannelB
	ChannelA
)

// Swizzle reorders the channels of a color input.
type Swizzle struct {
	ChannelR ChannelSel
	ChannelG ChannelSel
	ChannelB ChannelSel
}

func DefaultSwizzle() Swizzle {
	return Swizzle{ChannelR: ChannelR, ChannelG: ChannelG, ChannelB: ChannelB}
}

func (op Swizzle) Name() string               { return "swizzle" }
func (op Swizzle) Inputs() []texel.SocketSpec { return oneInput("color_in", texel.Dynamic) }
func (op Swizzle) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color_out", Type: texel.Color}
}

func (op Swizzle) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		c := src.Sample(tileSampler, u, v)
		return texel.RGBA{c[op.ChannelR], c[op.ChannelG], c[op.ChannelB], c[3]}
	})
	return nil
}

// Split decomposes a color input into one grayscale texture per channel.
// The graph dispatches it once per requested channel.
type Split struct {
	// Channel selects which channel this dispatch extracts.
	Channel ChannelSel
}

func (op Split) Name() string               { return "split" }
func (op Split) Inputs() []texel.SocketSpec { return oneInput("color", texel.Color) }
func (op Split) Output() texel.SocketSpec {
	switch op.Channel {
	case ChannelG:
		return texel.SocketSpec{Name: "green", Type: texel.Grayscale}
	case ChannelB:
		return texel.SocketSpec{Name: "blue", Type: texel.Grayscale}
	default:
		return texel.SocketSpec{Name: "red", Type: texel.Grayscale}
	}
}

func (op Split) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	ch := int(op.Channel)
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		return src.Sample(tileSampler, u, v)[ch]
	})
	return nil
}

// Merge recombines three grayscale channels into a color texture.
// All three inputs are required.
type Merge struct{}

func (op Merge) Name() string { return "merge" }
func (op Merge) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "red", Type: texel.Grayscale},
		{Name: "green", Type: texel.Grayscale},
		{Name: "blue", Type: texel.Grayscale},
	}
}
func (op Merge) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color", Type: texel.Color}
}

func (op Merge) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	r, g, b := in[0], in[1], in[2]
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		return texel.RGBA{
			r.SampleGray(tileSampler, u, v),
			g.SampleGray(tileSampler, u, v),
			b.SampleGray(tileSampler, u, v),
			1,
		}
	})
	return nil
}

// RampOp maps a grayscale factor input through a color [Ramp].
type RampOp struct {
	Ramp Ramp
}

func (op RampOp) Name() string               { return "ramp" }
func (op RampOp) Inputs() []texel.SocketSpec { return oneInput("factor", texel.Grayscale) }
func (op RampOp) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "color", Type: texel.Color}
}

func (op RampOp) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		f := src.SampleGray(tileSampler, u, v)
		return texel.FromVec(op.Ramp.Lookup(f), 1)
	})
	return nil
}
