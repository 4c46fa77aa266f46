package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Rec. 709 luma weights used by grayscale conversion and HCL luma.
var lumaWeights = ms3.Vec{X: 0.2126, Y: 0.7152, Z: 0.0722}

func luminance(c ms3.Vec) float32 { return ms3.Dot(c, lumaWeights) }

// rgb2hsv converts an RGB color in [0,1] to hue/saturation/value with
// hue in [0,1). Zero-delta (gray) inputs return hue 0.
func rgb2hsv(c ms3.Vec) (h, s, v float32) {
	cmax := maxf(c.X, maxf(c.Y, c.Z))
	cmin := minf(c.X, minf(c.Y, c.Z))
	delta := cmax - cmin
	v = cmax
	if cmax > epstol {
		s = delta / cmax
	}
	if delta < epstol {
		return 0, s, v
	}
	switch cmax {
	case c.X:
		h = modf((c.Y-c.Z)/delta, 6)
	case c.Y:
		h = (c.Z-c.X)/delta + 2
	default:
		h = (c.X-c.Y)/delta + 4
	}
	h /= 6
	return h, s, v
}

func hsv2rgb(h, s, v float32) ms3.Vec {
	h = fractf(h) * 6
	i := math32.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		return ms3.Vec{X: v, Y: t, Z: p}
	case 1:
		return ms3.Vec{X: q, Y: v, Z: p}
	case 2:
		return ms3.Vec{X: p, Y: v, Z: t}
	case 3:
		return ms3.Vec{X: p, Y: q, Z: v}
	case 4:
		return ms3.Vec{X: t, Y: p, Z: v}
	default:
		return ms3.Vec{X: v, Y: p, Z: q}
	}
}

func rgb2hsl(c ms3.Vec) (h, s, l float32) {
	cmax := maxf(c.X, maxf(c.Y, c.Z))
	cmin := minf(c.X, minf(c.Y, c.Z))
	delta := cmax - cmin
	l = 0.5 * (cmax + cmin)
	if delta < epstol {
		return 0, 0, l
	}
	div := 1 - absf(2*l-1)
	if div > epstol {
		s = delta / div
	}
	switch cmax {
	case c.X:
		h = modf((c.Y-c.Z)/delta, 6)
	case c.Y:
		h = (c.Z-c.X)/delta + 2
	default:
		h = (c.X-c.Y)/delta + 4
	}
	h /= 6
	return h, s, l
}

func hsl2rgb(h, s, l float32) ms3.Vec {
	c := (1 - absf(2*l-1)) * s
	hp := fractf(h) * 6
	x := c * (1 - absf(modf(hp, 2)-1))
	m := l - c/2
	var r, g, b float32
	switch int(hp) {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return ms3.Vec{X: r + m, Y: g + m, Z: b + m}
}

// rgb2hcl converts to the hexagonal hue/chroma/luma cylinder. The hue
// angle is undefined at zero chroma; the epsilon floor on the atan2
// operands keeps the conversion total, returning hue 0 for grays.
func rgb2hcl(c ms3.Vec) (h, chroma, luma float32) {
	a := 0.5 * (2*c.X - c.Y - c.Z)
	b := 0.5 * sqrt3 * (c.Y - c.Z)
	chroma = math32.Hypot(a, b)
	luma = luminance(c)
	if chroma < epstol {
		return 0, chroma, luma
	}
	h = math32.Atan2(b, a) / tau
	if h < 0 {
		h += 1
	}
	return h, chroma, luma
}

func hcl2rgb(h, chroma, luma float32) ms3.Vec {
	angle := h * tau
	a := chroma * math32.Cos(angle)
	b := chroma * math32.Sin(angle)
	// Invert the opponent projection, then restore luma.
	r := a * (2.0 / 3.0)
	g := -a/3 + b/sqrt3
	bl := -a/3 - b/sqrt3
	c := ms3.Vec{X: r, Y: g, Z: bl}
	shift := luma - luminance(c)
	return ms3.AddScalar(shift, c)
}

const sqrt3 = 1.7320508075688772935274463415058723669428052538103806280558069794
