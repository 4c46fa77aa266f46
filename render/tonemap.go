package render

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// ToneMap selects the HDR to display transform applied at resolve
// time.
type ToneMap uint8

const (
	ToneMapReinhard ToneMap = iota
	ToneMapReinhardJodie
	ToneMapHableFilmic
	ToneMapACES
)

// Apply maps linear HDR radiance into [0,1].
func (tm ToneMap) Apply(c ms3.Vec) ms3.Vec {
	switch tm {
	case ToneMapReinhardJodie:
		return reinhardJodie(c)
	case ToneMapHableFilmic:
		return hableFilmic(c)
	case ToneMapACES:
		return acesApprox(c)
	default:
		return ms3.DivElem(c, ms3.AddScalar(1, c))
	}
}

// reinhardJodie blends per-channel and luminance Reinhard, keeping
// saturated highlights from washing out.
func reinhardJodie(c ms3.Vec) ms3.Vec {
	l := 0.2126*c.X + 0.7152*c.Y + 0.0722*c.Z
	tc := ms3.DivElem(c, ms3.AddScalar(1, c))
	tl := ms3.Scale(1/(1+l), c)
	return ms3.InterpElem(tl, tc, tc)
}

func hablePartial(c ms3.Vec) ms3.Vec {
	const a, b, cc, d, e, f = 0.15, 0.50, 0.10, 0.20, 0.02, 0.30
	num := ms3.AddScalar(d*e, ms3.MulElem(c, ms3.AddScalar(cc*b, ms3.Scale(a, c))))
	den := ms3.AddScalar(d*f, ms3.MulElem(c, ms3.AddScalar(b, ms3.Scale(a, c))))
	return ms3.AddScalar(-e/f, ms3.DivElem(num, den))
}

func hableFilmic(c ms3.Vec) ms3.Vec {
	const exposureBias = 2
	cur := hablePartial(ms3.Scale(exposureBias, c))
	w := float32(11.2)
	white := hablePartial(ms3.Vec{X: w, Y: w, Z: w})
	return ms3.DivElem(cur, white)
}

func acesApprox(c ms3.Vec) ms3.Vec {
	const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	c = ms3.Scale(0.6, c)
	num := ms3.MulElem(c, ms3.AddScalar(b, ms3.Scale(a, c)))
	den := ms3.AddScalar(e, ms3.MulElem(c, ms3.AddScalar(d, ms3.Scale(cc, c))))
	r := ms3.DivElem(num, den)
	return ms3.MinElem(ms3.MaxElem(r, ms3.Vec{}), ms3.Vec{X: 1, Y: 1, Z: 1})
}

// gamma applies the display transfer pow(c, 1/1.2).
func gamma(c ms3.Vec) ms3.Vec {
	const inv = 1 / 1.2
	return ms3.Vec{
		X: math32.Pow(maxf(c.X, 0), inv),
		Y: math32.Pow(maxf(c.Y, 0), inv),
		Z: math32.Pow(maxf(c.Z, 0), inv),
	}
}
