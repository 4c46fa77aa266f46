package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/texforge/texforge/texel"
)

// ScatterEdge controls stamp addressing at the domain boundary.
type ScatterEdge uint8

const (
	// ScatterEdgeClamp clamps the stamp grid at the border.
	ScatterEdgeClamp ScatterEdge = iota
	// ScatterEdgeTile wraps the stamp grid so the result tiles.
	ScatterEdgeTile
	// ScatterEdgeSolid drops stamps outside the domain entirely.
	ScatterEdgeSolid
)

// ScatterBlend controls how overlapping stamps combine.
type ScatterBlend uint8

const (
	ScatterBlendAdd ScatterBlend = iota
	ScatterBlendMax
	ScatterBlendMin
)

// Scatter stamps the image input at jittered positions on a Scale x
// Scale grid, one candidate stamp per cell. Every stamp carries hashed
// per-cell rotation, size and intensity variation; the optional
// probability, size and intensity masks modulate those per position.
// Overlapping stamps combine additively (with optional
// variance-normalized level adjustment) or by min/max. Supersample
// averages a 5x5 subpixel grid, useful when stamps are much smaller
// than an output texel.
type Scatter struct {
	EdgeMode        ScatterEdge
	BlendMode       ScatterBlend
	AdjustLevels    bool
	Supersample     bool
	Scale           int
	Size            float32
	Intensity       float32
	Density         float32
	Randomness      float32
	RandomRot       float32
	RandomSize      float32
	RandomIntensity float32
}

func DefaultScatter() Scatter {
	return Scatter{
		EdgeMode:        ScatterEdgeClamp,
		BlendMode:       ScatterBlendMax,
		AdjustLevels:    true,
		Scale:           8,
		Size:            1,
		Intensity:       1,
		Density:         1,
		Randomness:      0.5,
		RandomRot:       1,
		RandomIntensity: 1,
	}
}

func (op Scatter) Name() string { return "scatter" }
func (op Scatter) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "image", Type: texel.Dynamic},
		{Name: "probability", Type: texel.Grayscale, Optional: true},
		{Name: "size", Type: texel.Grayscale, Optional: true},
		{Name: "intensity", Type: texel.Grayscale, Optional: true},
	}
}
func (op Scatter) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Dynamic}
}

// maskAt samples an optional grayscale mask, returning 1 when unbound.
func maskAt(mask *texel.Texture, u, v float32) float32 {
	if mask == nil {
		return 1
	}
	return mask.SampleGray(tileSampler, u, v)
}

func (op Scatter) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	image, probability, size, intensity := in[0], in[1], in[2], in[3]
	scale := op.Scale
	if scale < 1 {
		scale = 1
	}
	fscale := float32(scale)

	stampSampler := texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapBorder}

	// eval gathers every stamp that can reach uv: a stamp center lies at
	// most one cell away once jitter and size growth are accounted for,
	// so the 3x3 cell neighborhood suffices.
	eval := func(u, v float32) texel.RGBA {
		acc := texel.RGBA{}
		if op.BlendMode == ScatterBlendMin {
			acc = texel.RGBA{1, 1, 1, 1}
		}
		stamps := 0
		cx := int(math32.Floor(u * fscale))
		cy := int(math32.Floor(v * fscale))
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				ix, iy := cx+ox, cy+oy
				switch op.EdgeMode {
				case ScatterEdgeTile:
					ix = ((ix % scale) + scale) % scale
					iy = ((iy % scale) + scale) % scale
				case ScatterEdgeSolid:
					if ix < 0 || ix >= scale || iy < 0 || iy >= scale {
						continue
					}
				default:
					if ix < 0 {
						ix = 0
					} else if ix >= scale {
						ix = scale - 1
					}
					if iy < 0 {
						iy = 0
					} else if iy >= scale {
						iy = scale - 1
					}
				}
				cell := ms2.Vec{X: float32(ix), Y: float32(iy)}
				jitter := ms2.Scale(op.Randomness, ms2.AddScalar(-0.5, hash22(cell)))
				center := ms2.Scale(1/fscale, ms2.Add(ms2.AddScalar(0.5, cell), jitter))

				if hash12(ms2.AddScalar(13.7, cell)) > op.Density*maskAt(probability, center.X, center.Y) {
					continue
				}
				sz := op.Size / fscale * maskAt(size, center.X, center.Y)
				sz *= 1 - op.RandomSize*hash12(ms2.AddScalar(7.3, cell))
				if sz <= 0 {
					continue
				}
				rot := op.RandomRot * tau * hash12(ms2.AddScalar(3.1, cell))
				gain := op.Intensity * maskAt(intensity, center.X, center.Y)
				gain *= 1 - op.RandomIntensity*hash12(ms2.AddScalar(29.5, cell))

				// stamp-local coordinates, rotated then normalized
				rel := ms2.Vec{X: u - center.X, Y: v - center.Y}
				sin, cos := math32.Sincos(-rot)
				rel = ms2.Vec{X: cos*rel.X - sin*rel.Y, Y: sin*rel.X + cos*rel.Y}
				su := rel.X/sz + 0.5
				sv := rel.Y/sz + 0.5
				if su < 0 || su > 1 || sv < 0 || sv > 1 {
					continue
				}
				c := image.Sample(stampSampler, su, sv)
				stamps++
				switch op.BlendMode {
				case ScatterBlendMax:
					for k := range acc {
						acc[k] = maxf(acc[k], c[k]*gain)
					}
				case ScatterBlendMin:
					for k := range acc {
						acc[k] = minf(acc[k], c[k]*gain)
					}
				default:
					for k := range acc {
						acc[k] += c[k] * gain
					}
				}
			}
		}
		if op.BlendMode == ScatterBlendAdd && op.AdjustLevels && stamps > 1 {
			// variance normalization keeps additive overlap from blowing
			// out: n uncorrelated stamps raise the level by sqrt(n).
			norm := 1 / math32.Sqrt(float32(stamps))
			for k := range acc {
				acc[k] *= norm
			}
		}
		if op.BlendMode == ScatterBlendMin && stamps == 0 {
			acc = texel.RGBA{}
		}
		return acc
	}

	if !op.Supersample {
		perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
			return eval(u, v)
		})
		return nil
	}
	du := 1 / float32(5*out.Width())
	dv := 1 / float32(5*out.Height())
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		var acc texel.RGBA
		for sy := -2; sy <= 2; sy++ {
			for sx := -2; sx <= 2; sx++ {
				c := eval(u+float32(sx)*du, v+float32(sy)*dv)
				for k := range acc {
					acc[k] += c[k]
				}
			}
		}
		for k := range acc {
			acc[k] /= 25
		}
		return acc
	})
	return nil
}
