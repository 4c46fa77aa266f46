package texforge

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/texforge/texforge/texel"
)

// OcclusionQuality selects the direction and step counts of the
// horizon search.
type OcclusionQuality uint8

const (
	OcclusionLowQuality OcclusionQuality = iota
	OcclusionMidQuality
	OcclusionHighQuality
	OcclusionUltraQuality
)

func (q OcclusionQuality) counts() (dirs, steps int) {
	switch q {
	case OcclusionMidQuality:
		return 6, 6
	case OcclusionHighQuality:
		return 8, 8
	case OcclusionUltraQuality:
		return 12, 12
	default:
		return 4, 4
	}
}

// AmbientOcclusion bakes horizon-based occlusion from a heightfield.
// For each pixel a set of directions is marched outward up to Radius in
// UV space; the steepest upward slope seen along a direction is its
// horizon, attenuated by distance under Falloff, and the averaged
// horizon occlusion darkens the output. Depth scales height values
// before the slope test. Jitter rotates the direction fan per pixel to
// trade banding for noise. Albedo biases the result brightness; 0.5 is
// neutral.
type AmbientOcclusion struct {
	Quality OcclusionQuality
	Jitter  bool
	Radius  float32
	Falloff float32
	Depth   float32
	Albedo  float32
}

func DefaultAmbientOcclusion() AmbientOcclusion {
	return AmbientOcclusion{
		Quality: OcclusionLowQuality,
		Jitter:  true,
		Radius:  0.01,
		Falloff: 0.5,
		Depth:   1,
		Albedo:  0.5,
	}
}

func (op AmbientOcclusion) Name() string { return "ambient_occlusion" }
func (op AmbientOcclusion) Inputs() []texel.SocketSpec {
	return oneInput("height", texel.Grayscale)
}
func (op AmbientOcclusion) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "ao", Type: texel.Grayscale}
}

func (op AmbientOcclusion) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	height := in[0]
	dirs, steps := op.Quality.counts()
	stepLen := op.Radius / float32(steps)
	perPixelGray(ctx, out, func(x, y int, u, v float32) float32 {
		p := ms2.Vec{X: u, Y: v}
		h0 := height.SampleGray(tileSampler, u, v) * op.Depth
		rot := float32(0)
		if op.Jitter {
			rot = hash12(p) * tau / float32(dirs)
		}
		occ := float32(0)
		for i := 0; i < dirs; i++ {
			ang := tau*float32(i)/float32(dirs) + rot
			dir := ms2.Vec{X: math32.Cos(ang), Y: math32.Sin(ang)}
			horizon := float32(0)
			for s := 1; s <= steps; s++ {
				dist := stepLen * float32(s)
				q := ms2.Add(p, ms2.Scale(dist, dir))
				dh := height.SampleGray(tileSampler, q.X, q.Y)*op.Depth - h0
				if dh <= 0 {
					continue
				}
				atten := 1 - op.Falloff*dist/op.Radius
				slope := dh / dist * atten
				horizon = maxf(horizon, slope)
			}
			// tangent to sine of the horizon angle
			occ += horizon / math32.Sqrt(1+horizon*horizon)
		}
		ao := 1 - occ/float32(dirs)
		return clampf(ao*2*op.Albedo, 0, 1)
	})
	return nil
}
