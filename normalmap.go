package texforge

import (
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/texel"
)

// NormalMap derives a tangent-space normal map from a heightfield with
// the Sobel gradient, encoded into [0,1] color channels with +Z facing
// out of the surface. Strength scales the gradient before
// normalization.
type NormalMap struct {
	Strength float32
}

func DefaultNormalMap() NormalMap { return NormalMap{Strength: 1} }

func (op NormalMap) Name() string { return "normal_map" }
func (op NormalMap) Inputs() []texel.SocketSpec {
	return oneInput("height", texel.Grayscale)
}
func (op NormalMap) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "normal", Type: texel.Color}
}

func (op NormalMap) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	height := in[0]
	perPixel(ctx, out, func(x, y int, u, v float32) texel.RGBA {
		g := sobelGradient(height, u, v)
		n := ms3.Unit(ms3.Vec{X: -g.X * op.Strength, Y: -g.Y * op.Strength, Z: 1})
		return texel.FromVec(encodeNormal(n), 1)
	})
	return nil
}
