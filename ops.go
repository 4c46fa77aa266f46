package texforge

import (
	"github.com/texforge/texforge/texel"
)

// tileSampler is the default sampler of the pipeline: bilinear filtered
// and repeat addressed, since the tool produces tileable textures.
var tileSampler = texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapRepeat}

// perPixel dispatches fn over every output pixel, one row shard per
// worker. fn receives the pixel-centered UV per the sampling invariant.
func perPixel(ctx *texel.Context, out *texel.Texture, fn func(x, y int, u, v float32) texel.RGBA) {
	w := out.Width()
	ctx.ParallelRange(out.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := out.UV(x, y)
				out.Set(x, y, fn(x, y, u, v))
			}
		}
	})
}

// perPixelGray is perPixel for scalar outputs.
func perPixelGray(ctx *texel.Context, out *texel.Texture, fn func(x, y int, u, v float32) float32) {
	w := out.Width()
	ctx.ParallelRange(out.Height(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := out.UV(x, y)
				out.SetGray(x, y, fn(x, y, u, v))
			}
		}
	})
}

func noInputs() []texel.SocketSpec { return nil }

func oneInput(name string, ty texel.ImageType) []texel.SocketSpec {
	return []texel.SocketSpec{{Name: name, Type: ty}}
}
