package texforge

import (
	"github.com/chewxy/math32"
	"github.com/texforge/texforge/texel"
)

// BlurQuality selects how many box passes approximate the Gaussian.
type BlurQuality uint8

const (
	BlurLowQuality BlurQuality = iota
	BlurHighQuality
)

func (q BlurQuality) passes() int {
	if q == BlurHighQuality {
		return 3
	}
	return 2
}

// Blur approximates a Gaussian blur of standard deviation Sigma by a
// chain of box filters, each run as separable row and column passes
// with an O(1) sliding-window sum per pixel. Addressing wraps, so the
// blur is toroidal and preserves tileability.
//
// When the optional mask input is bound the operator switches to
// variable-radius mode: the per-pixel radius is mask x Sigma, realized
// by stratified Hammersley disk sampling followed by a small box pass
// that removes the stair-stepping left by low sample counts.
type Blur struct {
	Quality BlurQuality
	Sigma   float32
}

func DefaultBlur() Blur { return Blur{Quality: BlurHighQuality, Sigma: 5} }

func (op Blur) Name() string { return "blur" }
func (op Blur) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "in", Type: texel.Dynamic},
		{Name: "mask", Type: texel.Grayscale, Optional: true},
	}
}
func (op Blur) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Dynamic}
}

// boxRadii returns the per-pass half-widths such that n box passes
// match the requested standard deviation. The ideal single width is
// w = sqrt(12*sigma^2/n + 1); since widths must be odd integers, the
// first m passes use the next odd width below the ideal and the rest
// the odd width above, with m chosen so the summed variance lands
// closest to 12*sigma^2.
func boxRadii(sigma float32, n int) []int {
	wIdeal := math32.Sqrt(12*sigma*sigma/float32(n) + 1)
	wl := int(math32.Floor(wIdeal))
	if wl%2 == 0 {
		wl--
	}
	if wl < 1 {
		wl = 1
	}
	wu := wl + 2
	mIdeal := (12*sigma*sigma - float32(n*wl*wl) - float32(4*n*wl) - float32(3*n)) /
		(float32(-4*wl) - 4)
	m := int(mIdeal + 0.5)
	if m < 0 {
		m = 0
	} else if m > n {
		m = n
	}
	radii := make([]int, n)
	for i := range radii {
		if i < m {
			radii[i] = (wl - 1) / 2
		} else {
			radii[i] = (wu - 1) / 2
		}
	}
	return radii
}

// rowBoxBlur runs the horizontal box pass. Each work item owns a whole
// row and maintains a running window sum; indices wrap.
func rowBoxBlur(ctx *texel.Context, src, dst *texel.Texture, r int) {
	w, h := src.Width(), src.Height()
	ch := src.Format().Channels()
	sdata, ddata := src.Data(), dst.Data()
	norm := 1 / float32(2*r+1)
	ctx.ParallelRange(h, func(y0, y1 int) {
		var sum [4]float32
		for y := y0; y < y1; y++ {
			row := y * w * ch
			for c := 0; c < ch; c++ {
				sum[c] = 0
			}
			for i := -r; i <= r; i++ {
				xi := wrapIndex(i, w)
				for c := 0; c < ch; c++ {
					sum[c] += sdata[row+xi*ch+c]
				}
			}
			for x := 0; x < w; x++ {
				for c := 0; c < ch; c++ {
					ddata[row+x*ch+c] = sum[c] * norm
				}
				// Slide the window: drop the leftmost texel, admit the
				// next one to the right.
				drop := wrapIndex(x-r, w)
				add := wrapIndex(x+r+1, w)
				for c := 0; c < ch; c++ {
					sum[c] += sdata[row+add*ch+c] - sdata[row+drop*ch+c]
				}
			}
		}
	})
}

// colBoxBlur runs the vertical box pass, one work item per column.
// It must only run after the row pass producing src has completed;
// dispatch sequencing provides that barrier.
func colBoxBlur(ctx *texel.Context, src, dst *texel.Texture, r int) {
	w, h := src.Width(), src.Height()
	ch := src.Format().Channels()
	sdata, ddata := src.Data(), dst.Data()
	norm := 1 / float32(2*r+1)
	ctx.ParallelRange(w, func(x0, x1 int) {
		var sum [4]float32
		for x := x0; x < x1; x++ {
			for c := 0; c < ch; c++ {
				sum[c] = 0
			}
			for i := -r; i <= r; i++ {
				yi := wrapIndex(i, h)
				for c := 0; c < ch; c++ {
					sum[c] += sdata[(yi*w+x)*ch+c]
				}
			}
			for y := 0; y < h; y++ {
				for c := 0; c < ch; c++ {
					ddata[(y*w+x)*ch+c] = sum[c] * norm
				}
				drop := wrapIndex(y-r, h)
				add := wrapIndex(y+r+1, h)
				for c := 0; c < ch; c++ {
					sum[c] += sdata[(add*w+x)*ch+c] - sdata[(drop*w+x)*ch+c]
				}
			}
		}
	})
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func (op Blur) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src, mask := in[0], in[1]
	if mask != nil {
		return op.variableRadius(ctx, src, mask, out)
	}
	n := op.Quality.passes()
	radii := boxRadii(op.Sigma, n)
	all0 := true
	for _, r := range radii {
		if r > 0 {
			all0 = false
		}
	}
	if all0 {
		return out.CopyFrom(src)
	}
	tmp1 := ctx.Pool.AcquireTexture(out.Width(), out.Height(), out.Format())
	tmp2 := ctx.Pool.AcquireTexture(out.Width(), out.Height(), out.Format())
	defer ctx.Pool.ReleaseTexture(tmp1)
	defer ctx.Pool.ReleaseTexture(tmp2)
	if err := tmp2.CopyFrom(src); err != nil {
		return err
	}
	for pass, r := range radii {
		rowBoxBlur(ctx, tmp2, tmp1, r)
		if pass == n-1 {
			colBoxBlur(ctx, tmp1, out, r)
		} else {
			colBoxBlur(ctx, tmp1, tmp2, r)
		}
	}
	return nil
}

// variableRadiusSamples is sized so the disk stays acceptably covered
// at common radii; the cleanup box pass hides residual banding.
func (op Blur) variableRadiusSamples() uint32 {
	if op.Quality == BlurHighQuality {
		return 64
	}
	return 32
}

func (op Blur) variableRadius(ctx *texel.Context, src, mask *texel.Texture, out *texel.Texture) error {
	w := float32(out.Width())
	h := float32(out.Height())
	samples := op.variableRadiusSamples()
	tmp := ctx.Pool.AcquireTexture(out.Width(), out.Height(), out.Format())
	tmp2 := ctx.Pool.AcquireTexture(out.Width(), out.Height(), out.Format())
	defer ctx.Pool.ReleaseTexture(tmp)
	defer ctx.Pool.ReleaseTexture(tmp2)

	perPixel(ctx, tmp, func(x, y int, u, v float32) texel.RGBA {
		radius := mask.SampleGray(tileSampler, u, v) * op.Sigma
		if radius < 0.5 {
			return src.Sample(tileSampler, u, v)
		}
		var acc [4]float32
		for i := uint32(0); i < samples; i++ {
			d := DiskSample(Hammersley(i, samples))
			c := src.Sample(tileSampler, u+d.X*radius/w, v+d.Y*radius/h)
			for k := 0; k < 4; k++ {
				acc[k] += c[k]
			}
		}
		inv := 1 / float32(samples)
		return texel.RGBA{acc[0] * inv, acc[1] * inv, acc[2] * inv, acc[3] * inv}
	})
	// Cleanup pass: small fixed box to suppress undersampling artifacts.
	rowBoxBlur(ctx, tmp, tmp2, 1)
	colBoxBlur(ctx, tmp2, out, 1)
	return nil
}
