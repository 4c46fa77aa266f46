package texforge_test

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge"
	"github.com/texforge/texforge/texel"
)

func dispatch(t *testing.T, op texel.Operator, in []*texel.Texture, out *texel.Texture) {
	t.Helper()
	ctx := texel.NewContext(2)
	if err := texel.Dispatch(ctx, op, in, out); err != nil {
		t.Fatalf("dispatching %s: %v", op.Name(), err)
	}
	if err := ctx.Pool.AssertAllReleased(); err != nil {
		t.Fatalf("%s leaked scratch: %v", op.Name(), err)
	}
}

func randomColor(rng *rand.Rand, w, h int) *texel.Texture {
	tex := texel.New(w, h, texel.RGBA32F)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tex.Set(x, y, texel.RGBA{rng.Float32(), rng.Float32(), rng.Float32(), 1})
		}
	}
	return tex
}

func TestDistanceTransformExact(t *testing.T) {
	for _, n := range []int{64, 256} {
		src := texel.New(n, n, texel.R32F)
		cx, cy := n/2, n/2
		src.SetGray(cx, cy, 1)
		out := texel.New(n, n, texel.R32F)
		op := texforge.DefaultDistance()
		op.BorderMode = texforge.DistanceBorderOpen
		op.Extent = 0 // unit scaling: output is distance/width
		dispatch(t, op, []*texel.Texture{src}, out)
		bad := 0
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx, dy := float32(x-cx), float32(y-cy)
				want := math32.Sqrt(dx*dx+dy*dy) / float32(n)
				got := out.Gray(x, y)
				if math32.Abs(got-want) > 1e-3 {
					bad++
					if bad < 4 {
						t.Errorf("n=%d (%d,%d): distance %v, want %v", n, x, y, got, want)
					}
				}
			}
		}
		if bad > 0 {
			t.Errorf("n=%d: %d pixels off", n, bad)
		}
	}
}

func TestDistanceManhattanSinglePoint(t *testing.T) {
	const n = 64
	src := texel.New(n, n, texel.R32F)
	src.SetGray(n/2, n/2, 1)
	out := texel.New(n, n, texel.R32F)
	op := texforge.DefaultDistance()
	op.Metric = texforge.DistanceManhattan
	op.BorderMode = texforge.DistanceBorderOpen
	op.Extent = 0
	dispatch(t, op, []*texel.Texture{src}, out)
	for _, p := range [][2]int{{n / 2, n / 2}, {n/2 + 5, n / 2}, {n/2 + 3, n/2 - 4}, {10, 50}} {
		dx := absi(p[0] - n/2)
		dy := absi(p[1] - n/2)
		want := float32(dx+dy) / n
		if got := out.Gray(p[0], p[1]); math32.Abs(got-want) > 1e-3 {
			t.Errorf("manhattan at %v: %v, want %v", p, got, want)
		}
	}
}

func TestDistanceChebyshevSinglePoint(t *testing.T) {
	const n = 64
	src := texel.New(n, n, texel.R32F)
	src.SetGray(n/2, n/2, 1)
	out := texel.New(n, n, texel.R32F)
	op := texforge.DefaultDistance()
	op.Metric = texforge.DistanceChebyshev
	op.BorderMode = texforge.DistanceBorderOpen
	op.Extent = 0
	dispatch(t, op, []*texel.Texture{src}, out)
	for _, p := range [][2]int{{n / 2, n / 2}, {n/2 + 7, n / 2}, {n/2 - 3, n/2 + 6}, {12, 48}} {
		dx := absi(p[0] - n/2)
		dy := absi(p[1] - n/2)
		want := float32(maxi(dx, dy)) / n
		if got := out.Gray(p[0], p[1]); math32.Abs(got-want) > 1e-3 {
			t.Errorf("chebyshev at %v: %v, want %v", p, got, want)
		}
	}
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absi(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestBlurVarianceMatchesSigma(t *testing.T) {
	const n = 128
	const sigma = 6
	src := texel.New(n, n, texel.R32F)
	src.SetGray(n/2, n/2, 1)
	for _, q := range []texforge.BlurQuality{texforge.BlurLowQuality, texforge.BlurHighQuality} {
		out := texel.New(n, n, texel.R32F)
		op := texforge.Blur{Quality: q, Sigma: sigma}
		dispatch(t, op, []*texel.Texture{src, nil}, out)
		var sum, m2 float32
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				w := out.Gray(x, y)
				dx := float32(x - n/2)
				sum += w
				m2 += w * dx * dx
			}
		}
		if sum <= 0 {
			t.Fatalf("quality %d: blurred impulse sums to %v", q, sum)
		}
		measured := math32.Sqrt(m2 / sum)
		if rel := math32.Abs(measured-sigma) / sigma; rel > 0.05 {
			t.Errorf("quality %d: measured sigma %v, want %v within 5%%", q, measured, sigma)
		}
	}
}

func TestBlurPreservesMean(t *testing.T) {
	const n = 64
	rng := rand.New(rand.NewSource(7))
	src := texel.New(n, n, texel.R32F)
	var mean float32
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := rng.Float32()
			src.SetGray(x, y, v)
			mean += v
		}
	}
	mean /= n * n
	out := texel.New(n, n, texel.R32F)
	dispatch(t, texforge.DefaultBlur(), []*texel.Texture{src, nil}, out)
	var got float32
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			got += out.Gray(x, y)
		}
	}
	got /= n * n
	if math32.Abs(got-mean) > 1e-3 {
		t.Errorf("blur changed mean: %v -> %v", mean, got)
	}
}

func TestBlurWrapsAroundEdges(t *testing.T) {
	// blurring an impulse sitting on the corner must spill across all
	// four edges symmetrically; clamp addressing would pile the energy
	// up on the near side and leave the far side dark
	const n = 64
	src := texel.New(n, n, texel.R32F)
	src.SetGray(0, 0, 1)
	out := texel.New(n, n, texel.R32F)
	dispatch(t, texforge.Blur{Quality: texforge.BlurHighQuality, Sigma: 4}, []*texel.Texture{src, nil}, out)
	if far := out.Gray(n-1, 0); far <= 0 {
		t.Fatalf("no energy wrapped past the right edge: %v", far)
	}
	for d := 1; d <= 8; d++ {
		r, l := out.Gray(d, 0), out.Gray(n-d, 0)
		if math32.Abs(r-l) > 1e-6 {
			t.Errorf("x offset %d: %v right vs %v wrapped left", d, r, l)
		}
		b, u := out.Gray(0, d), out.Gray(0, n-d)
		if math32.Abs(b-u) > 1e-6 {
			t.Errorf("y offset %d: %v down vs %v wrapped up", d, b, u)
		}
	}
}

func TestBlurVariableRadiusMask(t *testing.T) {
	const n = 64
	src := texel.New(n, n, texel.R32F)
	src.SetGray(n/2, n/2, 1)
	mask := texel.New(n, n, texel.R32F)
	out := texel.New(n, n, texel.R32F)
	op := texforge.Blur{Quality: texforge.BlurHighQuality, Sigma: 6}

	// zero mask: the disk sampling is skipped, leaving only the 3x3
	// cleanup box, so the impulse becomes a 1/9 plateau
	dispatch(t, op, []*texel.Texture{src, mask}, out)
	if got := out.Gray(n/2, n/2); math32.Abs(got-1.0/9) > 1e-6 {
		t.Errorf("zero-mask center = %v, want 1/9", got)
	}
	if got := out.Gray(n/2+1, n/2-1); math32.Abs(got-1.0/9) > 1e-6 {
		t.Errorf("zero-mask corner neighbor = %v, want 1/9", got)
	}
	if got := out.Gray(n/2+2, n/2); got != 0 {
		t.Errorf("zero-mask outside cleanup box = %v, want 0", got)
	}

	// full mask: the disk sampling spreads energy well past the
	// cleanup box and pulls the peak down
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			mask.SetGray(x, y, 1)
		}
	}
	dispatch(t, op, []*texel.Texture{src, mask}, out)
	if got := out.Gray(n/2, n/2); got >= 1.0/9 {
		t.Errorf("full-mask center = %v, want below the cleanup plateau", got)
	}
	spread := 0
	for d := 2; d <= 5; d++ {
		if out.Gray(n/2+d, n/2) > 0 {
			spread++
		}
	}
	if spread == 0 {
		t.Error("full mask spread no energy past the cleanup box")
	}
}

func TestBlendIdentityAtZeroMix(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 16
	bg := randomColor(rng, n, n)
	fg := randomColor(rng, n, n)
	modes := []texforge.BlendMode{
		texforge.BlendMix, texforge.BlendMultiply, texforge.BlendAdd,
		texforge.BlendSubtract, texforge.BlendScreen, texforge.BlendDifference,
		texforge.BlendOverlay, texforge.BlendDarken, texforge.BlendLighten,
		texforge.BlendInvertLighten, texforge.BlendSmoothDarken,
		texforge.BlendSmoothLighten, texforge.BlendSmoothInvertLighten,
	}
	for _, mode := range modes {
		out := texel.New(n, n, texel.RGBA32F)
		op := texforge.DefaultBlend()
		op.BlendMode = mode
		op.Mix = 0
		dispatch(t, op, []*texel.Texture{bg, fg, nil}, out)
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				want := bg.At(x, y)
				got := out.At(x, y)
				for k := 0; k < 3; k++ {
					if math32.Abs(got[k]-want[k]) > 1e-6 {
						t.Fatalf("mode %d at (%d,%d): blend(a,b,0) = %v, want %v", mode, x, y, got, want)
					}
				}
			}
		}
	}
}

func TestBlendMixFullForeground(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const n = 16
	bg := randomColor(rng, n, n)
	fg := randomColor(rng, n, n)
	out := texel.New(n, n, texel.RGBA32F)
	op := texforge.DefaultBlend()
	op.BlendMode = texforge.BlendMix
	op.Mix = 1
	dispatch(t, op, []*texel.Texture{bg, fg, nil}, out)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			want := fg.At(x, y)
			got := out.At(x, y)
			for k := 0; k < 3; k++ {
				if math32.Abs(got[k]-want[k]) > 1e-6 {
					t.Fatalf("(%d,%d): blend(a,b,1) mix = %v, want %v", x, y, got, want)
				}
			}
		}
	}
}

func TestHSVIdentity(t *testing.T) {
	// one triple per color wheel sextant
	colors := []texel.RGBA{
		{0.9, 0.2, 0.1, 1},
		{0.8, 0.7, 0.1, 1},
		{0.2, 0.9, 0.3, 1},
		{0.1, 0.8, 0.7, 1},
		{0.2, 0.3, 0.9, 1},
		{0.8, 0.1, 0.7, 1},
	}
	src := texel.New(len(colors), 1, texel.RGBA32F)
	for i, c := range colors {
		src.Set(i, 0, c)
	}
	out := texel.New(len(colors), 1, texel.RGBA32F)
	op := texforge.Hsv{Hue: 0, Saturation: 1, Value: 1, Mix: 1}
	dispatch(t, op, []*texel.Texture{src}, out)
	for i, want := range colors {
		got := out.At(i, 0)
		for k := 0; k < 3; k++ {
			if math32.Abs(got[k]-want[k]) > 1e-5 {
				t.Errorf("color %d: identity HSV returned %v, want %v", i, got, want)
			}
		}
	}
}

func TestRampLookup(t *testing.T) {
	ramp, err := texforge.NewRamp(
		texforge.RampStop{Position: 0, Color: vec3(0, 0, 0)},
		texforge.RampStop{Position: 1, Color: vec3(1, 0.5, 0)},
	)
	if err != nil {
		t.Fatal(err)
	}
	mid := ramp.Lookup(0.5)
	if math32.Abs(mid.X-0.5) > 1e-6 || math32.Abs(mid.Y-0.25) > 1e-6 {
		t.Errorf("midpoint lookup = %v", mid)
	}
	if lo := ramp.Lookup(-4); lo != vec3(0, 0, 0) {
		t.Errorf("lookup below range = %v, want first stop", lo)
	}
	if hi := ramp.Lookup(4); hi != vec3(1, 0.5, 0) {
		t.Errorf("lookup above range = %v, want last stop", hi)
	}
}

func TestRampTooManyStops(t *testing.T) {
	stops := make([]texforge.RampStop, texforge.MaxRampStops+1)
	if _, err := texforge.NewRamp(stops...); err == nil {
		t.Error("expected error for oversized ramp")
	}
}

func TestCheckerTiles(t *testing.T) {
	const n = 64
	op := texforge.DefaultChecker() // tiling 2: one full period is n/2 texels
	out := texel.New(n, n, texel.R32F)
	dispatch(t, op, nil, out)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a := out.Gray(x, y)
			b := out.Gray((x+n/2)%n, (y+n/2)%n)
			if a != b {
				t.Fatalf("(%d,%d): pattern not periodic, %v vs %v", x, y, a, b)
			}
		}
	}
}

func TestThresholdInvert(t *testing.T) {
	const n = 8
	src := texel.New(n, 1, texel.R32F)
	for x := 0; x < n; x++ {
		src.SetGray(x, 0, float32(x)/(n-1))
	}
	out := texel.New(n, 1, texel.R32F)
	op := texforge.DefaultThreshold()
	op.Invert = true
	dispatch(t, op, []*texel.Texture{src}, out)
	if out.Gray(0, 0) != 1 || out.Gray(n-1, 0) != 0 {
		t.Errorf("inverted threshold ends = %v,%v, want 1,0", out.Gray(0, 0), out.Gray(n-1, 0))
	}
}

func TestSplitMergeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const n = 8
	src := randomColor(rng, n, n)
	chans := make([]*texel.Texture, 3)
	for i, ch := range []texforge.ChannelSel{texforge.ChannelR, texforge.ChannelG, texforge.ChannelB} {
		chans[i] = texel.New(n, n, texel.R32F)
		dispatch(t, texforge.Split{Channel: ch}, []*texel.Texture{src}, chans[i])
	}
	out := texel.New(n, n, texel.RGBA32F)
	dispatch(t, texforge.Merge{}, chans, out)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			want, got := src.At(x, y), out.At(x, y)
			for k := 0; k < 3; k++ {
				if math32.Abs(got[k]-want[k]) > 1e-6 {
					t.Fatalf("(%d,%d) split/merge %v, want %v", x, y, got, want)
				}
			}
		}
	}
}

func vec3(x, y, z float32) ms3.Vec {
	return ms3.Vec{X: x, Y: y, Z: z}
}
