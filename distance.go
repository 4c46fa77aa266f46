package texforge

import (
	"github.com/chewxy/math32"
	"github.com/texforge/texforge/texel"
)

// DistanceBorderMode controls how the transform treats pixels beyond
// the image border.
type DistanceBorderMode uint8

const (
	// DistanceBorderClosed treats the border as belonging to the source
	// set, clamping distances near the image edges.
	DistanceBorderClosed DistanceBorderMode = iota
	// DistanceBorderOpen takes source membership from the thresholded
	// input alone, so distances grow unbounded near empty edges.
	DistanceBorderOpen
)

// DistanceMetric selects the metric of the distance transform. It is
// deliberately narrower than [CellMetric]: the separable two-phase scan
// has no closed separator formula for Minkowski distances.
type DistanceMetric uint8

const (
	DistanceEuclidean DistanceMetric = iota
	DistanceManhattan
	DistanceChebyshev
)

func (m DistanceMetric) String() string {
	switch m {
	case DistanceEuclidean:
		return "euclidean"
	case DistanceManhattan:
		return "manhattan"
	case DistanceChebyshev:
		return "chebyshev"
	}
	return "unknown"
}

// Distance computes, per pixel, the distance to the nearest pixel of a
// thresholded binary set derived from the input. The transform runs in
// two separable phases: a column phase producing per-column nearest
// source-row distances, then a row phase combining them into true 2D
// distances with a monotonic lower-envelope scan (Felzenszwalb and
// Huttenlocher for the Euclidean metric, Meijster's inequality tests
// for Manhattan and Chebyshev).
//
// Output is the pixel distance divided by the image width and scaled by
// 2^Extent. Expand flips set membership, measuring distance from inside
// the set to its complement instead.
type Distance struct {
	Metric     DistanceMetric
	BorderMode DistanceBorderMode
	Clamp      bool
	Expand     bool
	Threshold  float32
	Extent     float32
}

func DefaultDistance() Distance {
	return Distance{
		Metric:     DistanceEuclidean,
		BorderMode: DistanceBorderClosed,
		Threshold:  0.5,
		Extent:     3,
	}
}

func (op Distance) Name() string { return "distance" }
func (op Distance) Inputs() []texel.SocketSpec {
	return oneInput("in", texel.Grayscale)
}
func (op Distance) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Grayscale}
}

// rowDist is the 1D distance from column x to a source at column i with
// per-column vertical distance g, under the configured metric.
func (op Distance) rowDist(x, i int, g float32) float32 {
	dx := absf(float32(x - i))
	switch op.Metric {
	case DistanceManhattan:
		return dx + g
	case DistanceChebyshev:
		return maxf(dx, g)
	default:
		return math32.Sqrt(dx*dx + g*g)
	}
}

// sep returns the first column at which candidate u beats candidate i
// in the lower envelope. A result >= width means u never wins.
func (op Distance) sep(i, u int, gi, gu float32) int {
	fi, fu := float32(i), float32(u)
	switch op.Metric {
	case DistanceManhattan:
		if gu >= gi+fu-fi {
			return 1 << 30 // u never enters the envelope
		}
		if gi > gu+fu-fi {
			return i
		}
		return int(math32.Floor((gu-gi+fu+fi)/2)) + 1
	case DistanceChebyshev:
		var s float32
		if gi <= gu {
			s = maxf(fi+gu, (fi+fu)/2)
		} else {
			s = minf(fu-gi, (fi+fu)/2)
		}
		return int(math32.Floor(s)) + 1
	default:
		s := (fu*fu - fi*fi + gu*gu - gi*gi) / (2 * (fu - fi))
		return int(math32.Floor(s)) + 1
	}
}

func (op Distance) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	src := in[0]
	w, h := out.Width(), out.Height()
	nearest := texel.Sampler{Filter: texel.FilterNearest, Wrap: texel.WrapClamp}
	inSet := func(x, y int) bool {
		u, v := out.UV(x, y)
		set := src.SampleGray(nearest, u, v) >= op.Threshold
		if op.Expand {
			return !set
		}
		return set
	}
	closed := op.BorderMode == DistanceBorderClosed

	// Phase 1: per column, the row distance to the nearest source pixel,
	// found by a down scan and an up scan. Closed borders place virtual
	// sources one row beyond the top and bottom edges. far is a finite
	// "no source" sentinel kept small enough to square without overflow.
	far := float32(w + h)
	g := ctx.Pool.AcquireTexture(w, h, texel.R32F)
	defer ctx.Pool.ReleaseTexture(g)
	ctx.ParallelRange(w, func(start, end int) {
		for x := start; x < end; x++ {
			d := far
			if closed {
				d = 0
			}
			for y := 0; y < h; y++ {
				d = minf(d+1, far)
				if inSet(x, y) {
					d = 0
				}
				g.SetGray(x, y, d)
			}
			d = far
			if closed {
				d = 0
			}
			for y := h - 1; y >= 0; y-- {
				d = minf(d+1, far)
				if inSet(x, y) {
					d = 0
				}
				g.SetGray(x, y, minf(g.Gray(x, y), d))
			}
		}
	})

	// Phase 2: per row, the lower-envelope scan over column candidates.
	// s holds candidate columns, t the column where each segment of the
	// envelope starts; s[0]=t[0]=0 seeds the scan. Dominance tests carry
	// an epsilon so floating point ties pop deterministically.
	shards := ctx.Shards(h)
	sbuf := ctx.Pool.Int.Acquire(shards * w)
	tbuf := ctx.Pool.Int.Acquire(shards * w)
	scale := math32.Exp2(op.Extent) / float32(w)
	ctx.ParallelShards(h, func(shard, start, end int) {
		s := sbuf[shard*w : (shard+1)*w]
		t := tbuf[shard*w : (shard+1)*w]
		for y := start; y < end; y++ {
			q := 0
			s[0], t[0] = 0, 0
			for u := 1; u < w; u++ {
				gu := g.Gray(u, y)
				for q >= 0 && op.rowDist(int(t[q]), int(s[q]), g.Gray(int(s[q]), y)) > op.rowDist(int(t[q]), u, gu)+epstol {
					q--
				}
				if q < 0 {
					q = 0
					s[0] = int32(u)
					t[0] = 0
					continue
				}
				pos := op.sep(int(s[q]), u, g.Gray(int(s[q]), y), gu)
				if pos < 0 {
					pos = 0
				}
				if pos < w {
					q++
					s[q] = int32(u)
					t[q] = int32(pos)
				}
			}
			for x := w - 1; x >= 0; x-- {
				d := op.rowDist(x, int(s[q]), g.Gray(int(s[q]), y))
				if closed {
					d = minf(d, minf(float32(x+1), float32(w-x)))
				}
				v := d * scale
				if op.Clamp {
					v = clampf(v, 0, 1)
				}
				out.SetGray(x, y, v)
				if q > 0 && x == int(t[q]) {
					q--
				}
			}
		}
	})
	err := ctx.Pool.Int.Release(sbuf)
	if err2 := ctx.Pool.Int.Release(tbuf); err == nil {
		err = err2
	}
	return err
}
