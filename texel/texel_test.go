package texel_test

import (
	"testing"

	"github.com/texforge/texforge/texel"
)

func TestTextureUVCentered(t *testing.T) {
	tex := texel.New(4, 4, texel.R32F)
	u, v := tex.UV(0, 0)
	if u != 0.125 || v != 0.125 {
		t.Errorf("UV(0,0) = %v,%v, want texel centers (0.125,0.125)", u, v)
	}
	u, v = tex.UV(3, 3)
	if u != 0.875 || v != 0.875 {
		t.Errorf("UV(3,3) = %v,%v, want 0.875,0.875", u, v)
	}
}

func TestSampleNearestWrap(t *testing.T) {
	tex := texel.New(2, 2, texel.R32F)
	tex.SetGray(0, 0, 1)
	s := texel.Sampler{Filter: texel.FilterNearest, Wrap: texel.WrapRepeat}
	// one full period away must hit the same texel
	if got := tex.SampleGray(s, 0.25, 0.25); got != 1 {
		t.Errorf("sample at texel center = %v, want 1", got)
	}
	if got := tex.SampleGray(s, 1.25, -0.75); got != 1 {
		t.Errorf("wrapped sample = %v, want 1", got)
	}
}

func TestSampleBorder(t *testing.T) {
	tex := texel.New(2, 2, texel.RGBA32F)
	tex.Fill(texel.RGBA{1, 1, 1, 1})
	s := texel.Sampler{Filter: texel.FilterNearest, Wrap: texel.WrapBorder, Border: texel.RGBA{0, 0, 0, 0}}
	if got := tex.Sample(s, 2, 0.5); got[0] != 0 {
		t.Errorf("outside border sample = %v, want border color", got)
	}
	if got := tex.Sample(s, 0.5, 0.5); got[0] != 1 {
		t.Errorf("inside sample = %v, want 1", got)
	}
}

func TestBilinearInterpolates(t *testing.T) {
	tex := texel.New(2, 1, texel.R32F)
	tex.SetGray(1, 0, 1)
	s := texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapClamp}
	got := tex.SampleGray(s, 0.5, 0.5)
	if got < 0.49 || got > 0.51 {
		t.Errorf("midpoint sample = %v, want 0.5", got)
	}
}

func TestPoolStackDiscipline(t *testing.T) {
	var p texel.Pool
	a := p.Float.Acquire(16)
	b := p.Int.Acquire(8)
	if err := p.AssertAllReleased(); err == nil {
		t.Error("expected leak report while buffers held")
	}
	if err := p.Float.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := p.Int.Release(b); err != nil {
		t.Fatal(err)
	}
	if err := p.AssertAllReleased(); err != nil {
		t.Errorf("unexpected leak after release: %v", err)
	}
	if err := p.Float.Release(a); err == nil {
		t.Error("double release not detected")
	}
}

func TestPoolReusesTextures(t *testing.T) {
	var p texel.Pool
	a := p.AcquireTexture(8, 8, texel.R32F)
	a.SetGray(3, 3, 5)
	p.ReleaseTexture(a)
	b := p.AcquireTexture(8, 8, texel.R32F)
	if a != b {
		t.Error("pool did not reuse released texture of matching shape")
	}
	if b.Gray(3, 3) != 0 {
		t.Error("reused texture not zeroed")
	}
}

type constOp struct{ aliased bool }

func (constOp) Name() string { return "const" }
func (constOp) Inputs() []texel.SocketSpec {
	return []texel.SocketSpec{
		{Name: "in", Type: texel.Grayscale},
		{Name: "mask", Type: texel.Grayscale, Optional: true},
	}
}
func (constOp) Output() texel.SocketSpec {
	return texel.SocketSpec{Name: "out", Type: texel.Grayscale}
}
func (constOp) Dispatch(ctx *texel.Context, in []*texel.Texture, out *texel.Texture) error {
	out.Fill(texel.RGBA{1, 0, 0, 0})
	return nil
}

func TestValidateBindings(t *testing.T) {
	op := constOp{}
	src := texel.New(4, 4, texel.R32F)
	dst := texel.New(4, 4, texel.R32F)
	if err := texel.ValidateBindings(op, []*texel.Texture{src, nil}, dst); err != nil {
		t.Errorf("optional nil input rejected: %v", err)
	}
	if err := texel.ValidateBindings(op, []*texel.Texture{nil, nil}, dst); err == nil {
		t.Error("required nil input accepted")
	}
	if err := texel.ValidateBindings(op, []*texel.Texture{src, nil}, src); err == nil {
		t.Error("in-place aliasing accepted")
	}
	if err := texel.ValidateBindings(op, []*texel.Texture{src}, dst); err == nil {
		t.Error("wrong input count accepted")
	}
}

func TestParallelRangeCoversAll(t *testing.T) {
	ctx := texel.NewContext(4)
	const n = 1037
	hit := make([]int32, n)
	ctx.ParallelRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			hit[i]++
		}
	})
	for i, h := range hit {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}
}

func TestParallelShardsDisjointScratch(t *testing.T) {
	ctx := texel.NewContext(3)
	const n = 10
	shards := ctx.Shards(n)
	if shards < 1 {
		t.Fatalf("Shards(%d) = %d", n, shards)
	}
	seen := make([]int32, shards)
	ctx.ParallelShards(n, func(shard, start, end int) {
		if shard < 0 || shard >= shards {
			t.Errorf("shard index %d out of range [0,%d)", shard, shards)
		}
		seen[shard] = int32(end - start)
	})
	total := 0
	for _, s := range seen {
		total += int(s)
	}
	if total != n {
		t.Errorf("shards covered %d items, want %d", total, n)
	}
}
