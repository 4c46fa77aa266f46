package graph_test

import (
	"testing"

	"github.com/texforge/texforge"
	"github.com/texforge/texforge/graph"
	"github.com/texforge/texforge/texel"
)

func TestLinearizeOrder(t *testing.T) {
	g := graph.New(64, 64)
	noise := g.AddNode("noise", texforge.DefaultPerlinNoise())
	thresh := g.AddNode("thresh", texforge.Threshold{Threshold: 0.5})
	blend := g.AddNode("blend", texforge.DefaultBlend())
	if err := g.Connect(noise, thresh, "in"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(noise, blend, "background"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(thresh, blend, "foreground"); err != nil {
		t.Fatal(err)
	}
	order, err := g.Linearize()
	if err != nil {
		t.Fatal(err)
	}
	pos := make(map[*graph.Node]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if pos[noise] > pos[thresh] || pos[thresh] > pos[blend] {
		t.Errorf("bad topological order: noise=%d thresh=%d blend=%d",
			pos[noise], pos[thresh], pos[blend])
	}
}

func TestCycleDetected(t *testing.T) {
	g := graph.New(64, 64)
	a := g.AddNode("a", texforge.DefaultBlend())
	b := g.AddNode("b", texforge.DefaultBlend())
	if err := g.Connect(a, b, "background"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(b, a, "background"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Linearize(); err != graph.ErrCycle {
		t.Fatalf("want ErrCycle, got %v", err)
	}
}

func TestConnectRejectsUnknownSocket(t *testing.T) {
	g := graph.New(64, 64)
	a := g.AddNode("a", texforge.DefaultPerlinNoise())
	b := g.AddNode("b", texforge.Threshold{Threshold: 0.5})
	if err := g.Connect(a, b, "nope"); err == nil {
		t.Error("expected error for unknown input socket")
	}
}

func TestConnectRejectsTypeMismatch(t *testing.T) {
	g := graph.New(64, 64)
	rgb := g.AddNode("rgb", texforge.Rgb{})
	thresh := g.AddNode("thresh", texforge.Threshold{Threshold: 0.5})
	// Color output into a Grayscale-only socket
	if err := g.Connect(rgb, thresh, "in"); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestRecomputeReleasesIntermediates(t *testing.T) {
	ctx := texel.NewContext(1)
	g := graph.New(64, 64)
	noise := g.AddNode("noise", texforge.DefaultPerlinNoise())
	thresh := g.AddNode("thresh", texforge.Threshold{Threshold: 0.5})
	if err := g.Connect(noise, thresh, "in"); err != nil {
		t.Fatal(err)
	}
	g.KeepOutput(thresh)
	if err := g.Recompute(ctx); err != nil {
		t.Fatal(err)
	}
	if noise.Output() != nil {
		t.Error("intermediate node retained its texture")
	}
	out := thresh.Output()
	if out == nil {
		t.Fatal("kept node has no output texture")
	}
	if out.Width() != 64 || out.Height() != 64 {
		t.Errorf("output dims %dx%d, want 64x64", out.Width(), out.Height())
	}
}

func TestRecomputeOptionalMaskUnbound(t *testing.T) {
	ctx := texel.NewContext(1)
	g := graph.New(32, 32)
	a := g.AddNode("a", texforge.DefaultPerlinNoise())
	b := g.AddNode("b", texforge.DefaultVoronoi())
	blend := g.AddNode("blend", texforge.DefaultBlend())
	if err := g.Connect(a, blend, "background"); err != nil {
		t.Fatal(err)
	}
	if err := g.Connect(b, blend, "foreground"); err != nil {
		t.Fatal(err)
	}
	g.KeepOutput(blend)
	if err := g.Recompute(ctx); err != nil {
		t.Fatal(err)
	}
	if blend.Output() == nil {
		t.Fatal("no output")
	}
}

func TestRecomputeRequiredUnbound(t *testing.T) {
	ctx := texel.NewContext(1)
	g := graph.New(32, 32)
	blend := g.AddNode("blend", texforge.DefaultBlend())
	g.KeepOutput(blend)
	if err := g.Recompute(ctx); err == nil {
		t.Error("expected error for unbound required input")
	}
}

func TestDisconnect(t *testing.T) {
	g := graph.New(32, 32)
	a := g.AddNode("a", texforge.DefaultPerlinNoise())
	b := g.AddNode("b", texforge.Threshold{Threshold: 0.5})
	if err := g.Connect(a, b, "in"); err != nil {
		t.Fatal(err)
	}
	if err := g.Disconnect(b, "in"); err != nil {
		t.Fatal(err)
	}
	ctx := texel.NewContext(1)
	g.KeepOutput(b)
	if err := g.Recompute(ctx); err == nil {
		t.Error("expected recompute error after disconnecting required input")
	}
}

func TestRecomputeDeterministic(t *testing.T) {
	run := func() []float32 {
		ctx := texel.NewContext(2)
		g := graph.New(32, 32)
		v := g.AddNode("v", texforge.DefaultVoronoi())
		r := g.AddNode("r", texforge.Range{FromMax: 1, ToMax: 1, Steps: 4})
		if err := g.Connect(v, r, "input"); err != nil {
			t.Fatal(err)
		}
		g.KeepOutput(r)
		if err := g.Recompute(ctx); err != nil {
			t.Fatal(err)
		}
		out := r.Output()
		px := make([]float32, 0, 32*32)
		for y := 0; y < 32; y++ {
			for x := 0; x < 32; x++ {
				px = append(px, out.At(x, y)[0])
			}
		}
		return px
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("recompute not deterministic at pixel %d: %v vs %v", i, a[i], b[i])
		}
	}
}
