package ibl

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge"
	"github.com/texforge/texforge/texel"
)

func TestFaceDirectionRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for face := 0; face < 6; face++ {
		for i := 0; i < 100; i++ {
			// stay off face edges where the inverse is ambiguous
			u := 0.05 + 0.9*rng.Float32()
			v := 0.05 + 0.9*rng.Float32()
			d := FaceDirection(face, u, v)
			gotFace, gu, gv := faceUV(d)
			if gotFace != face {
				t.Fatalf("face %d uv (%v,%v): projected onto face %d", face, u, v, gotFace)
			}
			if math32.Abs(gu-u) > 1e-4 || math32.Abs(gv-v) > 1e-4 {
				t.Fatalf("face %d: uv (%v,%v) round-tripped to (%v,%v)", face, u, v, gu, gv)
			}
		}
	}
}

func TestFaceDirectionUnit(t *testing.T) {
	for face := 0; face < 6; face++ {
		d := FaceDirection(face, 0.25, 0.75)
		if math32.Abs(ms3.Norm(d)-1) > 1e-5 {
			t.Errorf("face %d direction not unit: %v", face, d)
		}
	}
}

func TestFaceDirectionCenters(t *testing.T) {
	want := [6]ms3.Vec{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	for face := 0; face < 6; face++ {
		d := FaceDirection(face, 0.5, 0.5)
		if ms3.Norm(ms3.Sub(d, want[face])) > 1e-6 {
			t.Errorf("face %d center direction = %v, want %v", face, d, want[face])
		}
	}
}

func TestCubemapConstantSample(t *testing.T) {
	c, err := NewCubemap(8, 3)
	if err != nil {
		t.Fatal(err)
	}
	for m := 0; m < c.MipCount(); m++ {
		for f := 0; f < 6; f++ {
			c.Face(m, f).Fill(texel.RGBA{0.25, 0.5, 0.75, 1})
		}
	}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		dir := ms3.Unit(ms3.Vec{
			X: rng.Float32()*2 - 1,
			Y: rng.Float32()*2 - 1,
			Z: rng.Float32()*2 - 1,
		})
		got := c.Sample(dir, rng.Float32()*2)
		want := ms3.Vec{X: 0.25, Y: 0.5, Z: 0.75}
		if ms3.Norm(ms3.Sub(got, want)) > 1e-5 {
			t.Fatalf("constant cubemap sampled %v along %v", got, dir)
		}
	}
}

func TestFromEquirectConstant(t *testing.T) {
	ctx := texel.NewContext(2)
	eq := texel.New(16, 8, texel.RGBA32F)
	eq.Fill(texel.RGBA{2, 3, 4, 1})
	c, err := FromEquirect(ctx, eq, 8)
	if err != nil {
		t.Fatal(err)
	}
	got := c.Sample(ms3.Vec{X: 0.3, Y: 0.8, Z: -0.5}, 1.5)
	want := ms3.Vec{X: 2, Y: 3, Z: 4}
	if ms3.Norm(ms3.Sub(got, want)) > 1e-4 {
		t.Errorf("constant equirect converted to %v, want %v", got, want)
	}
}

func TestIrradiancePreservesConstantRadiance(t *testing.T) {
	// cosine-convolving a constant environment returns the same constant
	ctx := texel.NewContext(2)
	env, err := NewCubemap(16, MipLevels)
	if err != nil {
		t.Fatal(err)
	}
	for m := 0; m < env.MipCount(); m++ {
		for f := 0; f < 6; f++ {
			env.Face(m, f).Fill(texel.RGBA{0.8, 0.8, 0.8, 1})
		}
	}
	irr, err := Irradiance(ctx, env, 4)
	if err != nil {
		t.Fatal(err)
	}
	got := irr.Sample(ms3.Vec{Y: 1}, 0)
	if math32.Abs(got.X-0.8) > 0.05 {
		t.Errorf("irradiance of constant environment = %v, want ~0.8", got)
	}
}

func TestBRDFLutBounds(t *testing.T) {
	ctx := texel.NewContext(2)
	lut := BRDFLut(ctx)
	if lut.Width() != BRDFLutSize || lut.Height() != BRDFLutSize {
		t.Fatalf("lut is %dx%d, want %dx%d", lut.Width(), lut.Height(), BRDFLutSize, BRDFLutSize)
	}
	for y := 0; y < lut.Height(); y += 7 {
		for x := 0; x < lut.Width(); x += 7 {
			px := lut.At(x, y)
			scale, bias := px[0], px[1]
			if scale < 0 || scale > 1 || bias < 0 || bias > 1 {
				t.Fatalf("lut(%d,%d) out of range: scale %v bias %v", x, y, scale, bias)
			}
			if scale+bias > 1+1e-3 {
				t.Fatalf("lut(%d,%d): scale+bias = %v exceeds energy bound", x, y, scale+bias)
			}
		}
	}
}

func TestSmithIBLRemap(t *testing.T) {
	// k = roughness^2/2; at roughness 0.5 and nDotV = nDotL = 0.5 each
	// factor is 0.5/(0.5*(1-0.125)+0.125) = 8/9.
	got := geometrySmithIBL(0.5, 0.5, 0.5)
	want := float32(8.0/9.0) * float32(8.0/9.0)
	if math32.Abs(got-want) > 1e-5 {
		t.Errorf("smith IBL term = %v, want %v", got, want)
	}
	// shadowing must strengthen with roughness
	if geometrySmithIBL(0.5, 0.5, 0.9) >= geometrySmithIBL(0.5, 0.5, 0.2) {
		t.Error("smith term not decreasing in roughness")
	}
}

func TestImportanceGGXAlignsAtZeroRoughness(t *testing.T) {
	n := ms3.Unit(ms3.Vec{X: 0.3, Y: 0.9, Z: 0.2})
	for i := uint32(0); i < 16; i++ {
		xi := texforge.Hammersley(i, 16)
		h := importanceGGX(xi, n, 0)
		if ms3.Dot(h, n) < 1-1e-4 {
			t.Fatalf("zero-roughness half vector %v strays from normal %v", h, n)
		}
	}
}
