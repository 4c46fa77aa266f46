package render

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/ibl"
	"github.com/texforge/texforge/texel"
)

func flatScene(obj ObjectType) *scene {
	return &scene{object: obj, mat: &Material{}, disp: 0, texScale: 1}
}

func TestMarchMissSkipsLoop(t *testing.T) {
	sc := flatScene(ObjectSphere)
	// ray starting beyond the sphere and leaving the scene
	tHit, iters := sc.march(ms3.Vec{Z: 5}, ms3.Vec{Z: 1})
	if tHit != noHit {
		t.Errorf("miss returned t=%v, want noHit", tHit)
	}
	if iters != 0 {
		t.Errorf("miss marched %d iterations, want 0 via the bound test", iters)
	}
}

func TestMarchHitsSphere(t *testing.T) {
	sc := flatScene(ObjectSphere)
	tHit, _ := sc.march(ms3.Vec{Z: 5}, ms3.Vec{Z: -1})
	if tHit == noHit {
		t.Fatal("head-on ray missed the unit sphere")
	}
	if math32.Abs(tHit-4) > 5e-3 {
		t.Errorf("sphere hit at t=%v, want 4", tHit)
	}
}

func TestMarchHitsPlane(t *testing.T) {
	sc := flatScene(ObjectInfinitePlane)
	tHit, _ := sc.march(ms3.Vec{Y: 2}, ms3.Vec{Y: -1})
	if tHit == noHit {
		t.Fatal("downward ray missed the ground plane")
	}
	if math32.Abs(tHit-2) > 5e-3 {
		t.Errorf("plane hit at t=%v, want 2", tHit)
	}
}

func TestNormalOnSphere(t *testing.T) {
	sc := flatScene(ObjectSphere)
	n := sc.normal(ms3.Vec{Z: 1}, 4)
	if ms3.Norm(ms3.Sub(n, ms3.Vec{Z: 1})) > 1e-2 {
		t.Errorf("sphere normal at +Z pole = %v", n)
	}
}

func TestSoftShadowOpenSky(t *testing.T) {
	sc := flatScene(ObjectInfinitePlane)
	s := sc.softShadow(ms3.Vec{X: 0.3, Z: -0.2}, ms3.Vec{Y: 1}, 0.1)
	if s < 0.99 {
		t.Errorf("unoccluded shadow factor = %v, want ~1", s)
	}
}

func TestSoftShadowBlocked(t *testing.T) {
	// light behind the sphere as seen from a point on the -Z side
	sc := flatScene(ObjectSphere)
	s := sc.softShadow(ms3.Vec{Z: -3}, ms3.Vec{Z: 1}, 0.1)
	if s > 0.01 {
		t.Errorf("fully blocked shadow factor = %v, want ~0", s)
	}
}

func TestCameraRaysConvergeAtFocalPlane(t *testing.T) {
	cam := DefaultCamera()
	ndc := ms2.Vec{X: 0.12, Y: -0.3}

	// the pinhole ray locates the in-focus world point
	pin := cam
	pin.ApertureSize = 0
	ro0, rd0 := pin.Ray(ndc, ms2.Vec{})
	crdZ := pin.FocalLength
	crdLen := math32.Sqrt(ndc.X*ndc.X + ndc.Y*ndc.Y + crdZ*crdZ)
	focus := ms3.Add(ro0, ms3.Scale(crdLen*pin.FocalDistance/crdZ, rd0))

	cam.ApertureSize = 0.2
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		lens := ms2.Vec{X: rng.Float32(), Y: rng.Float32()}
		ro, rd := cam.Ray(ndc, lens)
		// distance from focus to the ray line
		d := ms3.Norm(cross(ms3.Sub(focus, ro), rd))
		if d > 1e-4 {
			t.Fatalf("lens sample %v: ray misses focal point by %v", lens, d)
		}
	}
}

func TestCameraRotateAvoidsPoles(t *testing.T) {
	cam := DefaultCamera()
	cam.Rotate(-10, 0)
	if cam.Theta < 0.05 {
		t.Errorf("theta %v collapsed onto the pole", cam.Theta)
	}
	cam.Rotate(10, 0)
	if cam.Theta > math32.Pi-0.05 {
		t.Errorf("theta %v collapsed onto the opposite pole", cam.Theta)
	}
}

func TestToneMapInUnitRange(t *testing.T) {
	modes := []ToneMap{ToneMapReinhard, ToneMapReinhardJodie, ToneMapHableFilmic, ToneMapACES}
	inputs := []ms3.Vec{
		{}, {X: 0.18, Y: 0.18, Z: 0.18}, {X: 1, Y: 1, Z: 1},
		{X: 8, Y: 2, Z: 0.5}, {X: 100, Y: 100, Z: 100},
	}
	for _, tm := range modes {
		for _, in := range inputs {
			out := tm.Apply(in)
			for _, ch := range [3]float32{out.X, out.Y, out.Z} {
				if ch < 0 || ch > 1+1e-5 {
					t.Fatalf("mode %d maps %v to %v, outside [0,1]", tm, in, out)
				}
			}
		}
	}
}

func TestToneMapMonotonic(t *testing.T) {
	modes := []ToneMap{ToneMapReinhard, ToneMapHableFilmic, ToneMapACES}
	for _, tm := range modes {
		prev := float32(-1)
		for l := float32(0); l < 10; l += 0.25 {
			v := tm.Apply(ms3.Vec{X: l, Y: l, Z: l}).X
			if v < prev-1e-6 {
				t.Fatalf("mode %d not monotonic at luminance %v", tm, l)
			}
			prev = v
		}
	}
}

func testEnvironment(t *testing.T, ctx *texel.Context) *Environment {
	t.Helper()
	eq := texel.New(8, 4, texel.RGBA32F)
	eq.Fill(texel.RGBA{0.6, 0.6, 0.6, 1})
	env, err := ibl.FromEquirect(ctx, eq, 8)
	if err != nil {
		t.Fatal(err)
	}
	irr, err := ibl.Irradiance(ctx, env, 4)
	if err != nil {
		t.Fatal(err)
	}
	spec, err := ibl.PrefilterSpecular(ctx, env, 8)
	if err != nil {
		t.Fatal(err)
	}
	return &Environment{Irradiance: irr, Specular: spec, BRDF: ibl.BRDFLut(ctx)}
}

func TestRenderSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("prefilters an environment")
	}
	ctx := texel.NewContext(2)
	env := testEnvironment(t, ctx)
	r := NewRenderer3D(16, 16)
	r.Object = ObjectSphere
	out := texel.New(16, 16, texel.RGBA32F)
	if err := r.Render(ctx, env, &Material{}, out, 2); err != nil {
		t.Fatal(err)
	}
	if r.Samples() != 2 {
		t.Errorf("accumulated %d samples, want 2", r.Samples())
	}
	var dark, bad int
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			px := out.At(x, y)
			for c := 0; c < 3; c++ {
				if math32.IsNaN(px[c]) || px[c] < 0 {
					bad++
				}
			}
			if px[0] == 0 && px[1] == 0 && px[2] == 0 {
				dark++
			}
		}
	}
	if bad > 0 {
		t.Errorf("%d NaN or negative channel values", bad)
	}
	if dark == 16*16 {
		t.Error("entire frame is black under a lit environment")
	}
}

func TestRenderer2DFallbackGray(t *testing.T) {
	ctx := texel.NewContext(1)
	r := NewRenderer2D()
	out := texel.New(8, 8, texel.RGBA32F)
	if err := r.Render(ctx, &Material{}, out); err != nil {
		t.Fatal(err)
	}
	px := out.At(4, 4)
	if math32.Abs(px[0]-0.5) > 1e-5 {
		t.Errorf("unbound channel rendered %v, want mid-gray", px)
	}
}
