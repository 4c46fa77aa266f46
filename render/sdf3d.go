package render

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/texel"
)

// ObjectType selects the displayed SDF primitive.
type ObjectType uint8

const (
	ObjectInfinitePlane ObjectType = iota
	ObjectFinitePlane
	ObjectCube
	ObjectSphere
	ObjectCylinder
)

// March loop bounds. Termination distance scales with the traveled
// distance t, keeping the surface tolerance proportional to the pixel
// footprint.
const (
	surfDist = 3e-4
	maxDist  = 24.0
	maxIters = 300
)

// noHit is the sentinel distance returned when a ray leaves the scene.
const noHit = float32(math32.MaxFloat32)

// Material holds the texture channels consumed by the renderer. Any
// slot may be nil; unbound slots fall back to fixed defaults (albedo
// 0.75, roughness 0.5, metallic 0, occlusion 1, no displacement, flat
// normal).
type Material struct {
	Albedo       *texel.Texture
	Roughness    *texel.Texture
	Normal       *texel.Texture
	Displacement *texel.Texture
	Metallic     *texel.Texture
	Occlusion    *texel.Texture
}

var matSampler = texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapRepeat}

func sampleGrayOr(t *texel.Texture, uv ms2.Vec, def float32) float32 {
	if t == nil {
		return def
	}
	return t.SampleGray(matSampler, uv.X, uv.Y)
}

// height samples the displacement channel. lod widens the filter
// footprint logarithmically with ray distance: above zero the sample
// becomes a 4-tap box of radius 2^lod texels, standing in for a mip
// lookup.
func (m *Material) height(uv ms2.Vec, lod float32) float32 {
	if m.Displacement == nil {
		return 0
	}
	if lod <= 0 {
		return m.Displacement.SampleGray(matSampler, uv.X, uv.Y)
	}
	r := math32.Exp2(lod) / float32(m.Displacement.Width())
	return (m.Displacement.SampleGray(matSampler, uv.X+r, uv.Y) +
		m.Displacement.SampleGray(matSampler, uv.X-r, uv.Y) +
		m.Displacement.SampleGray(matSampler, uv.X, uv.Y+r) +
		m.Displacement.SampleGray(matSampler, uv.X, uv.Y-r)) / 4
}

// scene couples a primitive with its material for SDF evaluation.
type scene struct {
	object   ObjectType
	mat      *Material
	disp     float32
	texScale float32
}

// mapUV returns the primitive-specific UV parametrization at p.
func (s *scene) mapUV(p ms3.Vec) ms2.Vec {
	var uv ms2.Vec
	switch s.object {
	case ObjectSphere:
		uv = ms2.Vec{
			X: math32.Atan2(p.Z, p.X)/(2*math32.Pi) + 0.5,
			Y: math32.Acos(clampf(p.Y/maxf(ms3.Norm(p), 1e-6), -1, 1)) / math32.Pi,
		}
	case ObjectCylinder:
		uv = ms2.Vec{
			X: math32.Atan2(p.Z, p.X)/(2*math32.Pi) + 0.5,
			Y: p.Y + 0.5,
		}
	default:
		uv = ms2.Vec{X: p.X, Y: p.Z}
	}
	return ms2.Scale(s.texScale, uv)
}

// triplanarHeight blends heightfield lookups along the three axes by
// the normal magnitude, used for the cube.
func (s *scene) triplanarHeight(p, n ms3.Vec, lod float32) float32 {
	w := ms3.AbsElem(n)
	sum := w.X + w.Y + w.Z
	if sum <= 0 {
		return 0
	}
	hx := s.mat.height(ms2.Scale(s.texScale, ms2.Vec{X: p.Z, Y: p.Y}), lod)
	hy := s.mat.height(ms2.Scale(s.texScale, ms2.Vec{X: p.X, Y: p.Z}), lod)
	hz := s.mat.height(ms2.Scale(s.texScale, ms2.Vec{X: p.X, Y: p.Y}), lod)
	return (hx*w.X + hy*w.Y + hz*w.Z) / sum
}

func sdBox(p, half ms3.Vec) float32 {
	q := ms3.Sub(ms3.AbsElem(p), half)
	outside := ms3.Norm(ms3.MaxElem(q, ms3.Vec{}))
	inside := minf(maxf(q.X, maxf(q.Y, q.Z)), 0)
	return outside + inside
}

func sdCylinder(p ms3.Vec, r, halfH float32) float32 {
	d := ms2.Vec{
		X: math32.Hypot(p.X, p.Z) - r,
		Y: absf(p.Y) - halfH,
	}
	outside := ms2.Norm(ms2.MaxElem(d, ms2.Vec{}))
	inside := minf(maxf(d.X, d.Y), 0)
	return outside + inside
}

// sdf evaluates the displaced field at p. The base primitive distance
// is offset by the sampled heightfield scaled by the displacement
// amount.
func (s *scene) sdf(p ms3.Vec, lod float32) float32 {
	var base float32
	var h float32
	switch s.object {
	case ObjectCube:
		base = sdBox(p, ms3.Vec{X: 1, Y: 1, Z: 1})
		h = s.triplanarHeight(p, p, lod)
	case ObjectSphere:
		base = ms3.Norm(p) - 1
		h = s.mat.height(s.mapUV(p), lod)
	case ObjectCylinder:
		base = sdCylinder(p, 1, 0.5)
		h = s.mat.height(s.mapUV(p), lod)
	case ObjectFinitePlane:
		base = sdBox(ms3.Sub(p, ms3.Vec{Y: -0.05}), ms3.Vec{X: 1, Y: 0.05, Z: 1})
		h = s.mat.height(s.mapUV(p), lod)
	default:
		base = p.Y
		h = s.mat.height(s.mapUV(p), lod)
	}
	return base - h*s.disp
}

// outerBound intersects the ray with an analytic bound of the displaced
// primitive, returning the parametric entry/exit, or ok=false when the
// ray cannot hit. Skipping to the bound is a correctness early-out:
// rays that miss return the environment without marching.
func (s *scene) outerBound(ro, rd ms3.Vec) (tNear, tFar float32, ok bool) {
	pad := s.disp + 0.05
	switch s.object {
	case ObjectSphere:
		return raySphere(ro, rd, 1+pad)
	case ObjectCylinder:
		return raySphere(ro, rd, math32.Sqrt2*0.5+1+pad)
	case ObjectCube:
		return rayBox(ro, rd, ms3.Vec{X: 1 + pad, Y: 1 + pad, Z: 1 + pad})
	case ObjectFinitePlane:
		return rayBox(ro, rd, ms3.Vec{X: 1 + pad, Y: 0.1 + pad, Z: 1 + pad})
	default:
		// slab between the base plane and the maximum displaced height
		return raySlabY(ro, rd, -0.05, pad)
	}
}

func raySphere(ro, rd ms3.Vec, r float32) (float32, float32, bool) {
	b := ms3.Dot(ro, rd)
	c := ms3.Dot(ro, ro) - r*r
	disc := b*b - c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math32.Sqrt(disc)
	t0, t1 := -b-sq, -b+sq
	if t1 < 0 {
		return 0, 0, false
	}
	return maxf(t0, 0), t1, true
}

func rayBox(ro, rd ms3.Vec, half ms3.Vec) (float32, float32, bool) {
	inv := ms3.Vec{X: 1 / rd.X, Y: 1 / rd.Y, Z: 1 / rd.Z}
	n := ms3.MulElem(inv, ro)
	k := ms3.MulElem(ms3.AbsElem(inv), half)
	t1 := ms3.Sub(ms3.Scale(-1, n), k)
	t2 := ms3.Add(ms3.Scale(-1, n), k)
	tN := maxf(maxf(t1.X, t1.Y), t1.Z)
	tF := minf(minf(t2.X, t2.Y), t2.Z)
	if tN > tF || tF < 0 {
		return 0, 0, false
	}
	return maxf(tN, 0), tF, true
}

func raySlabY(ro, rd ms3.Vec, yMin, yMax float32) (float32, float32, bool) {
	if absf(rd.Y) < 1e-6 {
		if ro.Y < yMin || ro.Y > yMax {
			return 0, 0, false
		}
		return 0, maxDist, true
	}
	t0 := (yMin - ro.Y) / rd.Y
	t1 := (yMax - ro.Y) / rd.Y
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	if t1 < 0 {
		return 0, 0, false
	}
	return maxf(t0, 0), minf(t1, maxDist), true
}

// march traces the ray against the displaced field. Returns the hit
// distance, or noHit, plus the number of field evaluations spent.
// Steps shrink when displacement is large to avoid overshooting thin
// relief, and a negative sample backs the ray off by a fixed epsilon
// before refinement.
func (s *scene) march(ro, rd ms3.Vec) (t float32, iters int) {
	tNear, tFar, ok := s.outerBound(ro, rd)
	if !ok {
		return noHit, 0
	}
	stepScale := 1 / maxf(1, 4*s.disp)
	t = tNear
	for iters = 0; iters < maxIters; iters++ {
		p := ms3.Add(ro, ms3.Scale(t, rd))
		lod := math32.Log(maxf(t*0.5, 1e-6))
		d := s.sdf(p, lod)
		if d < 0 {
			t -= 4 * surfDist
			d = s.sdf(ms3.Add(ro, ms3.Scale(t, rd)), lod)
		}
		if d < surfDist*maxf(t, 1) {
			return t, iters
		}
		t += d * stepScale
		if t > tFar+s.disp || t > maxDist {
			break
		}
	}
	return noHit, iters
}

// normal estimates the field gradient by central differences with a
// step matched to the larger of the texel footprint and the
// distance-scaled pixel footprint.
func (s *scene) normal(p ms3.Vec, t float32) ms3.Vec {
	eps := maxf(1e-3, t*2e-3)
	if s.mat.Displacement != nil {
		eps = maxf(eps, s.texScale/float32(s.mat.Displacement.Width()))
	}
	lod := math32.Log(maxf(t*0.5, 1e-6))
	dx := s.sdf(ms3.Add(p, ms3.Vec{X: eps}), lod) - s.sdf(ms3.Sub(p, ms3.Vec{X: eps}), lod)
	dy := s.sdf(ms3.Add(p, ms3.Vec{Y: eps}), lod) - s.sdf(ms3.Sub(p, ms3.Vec{Y: eps}), lod)
	dz := s.sdf(ms3.Add(p, ms3.Vec{Z: eps}), lod) - s.sdf(ms3.Sub(p, ms3.Vec{Z: eps}), lod)
	return ms3.Unit(ms3.Vec{X: dx, Y: dy, Z: dz})
}

// softShadow marches toward the light accumulating the penumbra term
// min(s, 0.5 + 0.5*d/(w*t)), smoothstep-sharpened at the end. w widens
// the shadow cone.
func (s *scene) softShadow(p, lightDir ms3.Vec, w float32) float32 {
	sh := float32(1)
	t := float32(2e-2)
	for i := 0; i < 64; i++ {
		q := ms3.Add(p, ms3.Scale(t, lightDir))
		lod := math32.Log(maxf(t*0.5, 1e-6)) + 1
		d := s.sdf(q, lod)
		sh = minf(sh, 0.5+0.5*d/(w*t))
		if sh < 0 {
			break
		}
		t += clampf(d, 5e-3, 0.5)
		if t > maxDist {
			break
		}
	}
	sh = clampf(sh, 0, 1)
	return sh * sh * (3 - 2*sh)
}

// coneOcclusion averages four short hemisphere marches, each cone
// direction drawn cosine-weighted from a stratified 2D sample.
func (s *scene) coneOcclusion(p, n ms3.Vec, xi ms2.Vec) float32 {
	t, b := tangentBasis(n)
	occ := float32(0)
	for i := 0; i < 4; i++ {
		phi := 2 * math32.Pi * (xi.X + float32(i)) / 4
		cosT := math32.Sqrt(1 - xi.Y*0.8)
		sinT := math32.Sqrt(1 - cosT*cosT)
		sp, cp := math32.Sincos(phi)
		dir := ms3.Add(
			ms3.Add(ms3.Scale(cp*sinT, t), ms3.Scale(sp*sinT, b)),
			ms3.Scale(cosT, n))
		co := float32(1)
		dist := float32(0.02)
		for j := 0; j < 8; j++ {
			q := ms3.Add(p, ms3.Scale(dist, dir))
			d := s.sdf(q, 0)
			co = minf(co, clampf(d/dist, 0, 1))
			dist += maxf(d, 0.02)
			if dist > 0.5 {
				break
			}
		}
		occ += co
	}
	return clampf(occ/4, 0, 1)
}

func tangentBasis(n ms3.Vec) (t, b ms3.Vec) {
	up := ms3.Vec{Z: 1}
	if absf(n.Z) > 0.999 {
		up = ms3.Vec{X: 1}
	}
	t = ms3.Unit(cross(up, n))
	b = cross(n, t)
	return t, b
}
