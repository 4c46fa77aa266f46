// Package render contains the scene renderers: a ray-marching 3D
// renderer shading heightfield-displaced primitives with Cook-Torrance
// PBR or matcaps, and a flat 2D channel preview. Both consume textures
// produced by the operator graph as material channels.
package render

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge"
)

// Camera orbits a target point on a sphere parametrized by spherical
// angles and shoots thin-lens rays. ApertureSize zero disables
// depth-of-field; a positive size draws lens points from a disk, or
// from a regular polygon when ApertureBlades is 3 or more and
// aperture shape matters.
type Camera struct {
	Center           ms3.Vec
	Phi              float32
	Theta            float32
	Radius           float32
	FocalLength      float32
	FocalDistance    float32
	ApertureSize     float32
	ApertureBlades   int
	ApertureRotation float32
}

func DefaultCamera() Camera {
	return Camera{
		Phi:            1,
		Theta:          1,
		Radius:         6,
		FocalLength:    1,
		FocalDistance:  5,
		ApertureBlades: 6,
	}
}

// Position returns the camera location in world space.
func (c *Camera) Position() ms3.Vec {
	sp, cp := math32.Sincos(c.Phi)
	st, ct := math32.Sincos(c.Theta)
	return ms3.Add(c.Center, ms3.Scale(c.Radius, ms3.Vec{X: st * cp, Y: ct, Z: st * sp}))
}

// Rotate adds deltas to the orbit angles, keeping theta off the poles
// so the view basis stays well defined.
func (c *Camera) Rotate(dTheta, dPhi float32) {
	c.Phi += dPhi
	c.Theta = clampf(c.Theta+dTheta, 0.05, math32.Pi-0.05)
}

// Pan moves the orbit center in the ground plane given screen-space
// deltas.
func (c *Camera) Pan(dx, dy float32) {
	sp, cp := math32.Sincos(c.Phi)
	c.Center.X += cp*dy + sp*dx
	c.Center.Z += sp*dy - cp*dx
}

// Zoom changes the orbit radius linearly, clamped to stay in front of
// the target.
func (c *Camera) Zoom(dz float32) {
	c.Radius = maxf(c.Radius+dz, 0.1)
}

// basis returns the right/up/forward frame looking at Center.
func (c *Camera) basis() (right, up, forward ms3.Vec) {
	forward = ms3.Unit(ms3.Sub(c.Center, c.Position()))
	right = ms3.Unit(cross(forward, ms3.Vec{Y: 1}))
	up = cross(right, forward)
	return right, up, forward
}

// Ray builds the primary ray through normalized device coordinate ndc
// (centered, y up, aspect-corrected by the caller). lens is a
// stratified point in the unit square driving the thin-lens model: the
// ray origin shifts on the aperture while the direction re-aims at the
// focal plane point pf = crd * FocalDistance / crd.z.
func (c *Camera) Ray(ndc, lens ms2.Vec) (ro, rd ms3.Vec) {
	right, up, forward := c.basis()
	ro = c.Position()
	crd := ms3.Vec{X: ndc.X, Y: ndc.Y, Z: c.FocalLength}
	if c.ApertureSize <= 0 {
		rd = ms3.Unit(ms3.Add(
			ms3.Add(ms3.Scale(crd.X, right), ms3.Scale(crd.Y, up)),
			ms3.Scale(crd.Z, forward)))
		return ro, rd
	}
	var o ms2.Vec
	if c.ApertureBlades >= 3 {
		o = texforge.NGonSample(lens, c.ApertureBlades, c.ApertureRotation)
	} else {
		o = texforge.DiskSample(lens)
	}
	o = ms2.Scale(c.ApertureSize, o)
	pf := ms3.Scale(c.FocalDistance/crd.Z, crd)
	local := ms3.Unit(ms3.Vec{X: pf.X - o.X, Y: pf.Y - o.Y, Z: pf.Z})
	ro = ms3.Add(ro, ms3.Add(ms3.Scale(o.X, right), ms3.Scale(o.Y, up)))
	rd = ms3.Unit(ms3.Add(
		ms3.Add(ms3.Scale(local.X, right), ms3.Scale(local.Y, up)),
		ms3.Scale(local.Z, forward)))
	return ro, rd
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func absf(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}

func mixf(a, b, t float32) float32 { return a + (b-a)*t }
