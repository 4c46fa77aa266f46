// Package ibl prepares image-based lighting data: it converts
// equirectangular HDR environment images into cubemaps, convolves a
// diffuse irradiance map, prefilters a specular mip chain with GGX
// importance sampling and integrates the split-sum BRDF lookup table.
package ibl

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge/texel"
)

// MipLevels is the depth of the specular prefilter chain. Roughness at
// mip m is m/MipLevels.
const MipLevels = 6

// Cubemap face indices. The direction convention follows FaceDirection
// and must match everywhere the map is sampled, or seams appear at face
// boundaries.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// Cubemap is a six-faced environment texture with an optional mip
// chain. Face textures are square RGBA32F.
type Cubemap struct {
	size int
	mips [][6]*texel.Texture
}

// NewCubemap allocates a cubemap with the given base face size and mip
// count. Each successive mip halves the face size, clamped at 1 texel.
func NewCubemap(size, mipLevels int) (*Cubemap, error) {
	if size < 1 || mipLevels < 1 {
		return nil, fmt.Errorf("ibl: invalid cubemap shape %dx%d mips %d", size, size, mipLevels)
	}
	c := &Cubemap{size: size, mips: make([][6]*texel.Texture, mipLevels)}
	for m := range c.mips {
		s := size >> m
		if s < 1 {
			s = 1
		}
		for f := 0; f < 6; f++ {
			c.mips[m][f] = texel.New(s, s, texel.RGBA32F)
		}
	}
	return c, nil
}

// Size returns the base face size in texels.
func (c *Cubemap) Size() int { return c.size }

// MipCount returns the number of mip levels.
func (c *Cubemap) MipCount() int { return len(c.mips) }

// Face returns the texture of one face at one mip level.
func (c *Cubemap) Face(mip, face int) *texel.Texture { return c.mips[mip][face] }

// FaceDirection reconstructs the world direction of a texel at (u,v)
// in [0,1] on the given face. The mapping follows the standard
// graphics-API cubemap convention with +Y up.
func FaceDirection(face int, u, v float32) ms3.Vec {
	a := 2*u - 1
	b := 2*v - 1
	var d ms3.Vec
	switch face {
	case FacePosX:
		d = ms3.Vec{X: 1, Y: -b, Z: -a}
	case FaceNegX:
		d = ms3.Vec{X: -1, Y: -b, Z: a}
	case FacePosY:
		d = ms3.Vec{X: a, Y: 1, Z: b}
	case FaceNegY:
		d = ms3.Vec{X: a, Y: -1, Z: -b}
	case FacePosZ:
		d = ms3.Vec{X: a, Y: -b, Z: 1}
	default:
		d = ms3.Vec{X: -a, Y: -b, Z: -1}
	}
	return ms3.Unit(d)
}

// faceUV inverts FaceDirection: it projects a direction onto the face
// with the dominant axis, returning the face index and its (u,v).
func faceUV(dir ms3.Vec) (face int, u, v float32) {
	ax, ay, az := math32.Abs(dir.X), math32.Abs(dir.Y), math32.Abs(dir.Z)
	var a, b, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if dir.X > 0 {
			face, a, b = FacePosX, -dir.Z, -dir.Y
		} else {
			face, a, b = FaceNegX, dir.Z, -dir.Y
		}
	case ay >= az:
		ma = ay
		if dir.Y > 0 {
			face, a, b = FacePosY, dir.X, dir.Z
		} else {
			face, a, b = FaceNegY, dir.X, -dir.Z
		}
	default:
		ma = az
		if dir.Z > 0 {
			face, a, b = FacePosZ, dir.X, -dir.Y
		} else {
			face, a, b = FaceNegZ, -dir.X, -dir.Y
		}
	}
	u = (a/ma + 1) / 2
	v = (b/ma + 1) / 2
	return face, u, v
}

var faceSampler = texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapClamp}

// Sample returns the environment radiance along dir at the given mip
// level, trilinearly blending adjacent mips for fractional lod.
func (c *Cubemap) Sample(dir ms3.Vec, lod float32) ms3.Vec {
	maxMip := float32(len(c.mips) - 1)
	if lod < 0 {
		lod = 0
	} else if lod > maxMip {
		lod = maxMip
	}
	m0 := int(lod)
	c0 := c.sampleMip(dir, m0)
	frac := lod - float32(m0)
	if frac <= 0 || m0+1 >= len(c.mips) {
		return c0
	}
	c1 := c.sampleMip(dir, m0+1)
	return ms3.InterpElem(c0, c1, ms3.Vec{X: frac, Y: frac, Z: frac})
}

func (c *Cubemap) sampleMip(dir ms3.Vec, mip int) ms3.Vec {
	face, u, v := faceUV(dir)
	return c.mips[mip][face].Sample(faceSampler, u, v).Vec()
}

// FromEquirect converts an equirectangular environment image into the
// base mip of a new cubemap and fills the remaining mips with 2x2 box
// downsamples, so that biased lookups during prefiltering see a proper
// chain.
func FromEquirect(ctx *texel.Context, equirect *texel.Texture, size int) (*Cubemap, error) {
	c, err := NewCubemap(size, MipLevels)
	if err != nil {
		return nil, err
	}
	eqSampler := texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapRepeat}
	for f := 0; f < 6; f++ {
		face := c.mips[0][f]
		fi := f
		ctx.ParallelRange(size, func(start, end int) {
			for y := start; y < end; y++ {
				for x := 0; x < size; x++ {
					u, v := face.UV(x, y)
					d := FaceDirection(fi, u, v)
					eu := math32.Atan2(d.Z, d.X)/(2*math32.Pi) + 0.5
					ev := math32.Acos(clamp1(d.Y)) / math32.Pi
					face.Set(x, y, equirect.Sample(eqSampler, eu, ev))
				}
			}
		})
	}
	c.downsampleMips(ctx)
	return c, nil
}

// downsampleMips fills mips 1..n with 2x2 box averages of the level
// above.
func (c *Cubemap) downsampleMips(ctx *texel.Context) {
	for m := 1; m < len(c.mips); m++ {
		for f := 0; f < 6; f++ {
			src, dst := c.mips[m-1][f], c.mips[m][f]
			w := dst.Width()
			ctx.ParallelRange(w, func(start, end int) {
				for y := start; y < end; y++ {
					for x := 0; x < w; x++ {
						var acc texel.RGBA
						for _, p := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
							s := src.At(min(2*x+p[0], src.Width()-1), min(2*y+p[1], src.Height()-1))
							for k := range acc {
								acc[k] += s[k]
							}
						}
						for k := range acc {
							acc[k] /= 4
						}
						dst.Set(x, y, acc)
					}
				}
			})
		}
	}
}

func clamp1(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
