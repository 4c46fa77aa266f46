package ibl

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge"
	"github.com/texforge/texforge/texel"
)

const (
	irradianceSamples = 512
	specularSamples   = 256
)

// tangentFrame returns two vectors orthogonal to n forming a
// right-handed basis.
func tangentFrame(n ms3.Vec) (t, b ms3.Vec) {
	up := ms3.Vec{Z: 1}
	if math32.Abs(n.Z) > 0.999 {
		up = ms3.Vec{X: 1}
	}
	t = ms3.Unit(cross(up, n))
	b = cross(n, t)
	return t, b
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// Irradiance convolves the environment with a cosine-weighted
// hemisphere per output direction, producing the diffuse irradiance
// cubemap. Sampling is stratified with the Hammersley set; each sample
// reads a mip biased by its solid-angle ratio to suppress fireflies at
// low sample counts.
func Irradiance(ctx *texel.Context, env *Cubemap, size int) (*Cubemap, error) {
	out, err := NewCubemap(size, 1)
	if err != nil {
		return nil, err
	}
	// one env texel's solid angle at the base mip
	saTexel := 4 * math32.Pi / (6 * float32(env.Size()) * float32(env.Size()))
	for f := 0; f < 6; f++ {
		face := out.mips[0][f]
		fi := f
		ctx.ParallelRange(size, func(start, end int) {
			for y := start; y < end; y++ {
				for x := 0; x < size; x++ {
					u, v := face.UV(x, y)
					n := FaceDirection(fi, u, v)
					t, b := tangentFrame(n)
					var acc ms3.Vec
					for i := uint32(0); i < irradianceSamples; i++ {
						xi := texforge.Hammersley(i, irradianceSamples)
						// cosine-weighted hemisphere direction
						phi := 2 * math32.Pi * xi.X
						cosT := math32.Sqrt(1 - xi.Y)
						sinT := math32.Sqrt(xi.Y)
						sp, cp := math32.Sincos(phi)
						l := ms3.Add(
							ms3.Add(ms3.Scale(cp*sinT, t), ms3.Scale(sp*sinT, b)),
							ms3.Scale(cosT, n))
						// pdf = cos/pi, integrand cos/pi cancels: plain mean
						saSample := 1 / (float32(irradianceSamples) * (cosT / math32.Pi))
						lod := 0.5 * math32.Log2(saSample/saTexel)
						acc = ms3.Add(acc, env.Sample(l, lod))
					}
					acc = ms3.Scale(1/float32(irradianceSamples), acc)
					face.Set(x, y, texel.FromVec(acc, 1))
				}
			}
		})
	}
	return out, nil
}

// importanceGGX returns a halfway vector around n distributed per the
// GGX normal distribution with the given roughness.
func importanceGGX(xi ms2.Vec, n ms3.Vec, roughness float32) ms3.Vec {
	a := roughness * roughness
	phi := 2 * math32.Pi * xi.X
	cosT := math32.Sqrt((1 - xi.Y) / (1 + (a*a-1)*xi.Y))
	sinT := math32.Sqrt(1 - cosT*cosT)
	sp, cp := math32.Sincos(phi)
	t, b := tangentFrame(n)
	return ms3.Add(
		ms3.Add(ms3.Scale(cp*sinT, t), ms3.Scale(sp*sinT, b)),
		ms3.Scale(cosT, n))
}

func distributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math32.Pi * d * d)
}

// PrefilterSpecular builds the GGX-prefiltered specular chain: mip m is
// the environment convolved at roughness m/MipLevels under the
// split-sum n = v = r approximation. Each sample reads the source mip
// chosen from its solid-angle ratio.
func PrefilterSpecular(ctx *texel.Context, env *Cubemap, size int) (*Cubemap, error) {
	out, err := NewCubemap(size, MipLevels)
	if err != nil {
		return nil, err
	}
	saTexel := 4 * math32.Pi / (6 * float32(env.Size()) * float32(env.Size()))
	for m := 0; m < MipLevels; m++ {
		roughness := float32(m) / MipLevels
		for f := 0; f < 6; f++ {
			face := out.mips[m][f]
			fi := f
			w := face.Width()
			ctx.ParallelRange(w, func(start, end int) {
				for y := start; y < end; y++ {
					for x := 0; x < w; x++ {
						u, v := face.UV(x, y)
						n := FaceDirection(fi, u, v)
						var acc ms3.Vec
						var weight float32
						for i := uint32(0); i < specularSamples; i++ {
							xi := texforge.Hammersley(i, specularSamples)
							h := importanceGGX(xi, n, roughness)
							l := ms3.Sub(ms3.Scale(2*ms3.Dot(n, h), h), n)
							nDotL := ms3.Dot(n, l)
							if nDotL <= 0 {
								continue
							}
							nDotH := ms3.Dot(n, h)
							pdf := distributionGGX(nDotH, roughness)*nDotH/(4*nDotH) + 1e-4
							saSample := 1 / (float32(specularSamples) * pdf)
							lod := 0.5 * math32.Log2(saSample/saTexel)
							if roughness == 0 {
								lod = 0
							}
							acc = ms3.Add(acc, ms3.Scale(nDotL, env.Sample(l, lod)))
							weight += nDotL
						}
						if weight > 0 {
							acc = ms3.Scale(1/weight, acc)
						}
						face.Set(x, y, texel.FromVec(acc, 1))
					}
				}
			})
		}
	}
	return out, nil
}
