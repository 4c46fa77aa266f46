package ibl

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge"
	"github.com/texforge/texforge/texel"
)

// BRDFLutSize is the side length of the split-sum BRDF lookup table.
const BRDFLutSize = 64

const brdfSamples = 1024

// geometrySmithIBL is the Smith visibility term with the IBL roughness
// remapping k = a^2/2, a = roughness.
func geometrySmithIBL(nDotV, nDotL, roughness float32) float32 {
	a := roughness * roughness
	k := a / 2
	gv := nDotV / (nDotV*(1-k) + k)
	gl := nDotL / (nDotL*(1-k) + k)
	return gv * gl
}

// BRDFLut integrates the split-sum environment BRDF over (n.v,
// roughness), returning a BRDFLutSize square texture whose red and
// green channels hold the scale and bias applied to F0 at shading
// time.
func BRDFLut(ctx *texel.Context) *texel.Texture {
	lut := texel.New(BRDFLutSize, BRDFLutSize, texel.RGBA32F)
	ctx.ParallelRange(BRDFLutSize, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < BRDFLutSize; x++ {
				u, v := lut.UV(x, y)
				scale, bias := integrateBRDF(u, v)
				lut.Set(x, y, texel.RGBA{scale, bias, 0, 1})
			}
		}
	})
	return lut
}

func integrateBRDF(nDotV, roughness float32) (scale, bias float32) {
	if nDotV < 1e-3 {
		nDotV = 1e-3
	}
	view := ms3.Vec{X: math32.Sqrt(1 - nDotV*nDotV), Z: nDotV}
	n := ms3.Vec{Z: 1}
	for i := uint32(0); i < brdfSamples; i++ {
		xi := texforge.Hammersley(i, brdfSamples)
		h := importanceGGX(xi, n, roughness)
		l := ms3.Sub(ms3.Scale(2*ms3.Dot(view, h), h), view)
		nDotL := l.Z
		if nDotL <= 0 {
			continue
		}
		nDotH := maxf(h.Z, 0)
		vDotH := maxf(ms3.Dot(view, h), 0)
		g := geometrySmithIBL(nDotV, nDotL, roughness)
		gVis := g * vDotH / (nDotH * nDotV)
		fc := math32.Pow(1-vDotH, 5)
		scale += (1 - fc) * gVis
		bias += fc * gVis
	}
	return scale / brdfSamples, bias / brdfSamples
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
