package render

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/texforge/texforge"
	"github.com/texforge/texforge/ibl"
	"github.com/texforge/texforge/texel"
)

// ShadingMode selects between physically based shading and matcap
// lookup.
type ShadingMode uint8

const (
	ShadePBR ShadingMode = iota
	ShadeMatcap
)

// LightType selects the analytic light model.
type LightType uint8

const (
	// PointLight attenuates by squared distance from LightPosition.
	PointLight LightType = iota
	// SunLight is a directional light along LightPosition.
	SunLight
)

// Environment bundles the prefiltered lighting data consumed by the
// renderer.
type Environment struct {
	Irradiance *ibl.Cubemap
	Specular   *ibl.Cubemap
	BRDF       *texel.Texture
}

var lutSampler = texel.Sampler{Filter: texel.FilterBilinear, Wrap: texel.WrapClamp}

// Renderer3D progressively accumulates ray-marched samples of a
// material applied to an SDF primitive. Each RenderSample call adds
// one stratified sample per pixel; Resolve divides by the sample count
// and tonemaps into an output texture.
type Renderer3D struct {
	Camera  Camera
	Object  ObjectType
	Shading ShadingMode
	ToneMap ToneMap

	LightPosition ms3.Vec
	LightType     LightType
	LightStrength float32
	FogStrength   float32

	EnvironmentStrength float32
	EnvironmentBlur     float32

	Displacement float32
	TextureScale float32
	Shadow       bool
	AO           bool

	// Matcap is the lookup texture used in matcap shading mode.
	Matcap *texel.Texture

	width, height int
	accum         []float32 // rgb accumulation
	samples       int
}

// NewRenderer3D returns a renderer with the stock view: a cube seen
// from orbit angles (1,1) at radius 6 under a point light.
func NewRenderer3D(width, height int) *Renderer3D {
	return &Renderer3D{
		Camera:              DefaultCamera(),
		Object:              ObjectCube,
		ToneMap:             ToneMapReinhard,
		LightPosition:       ms3.Vec{Y: 3},
		LightStrength:       100,
		EnvironmentStrength: 1,
		EnvironmentBlur:     3,
		Displacement:        0.1,
		TextureScale:        1,
		Shadow:              true,
		width:               width,
		height:              height,
		accum:               make([]float32, width*height*3),
	}
}

// Reset discards accumulated samples. Call after any parameter or
// input change.
func (r *Renderer3D) Reset() {
	for i := range r.accum {
		r.accum[i] = 0
	}
	r.samples = 0
}

// Samples returns how many samples have been accumulated per pixel.
func (r *Renderer3D) Samples() int { return r.samples }

// background returns the environment radiance along rd, blurred by the
// configured environment blur and attenuated by its strength.
func (r *Renderer3D) background(env *Environment, rd ms3.Vec) ms3.Vec {
	if env == nil || env.Specular == nil {
		return ms3.Vec{}
	}
	return ms3.Scale(r.EnvironmentStrength, env.Specular.Sample(rd, r.EnvironmentBlur))
}

// RenderSample traces one sample per pixel and adds it to the
// accumulation buffer.
func (r *Renderer3D) RenderSample(ctx *texel.Context, env *Environment, mat *Material) error {
	if mat == nil {
		return errors.New("render: nil material")
	}
	sc := &scene{object: r.Object, mat: mat, disp: r.Displacement, texScale: r.TextureScale}
	if mat.Displacement == nil {
		sc.disp = 0
	}
	sample := uint32(r.samples)
	// subpixel and lens offsets for this accumulation pass
	jitter := texforge.Hammersley(sample%1024, 1024)
	aspect := float32(r.width) / float32(r.height)
	ctx.ParallelRange(r.height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < r.width; x++ {
				ndc := ms2.Vec{
					X: (2*(float32(x)+jitter.X)/float32(r.width) - 1) * aspect,
					Y: 1 - 2*(float32(y)+jitter.Y)/float32(r.height),
				}
				c := r.shadePixel(sc, env, ndc, jitter)
				i := (y*r.width + x) * 3
				r.accum[i] += c.X
				r.accum[i+1] += c.Y
				r.accum[i+2] += c.Z
			}
		}
	})
	r.samples++
	return nil
}

func (r *Renderer3D) shadePixel(sc *scene, env *Environment, ndc, jitter ms2.Vec) ms3.Vec {
	ro, rd := r.Camera.Ray(ndc, jitter)
	t, _ := sc.march(ro, rd)
	if t == noHit {
		return r.background(env, rd)
	}
	p := ms3.Add(ro, ms3.Scale(t, rd))
	n := sc.normal(p, t)
	uv := sc.mapUV(p)

	// tangent-space normal map perturbation
	if sc.mat.Normal != nil {
		tn := ms3.AddScalar(-1, ms3.Scale(2, sc.mat.Normal.Sample(matSampler, uv.X, uv.Y).Vec()))
		tb, bb := tangentBasis(n)
		n = ms3.Unit(ms3.Add(
			ms3.Add(ms3.Scale(tn.X, tb), ms3.Scale(tn.Y, bb)),
			ms3.Scale(maxf(tn.Z, 0.1), n)))
	}

	var c ms3.Vec
	if r.Shading == ShadeMatcap {
		c = r.shadeMatcap(n, rd)
	} else {
		c = r.shadePBR(sc, env, p, n, rd, t, uv, jitter)
	}
	if r.FogStrength > 0 {
		fog := 1 - math32.Exp(-r.FogStrength*t*0.1)
		c = ms3.InterpElem(c, r.background(env, rd), ms3.Vec{X: fog, Y: fog, Z: fog})
	}
	return c
}

func (r *Renderer3D) shadePBR(sc *scene, env *Environment, p, n, rd ms3.Vec, t float32, uv, jitter ms2.Vec) ms3.Vec {
	albedo := ms3.Vec{X: 0.75, Y: 0.75, Z: 0.75}
	if sc.mat.Albedo != nil {
		albedo = sc.mat.Albedo.Sample(matSampler, uv.X, uv.Y).Vec()
	}
	roughness := sampleGrayOr(sc.mat.Roughness, uv, 0.5)
	metallic := sampleGrayOr(sc.mat.Metallic, uv, 0)
	occlusion := sampleGrayOr(sc.mat.Occlusion, uv, 1)
	if r.AO {
		occlusion *= sc.coneOcclusion(p, n, jitter)
	}

	v := ms3.Scale(-1, rd)
	f0 := ms3.InterpElem(ms3.Vec{X: 0.04, Y: 0.04, Z: 0.04}, albedo, ms3.Vec{X: metallic, Y: metallic, Z: metallic})

	// direct light
	var lightDir ms3.Vec
	var radiance float32
	if r.LightType == SunLight {
		lightDir = ms3.Unit(r.LightPosition)
		radiance = r.LightStrength * 0.05
	} else {
		toLight := ms3.Sub(r.LightPosition, p)
		d2 := maxf(ms3.Norm2(toLight), 1e-4)
		lightDir = ms3.Scale(1/math32.Sqrt(d2), toLight)
		radiance = r.LightStrength / d2
	}
	var direct ms3.Vec
	nDotL := ms3.Dot(n, lightDir)
	if nDotL > 0 && radiance > 0 {
		sh := float32(1)
		if r.Shadow {
			sh = sc.softShadow(ms3.Add(p, ms3.Scale(2e-2, n)), lightDir, 0.1)
		}
		if sh > 0 {
			h := ms3.Unit(ms3.Add(v, lightDir))
			nDotV := maxf(ms3.Dot(n, v), 1e-4)
			nDotH := maxf(ms3.Dot(n, h), 0)
			d := distributionGGX(nDotH, roughness)
			g := geometrySmithDirect(nDotV, nDotL, roughness)
			f := fresnelSchlick(maxf(ms3.Dot(h, v), 0), f0)
			spec := ms3.Scale(d*g/(4*nDotV*nDotL+1e-4), f)
			kd := ms3.Scale(1-metallic, ms3.Sub(ms3.Vec{X: 1, Y: 1, Z: 1}, f))
			diff := ms3.Scale(1/math32.Pi, ms3.MulElem(kd, albedo))
			direct = ms3.Scale(radiance*nDotL*sh, ms3.Add(diff, spec))
		}
	}

	// image based ambient term
	var ambient ms3.Vec
	if env != nil && env.Irradiance != nil && env.Specular != nil && env.BRDF != nil {
		nDotV := maxf(ms3.Dot(n, v), 1e-4)
		f := fresnelSchlickRoughness(nDotV, f0, roughness)
		kd := ms3.Scale(1-metallic, ms3.Sub(ms3.Vec{X: 1, Y: 1, Z: 1}, f))
		irr := env.Irradiance.Sample(n, 0)
		diffuse := ms3.MulElem(ms3.MulElem(kd, albedo), irr)
		refl := ms3.Sub(rd, ms3.Scale(2*ms3.Dot(rd, n), n))
		pre := env.Specular.Sample(refl, roughness*5)
		lut := env.BRDF.Sample(lutSampler, nDotV, roughness)
		spec := ms3.MulElem(pre, ms3.AddScalar(lut[1], ms3.Scale(lut[0], f)))
		ambient = ms3.Scale(r.EnvironmentStrength*occlusion, ms3.Add(diffuse, spec))
	} else {
		ambient = ms3.Scale(0.03*occlusion, albedo)
	}
	return ms3.Add(direct, ambient)
}

// shadeMatcap looks the matcap texture up by the view-space normal.
func (r *Renderer3D) shadeMatcap(n, rd ms3.Vec) ms3.Vec {
	if r.Matcap == nil {
		l := maxf(ms3.Dot(n, ms3.Unit(ms3.Vec{X: 1, Y: 1, Z: 1})), 0)
		return ms3.Vec{X: l, Y: l, Z: l}
	}
	right, up, _ := r.Camera.basis()
	mu := ms3.Dot(n, right)*0.5 + 0.5
	mv := 0.5 - ms3.Dot(n, up)*0.5
	return r.Matcap.Sample(lutSampler, mu, mv).Vec()
}

// Resolve divides the accumulation buffer by the sample count, applies
// the tone map operator and the display gamma, writing the result into
// out.
func (r *Renderer3D) Resolve(ctx *texel.Context, out *texel.Texture) error {
	if out.Width() != r.width || out.Height() != r.height {
		return errors.New("render: output size mismatch")
	}
	if r.samples == 0 {
		return errors.New("render: no samples accumulated")
	}
	inv := 1 / float32(r.samples)
	ctx.ParallelRange(r.height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < r.width; x++ {
				i := (y*r.width + x) * 3
				c := ms3.Scale(inv, ms3.Vec{X: r.accum[i], Y: r.accum[i+1], Z: r.accum[i+2]})
				c = r.ToneMap.Apply(c)
				out.Set(x, y, texel.FromVec(gamma(c), 1))
			}
		}
	})
	return nil
}

// Render accumulates the requested number of samples from scratch and
// resolves into out.
func (r *Renderer3D) Render(ctx *texel.Context, env *Environment, mat *Material, out *texel.Texture, samples int) error {
	if samples < 1 {
		samples = 1
	}
	r.Reset()
	for i := 0; i < samples; i++ {
		if err := r.RenderSample(ctx, env, mat); err != nil {
			return err
		}
	}
	return r.Resolve(ctx, out)
}

func distributionGGX(nDotH, roughness float32) float32 {
	a := roughness * roughness
	a2 := a * a
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math32.Pi * d * d)
}

func geometrySmithDirect(nDotV, nDotL, roughness float32) float32 {
	k := (roughness + 1) * (roughness + 1) / 8
	gv := nDotV / (nDotV*(1-k) + k)
	gl := nDotL / (nDotL*(1-k) + k)
	return gv * gl
}

func fresnelSchlick(cosT float32, f0 ms3.Vec) ms3.Vec {
	f := math32.Pow(1-cosT, 5)
	return ms3.Add(f0, ms3.Scale(f, ms3.Sub(ms3.Vec{X: 1, Y: 1, Z: 1}, f0)))
}

func fresnelSchlickRoughness(cosT float32, f0 ms3.Vec, roughness float32) ms3.Vec {
	f := math32.Pow(1-cosT, 5)
	m := maxf(1-roughness, f0.X)
	top := ms3.Vec{X: maxf(m, f0.X), Y: maxf(m, f0.Y), Z: maxf(m, f0.Z)}
	return ms3.Add(f0, ms3.Scale(f, ms3.Sub(top, f0)))
}
