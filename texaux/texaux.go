// Package texaux provides auxiliary image input/output helpers to aid
// users in getting set up with texforge quickly: loading LDR and HDR
// images into textures, saving textures to PNG and 16-bit TIFF, and a
// one-call material preview render. Ideally applications implement
// their own IO since color management needs vary widely.
package texaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"golang.org/x/image/tiff"

	"github.com/texforge/texforge/ibl"
	"github.com/texforge/texforge/render"
	"github.com/texforge/texforge/texel"
)

// srgbToLinear undoes the sRGB transfer on an 8-bit-origin channel.
func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}

func linearToSRGB(c float32) float32 {
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math32.Pow(c, 1/2.4) - 0.055
}

// FromImage converts a decoded image into a linear-light color
// texture.
func FromImage(img image.Image) *texel.Texture {
	b := img.Bounds()
	t := texel.New(b.Dx(), b.Dy(), texel.RGBA32F)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bb, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			t.Set(x, y, texel.RGBA{
				srgbToLinear(float32(r) / 0xffff),
				srgbToLinear(float32(g) / 0xffff),
				srgbToLinear(float32(bb) / 0xffff),
				float32(a) / 0xffff,
			})
		}
	}
	return t
}

// ToImage converts a texture to an 8-bit image with sRGB encoding,
// clamping out-of-range values.
func ToImage(t *texel.Texture) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width(), t.Height()))
	for y := 0; y < t.Height(); y++ {
		for x := 0; x < t.Width(); x++ {
			c := t.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: quant8(linearToSRGB(c[0])),
				G: quant8(linearToSRGB(c[1])),
				B: quant8(linearToSRGB(c[2])),
				A: quant8(c[3]),
			})
		}
	}
	return img
}

// ToImage16 converts a texture to a 16-bit image, linearly quantized.
// Preferred for height and normal data where sRGB banding would show.
func ToImage16(t *texel.Texture) *image.NRGBA64 {
	img := image.NewNRGBA64(image.Rect(0, 0, t.Width(), t.Height()))
	for y := 0; y < t.Height(); y++ {
		for x := 0; x < t.Width(); x++ {
			c := t.At(x, y)
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: quant16(c[0]),
				G: quant16(c[1]),
				B: quant16(c[2]),
				A: quant16(c[3]),
			})
		}
	}
	return img
}

func quant8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func quant16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

// LoadImage reads an LDR image file into a linear color texture.
func LoadImage(path string) (*texel.Texture, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texaux: loading %s: %w", path, err)
	}
	return FromImage(img), nil
}

// LoadHDR reads a Radiance RGBE environment image into a float
// texture, radiance values preserved.
func LoadHDR(path string) (*texel.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texaux: decoding %s: %w", path, err)
	}
	hdrImg, ok := img.(hdr.Image)
	if !ok {
		return FromImage(img), nil
	}
	b := hdrImg.Bounds()
	t := texel.New(b.Dx(), b.Dy(), texel.RGBA32F)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bb, _ := hdrImg.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			t.Set(x, y, texel.RGBA{float32(r), float32(g), float32(bb), 1})
		}
	}
	return t, nil
}

// SavePNG writes a texture to a PNG file with sRGB encoding.
func SavePNG(path string, t *texel.Texture) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, ToImage(t))
}

// SaveTIFF16 writes a texture to a deflate-compressed 16-bit TIFF,
// linearly quantized.
func SaveTIFF16(path string, t *texel.Texture) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tiff.Encode(f, ToImage16(t), &tiff.Options{Compression: tiff.Deflate})
}

// Thumbnail returns a downscaled copy of the texture, used by hosts
// for node previews.
func Thumbnail(t *texel.Texture, size int) *texel.Texture {
	small := imaging.Thumbnail(ToImage(t), size, size, imaging.Lanczos)
	return FromImage(small)
}

// PreviewConfig controls RenderMaterial.
type PreviewConfig struct {
	Size        int
	Samples     int
	Object      render.ObjectType
	Environment string // path to an equirectangular HDR, optional
}

// RenderMaterial renders a material preview with stock camera and
// lighting. When an environment path is given the full IBL chain is
// prepared; otherwise only the analytic light contributes.
func RenderMaterial(ctx *texel.Context, mat *render.Material, cfg PreviewConfig) (*texel.Texture, error) {
	if cfg.Size <= 0 {
		cfg.Size = 512
	}
	if cfg.Samples <= 0 {
		cfg.Samples = 8
	}
	if mat == nil {
		return nil, errors.New("texaux: nil material")
	}
	var env *render.Environment
	if cfg.Environment != "" {
		eq, err := LoadHDR(cfg.Environment)
		if err != nil {
			return nil, err
		}
		cube, err := ibl.FromEquirect(ctx, eq, 128)
		if err != nil {
			return nil, err
		}
		irr, err := ibl.Irradiance(ctx, cube, 32)
		if err != nil {
			return nil, err
		}
		spec, err := ibl.PrefilterSpecular(ctx, cube, 128)
		if err != nil {
			return nil, err
		}
		env = &render.Environment{Irradiance: irr, Specular: spec, BRDF: ibl.BRDFLut(ctx)}
	}
	r := render.NewRenderer3D(cfg.Size, cfg.Size)
	r.Object = cfg.Object
	out := texel.New(cfg.Size, cfg.Size, texel.RGBA32F)
	if err := r.Render(ctx, env, mat, out, cfg.Samples); err != nil {
		return nil, err
	}
	return out, nil
}
