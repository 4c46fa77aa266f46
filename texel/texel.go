// Package texel implements the data model shared by all pipeline operators:
// float32 textures, sampler state and the dispatch contract.
//
// Textures are CPU-backed. The format tag preserves the channel count and
// intended storage precision of the GPU original so exporters can honor it,
// but all arithmetic happens in float32.
package texel

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Format enumerates pixel formats used by pipeline textures.
type Format uint8

const (
	// R32F is a single channel float format used for scalar fields
	// such as height, roughness, masks and distance fields.
	R32F Format = iota
	// RGBA16F is the 4 channel color format used by color sockets.
	RGBA16F
	// RGBA32F is the 4 channel high precision format used by HDR
	// environment data and renderer accumulation buffers.
	RGBA32F
)

// Channels returns the number of channels stored per pixel.
func (f Format) Channels() int {
	if f == R32F {
		return 1
	}
	return 4
}

func (f Format) String() string {
	switch f {
	case R32F:
		return "r32f"
	case RGBA16F:
		return "rgba16f"
	case RGBA32F:
		return "rgba32f"
	}
	return "unknown"
}

// ImageType is the socket-level type of an operator input or output.
// Dynamic sockets assume the type of whatever they are connected to.
type ImageType uint8

const (
	Grayscale ImageType = iota
	Color
	Dynamic
)

// Format returns the texture format backing sockets of this type.
func (it ImageType) Format() Format {
	if it == Grayscale {
		return R32F
	}
	return RGBA16F
}

func (it ImageType) String() string {
	switch it {
	case Grayscale:
		return "grayscale"
	case Color:
		return "color"
	case Dynamic:
		return "dynamic"
	}
	return "unknown"
}

// Wrap selects the addressing mode applied to sample coordinates
// outside the unit square.
type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapClamp
	WrapBorder
)

// Filter selects the sample interpolation mode.
type Filter uint8

const (
	FilterBilinear Filter = iota
	FilterNearest
)

// Sampler bundles filtering and addressing state for texture reads.
// The zero value is bilinear+repeat, the mode used by tileable operators.
type Sampler struct {
	Filter Filter
	Wrap   Wrap
	// Border is returned for out of range samples under WrapBorder.
	Border RGBA
}

// RGBA is a pixel value. Grayscale textures broadcast their single
// channel over RGB with alpha 1 when read through At or Sample.
type RGBA [4]float32

// Vec returns the RGB part of c.
func (c RGBA) Vec() ms3.Vec { return ms3.Vec{X: c[0], Y: c[1], Z: c[2]} }

// FromVec builds a pixel value from an RGB vector and alpha.
func FromVec(v ms3.Vec, alpha float32) RGBA { return RGBA{v.X, v.Y, v.Z, alpha} }

// Gray collapses c to a single scalar. For values read from grayscale
// textures all channels agree, so the red channel is authoritative.
func (c RGBA) Gray() float32 { return c[0] }

// Texture is a 2D pixel array owned by the host resource pool.
// Operators borrow textures for reading or writing; a texture must never be
// both read and written by the same dispatch.
type Texture struct {
	width  int
	height int
	format Format
	data   []float32
}

// New creates a zeroed texture. Panics on non-positive dimensions since
// texture sizing is a host programming error, not runtime input.
func New(width, height int, format Format) *Texture {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("texel.New: invalid dimensions %dx%d", width, height))
	}
	return &Texture{
		width:  width,
		height: height,
		format: format,
		data:   make([]float32, width*height*format.Channels()),
	}
}

func (t *Texture) Width() int     { return t.width }
func (t *Texture) Height() int    { return t.height }
func (t *Texture) Format() Format { return t.format }

// Data exposes the raw backing slice, channel-interleaved in row-major
// order. Intended for exporters and tests.
func (t *Texture) Data() []float32 { return t.data }

// At returns the pixel at integer coordinates without filtering.
// Coordinates outside the texture are clamped.
func (t *Texture) At(x, y int) RGBA {
	x = clampi(x, 0, t.width-1)
	y = clampi(y, 0, t.height-1)
	if t.format == R32F {
		v := t.data[y*t.width+x]
		return RGBA{v, v, v, 1}
	}
	i := (y*t.width + x) * 4
	return RGBA{t.data[i], t.data[i+1], t.data[i+2], t.data[i+3]}
}

// Gray returns the scalar value at integer coordinates. For color
// textures the red channel is returned.
func (t *Texture) Gray(x, y int) float32 {
	x = clampi(x, 0, t.width-1)
	y = clampi(y, 0, t.height-1)
	if t.format == R32F {
		return t.data[y*t.width+x]
	}
	return t.data[(y*t.width+x)*4]
}

// Set stores a pixel value. Out of range coordinates are discarded.
// Grayscale textures store only the red channel.
func (t *Texture) Set(x, y int, c RGBA) {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return
	}
	if t.format == R32F {
		t.data[y*t.width+x] = c[0]
		return
	}
	i := (y*t.width + x) * 4
	t.data[i] = c[0]
	t.data[i+1] = c[1]
	t.data[i+2] = c[2]
	t.data[i+3] = c[3]
}

// SetGray stores a scalar value. For color textures the value is
// broadcast over RGB with alpha 1.
func (t *Texture) SetGray(x, y int, v float32) {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return
	}
	if t.format == R32F {
		t.data[y*t.width+x] = v
		return
	}
	i := (y*t.width + x) * 4
	t.data[i] = v
	t.data[i+1] = v
	t.data[i+2] = v
	t.data[i+3] = 1
}

// Fill sets every pixel to c.
func (t *Texture) Fill(c RGBA) {
	if t.format == R32F {
		for i := range t.data {
			t.data[i] = c[0]
		}
		return
	}
	for i := 0; i < len(t.data); i += 4 {
		t.data[i] = c[0]
		t.data[i+1] = c[1]
		t.data[i+2] = c[2]
		t.data[i+3] = c[3]
	}
}

// CopyFrom copies pixel data from src. Dimensions must match exactly;
// formats may differ and convert through At/Set semantics.
func (t *Texture) CopyFrom(src *Texture) error {
	if src.width != t.width || src.height != t.height {
		return errors.New("texel: copy dimension mismatch")
	}
	if src.format == t.format {
		copy(t.data, src.data)
		return nil
	}
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			t.Set(x, y, src.At(x, y))
		}
	}
	return nil
}

// UV returns the sample coordinate of the pixel center at (x, y).
// Coordinate generation always derives UV from the pixel center so that
// filtering stays centered; never sample at raw integer coordinates.
func (t *Texture) UV(x, y int) (u, v float32) {
	return (float32(x) + 0.5) / float32(t.width), (float32(y) + 0.5) / float32(t.height)
}

// wrapCoord maps an integer texel coordinate into [0,n) under the wrap
// mode. The second return is false when the coordinate falls on the
// border color under WrapBorder.
func wrapCoord(i, n int, w Wrap) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch w {
	case WrapRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	case WrapClamp:
		return clampi(i, 0, n-1), true
	default:
		return 0, false
	}
}

func (t *Texture) texelAt(x, y int, s Sampler) RGBA {
	xi, okx := wrapCoord(x, t.width, s.Wrap)
	yi, oky := wrapCoord(y, t.height, s.Wrap)
	if !okx || !oky {
		return s.Border
	}
	return t.At(xi, yi)
}

// Sample reads the texture at normalized coordinates (u,v) with the
// sampler's filtering and addressing mode.
func (t *Texture) Sample(s Sampler, u, v float32) RGBA {
	fx := u*float32(t.width) - 0.5
	fy := v*float32(t.height) - 0.5
	if s.Filter == FilterNearest {
		return t.texelAt(int(math32.Round(fx)), int(math32.Round(fy)), s)
	}
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)
	c00 := t.texelAt(x0, y0, s)
	c10 := t.texelAt(x0+1, y0, s)
	c01 := t.texelAt(x0, y0+1, s)
	c11 := t.texelAt(x0+1, y0+1, s)
	var out RGBA
	for i := 0; i < 4; i++ {
		top := c00[i] + (c10[i]-c00[i])*tx
		bot := c01[i] + (c11[i]-c01[i])*tx
		out[i] = top + (bot-top)*ty
	}
	return out
}

// SampleGray is Sample collapsed to a scalar.
func (t *Texture) SampleGray(s Sampler, u, v float32) float32 {
	return t.Sample(s, u, v).Gray()
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
