package render

import (
	"errors"

	"github.com/soypat/geometry/ms2"
	"github.com/texforge/texforge/texel"
)

// Channel2D selects which material channel slot the 2D preview shows.
type Channel2D uint8

const (
	ChannelAlbedo Channel2D = iota
	ChannelRoughness
	ChannelNormal
	ChannelDisplacement
	ChannelMetallic
	ChannelOcclusion
)

// Renderer2D draws a single material channel flat with pan and zoom,
// the texture tiled across the view so seams are visible immediately.
type Renderer2D struct {
	Pan     ms2.Vec
	Zoom    float32
	Channel Channel2D
}

func NewRenderer2D() *Renderer2D { return &Renderer2D{Zoom: 1} }

// PanView offsets the view in UV units.
func (r *Renderer2D) PanView(dx, dy float32) {
	r.Pan = ms2.Add(r.Pan, ms2.Vec{X: dx, Y: dy})
}

// ZoomView changes magnification linearly, kept positive.
func (r *Renderer2D) ZoomView(dz float32) {
	r.Zoom = maxf(r.Zoom+dz, 0.05)
}

// channelTexture picks the texture slot for the configured channel.
func (r *Renderer2D) channelTexture(mat *Material) *texel.Texture {
	switch r.Channel {
	case ChannelRoughness:
		return mat.Roughness
	case ChannelNormal:
		return mat.Normal
	case ChannelDisplacement:
		return mat.Displacement
	case ChannelMetallic:
		return mat.Metallic
	case ChannelOcclusion:
		return mat.Occlusion
	default:
		return mat.Albedo
	}
}

// Render draws the selected channel into out. An unbound channel
// renders mid-gray.
func (r *Renderer2D) Render(ctx *texel.Context, mat *Material, out *texel.Texture) error {
	if mat == nil {
		return errors.New("render: nil material")
	}
	src := r.channelTexture(mat)
	zoom := maxf(r.Zoom, 0.05)
	w, h := out.Width(), out.Height()
	ctx.ParallelRange(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				u, v := out.UV(x, y)
				su := (u-0.5)/zoom + 0.5 + r.Pan.X
				sv := (v-0.5)/zoom + 0.5 + r.Pan.Y
				if src == nil {
					out.Set(x, y, texel.RGBA{0.5, 0.5, 0.5, 1})
					continue
				}
				out.Set(x, y, src.Sample(matSampler, su, sv))
			}
		}
	})
	return nil
}
