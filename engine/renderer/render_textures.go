package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
)

const (
	// HDRFormat is the format shading renders into before tonemapping.
	HDRFormat = wgpu.TextureFormatRGBA16Float

	// DepthFormat is the primary depth buffer format.
	DepthFormat = wgpu.TextureFormatDepth32Float

	// ShadowFormat is the shadow atlas depth format.
	ShadowFormat = wgpu.TextureFormatDepth32Float
)

// RenderTextures holds the internal targets for one output size: the HDR
// color buffer, its resolve target when multisampling, and the depth
// buffer. Recreated on resize and on sample count changes.
type RenderTextures struct {
	Width   uint32
	Height  uint32
	Samples uint32

	// Color is the HDR target shading renders into. Multisampled when
	// Samples is greater than one.
	Color     *wgpu.Texture
	ColorView *wgpu.TextureView

	// Resolve receives the resolved single-sample image. Nil when Samples
	// is one and Color is sampled directly.
	Resolve     *wgpu.Texture
	ResolveView *wgpu.TextureView

	Depth     *wgpu.Texture
	DepthView *wgpu.TextureView

	// HDRInput exposes the resolved HDR image to the tonemap pass.
	HDRInput encode.BindGroup
}

// Release frees the textures and views.
func (rt *RenderTextures) Release() {
	if rt == nil {
		return
	}
	if rt.HDRInput != nil {
		rt.HDRInput.Release()
	}
	for _, view := range []*wgpu.TextureView{rt.ColorView, rt.ResolveView, rt.DepthView} {
		if view != nil {
			view.Release()
		}
	}
	for _, tex := range []*wgpu.Texture{rt.Color, rt.Resolve, rt.Depth} {
		if tex != nil {
			tex.Release()
		}
	}
}
