// Package forward owns the primary camera pipelines: the depth prepass
// that lays down opaque and cutout depth, and the forward shading
// pipelines that run against it. Opaque and cutout shading use an Equal
// depth test against the prepass result so only visible fragments shade;
// blended geometry tests Less without writing and draws back to front of
// the pipeline order, after all opaque shading.
package forward

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/culling"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
	"github.com/ember-gfx/ember-go/engine/renderer/shader"
)

// Registrar compiles pipelines against the device. The render backend
// satisfies this.
type Registrar interface {
	// RegisterRenderPipeline compiles and attaches the device pipeline.
	//
	// Parameters:
	//   - p: the pipeline to compile
	//   - desc: the layout and target description
	//
	// Returns:
	//   - error: an error if compilation failed
	RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error
}

// Bindings carries the frame-wide bind groups the primary passes need.
type Bindings struct {
	Samplers  encode.BindGroup
	Materials encode.BindGroup
	Textures  encode.BindGroup
	Lights    encode.BindGroup
	Uniforms  encode.BindGroup
}

// Passes holds the five primary camera pipelines.
type Passes struct {
	PrepassOpaque pipeline.Pipeline
	PrepassCutout pipeline.Pipeline
	Opaque        pipeline.Pipeline
	Cutout        pipeline.Pipeline
	Blend         pipeline.Pipeline
}

// NewPasses builds and registers the primary camera pipelines.
//
// Parameters:
//   - reg: the pipeline registrar
//   - shaders: the built-in shader set
//   - layouts: the shared bind group layouts
//   - hdrFormat: the HDR color target format
//   - depthFormat: the depth target format
//   - samples: the MSAA sample count
//
// Returns:
//   - *Passes: the registered pipelines
//   - error: an error if any pipeline failed to compile
func NewPasses(reg Registrar, shaders *shader.ShaderSet, layouts *binding.Layouts, hdrFormat, depthFormat wgpu.TextureFormat, samples uint32) (*Passes, error) {
	p := &Passes{
		PrepassOpaque: pipeline.NewPipeline(
			"depth-prepass-opaque",
			pipeline.PipelineTypeRender,
			pipeline.ClassDepthPrepass,
			pipeline.WithVertexShader(shaders.DepthVertex),
			pipeline.WithCullMode(wgpu.CullModeBack),
		),
		PrepassCutout: pipeline.NewPipeline(
			"depth-prepass-cutout",
			pipeline.PipelineTypeRender,
			pipeline.ClassDepthPrepass,
			pipeline.WithVertexShader(shaders.DepthVertex),
			pipeline.WithFragmentShader(shaders.DepthCutoutFragment),
			pipeline.WithCullMode(wgpu.CullModeBack),
		),
		Opaque: pipeline.NewPipeline(
			"forward-opaque",
			pipeline.PipelineTypeRender,
			pipeline.ClassForward,
			pipeline.WithVertexShader(shaders.ForwardVertex),
			pipeline.WithFragmentShader(shaders.ForwardFragment),
			pipeline.WithDepthCompare(wgpu.CompareFunctionEqual),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithCullMode(wgpu.CullModeBack),
		),
		Cutout: pipeline.NewPipeline(
			"forward-cutout",
			pipeline.PipelineTypeRender,
			pipeline.ClassForward,
			pipeline.WithVertexShader(shaders.ForwardVertex),
			pipeline.WithFragmentShader(shaders.ForwardFragment),
			pipeline.WithDepthCompare(wgpu.CompareFunctionEqual),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithCullMode(wgpu.CullModeBack),
		),
		Blend: pipeline.NewPipeline(
			"forward-blend",
			pipeline.PipelineTypeRender,
			pipeline.ClassForward,
			pipeline.WithVertexShader(shaders.ForwardVertex),
			pipeline.WithFragmentShader(shaders.ForwardFragment),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithBlendEnabled(true),
			pipeline.WithCullMode(wgpu.CullModeBack),
		),
	}

	prepassDesc := &pipeline.RenderDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Samplers,
			layouts.CulledObject,
			layouts.Material,
			layouts.Texture,
		},
		VertexLayouts: mesh.VertexBufferLayout(),
		DepthFormat:   depthFormat,
		Samples:       samples,
	}
	forwardDesc := &pipeline.RenderDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Samplers,
			layouts.CulledObject,
			layouts.Material,
			layouts.Texture,
			layouts.Light,
			layouts.Uniform,
		},
		VertexLayouts: mesh.VertexBufferLayout(),
		ColorFormats:  []wgpu.TextureFormat{hdrFormat},
		DepthFormat:   depthFormat,
		Samples:       samples,
	}

	for _, entry := range []struct {
		p    pipeline.Pipeline
		desc *pipeline.RenderDescriptor
	}{
		{p.PrepassOpaque, prepassDesc},
		{p.PrepassCutout, prepassDesc},
		{p.Opaque, forwardDesc},
		{p.Cutout, forwardDesc},
		{p.Blend, forwardDesc},
	} {
		if err := reg.RegisterRenderPipeline(entry.p, entry.desc); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", entry.p.PipelineKey(), err)
		}
	}
	return p, nil
}

// EncodeDepthPrepass records the opaque and cutout depth draws.
//
// Parameters:
//   - pass: the open primary render pass
//   - b: the frame-wide bind groups
//   - opaque: the culled opaque set
//   - cutout: the culled cutout set
func (p *Passes) EncodeDepthPrepass(pass encode.RenderPass, b Bindings, opaque, cutout *culling.CulledObjectSet) {
	if !opaque.Empty() {
		pass.SetPipeline(p.PrepassOpaque)
		p.setPrepassGroups(pass, b, opaque)
		opaque.Encode(pass)
	}
	if !cutout.Empty() {
		pass.SetPipeline(p.PrepassCutout)
		p.setPrepassGroups(pass, b, cutout)
		cutout.Encode(pass)
	}
}

// EncodeShading records the opaque, cutout, and blend shading draws, in
// that order so blended surfaces composite over the shaded scene.
//
// Parameters:
//   - pass: the open primary render pass
//   - b: the frame-wide bind groups
//   - opaque: the culled opaque set
//   - cutout: the culled cutout set
//   - blend: the culled blend set
func (p *Passes) EncodeShading(pass encode.RenderPass, b Bindings, opaque, cutout, blend *culling.CulledObjectSet) {
	encodeOne := func(pl pipeline.Pipeline, set *culling.CulledObjectSet) {
		if set.Empty() {
			return
		}
		pass.SetPipeline(pl)
		p.setShadingGroups(pass, b, set)
		set.Encode(pass)
	}
	encodeOne(p.Opaque, opaque)
	encodeOne(p.Cutout, cutout)
	encodeOne(p.Blend, blend)
}

func (p *Passes) setPrepassGroups(pass encode.RenderPass, b Bindings, set *culling.CulledObjectSet) {
	pass.SetBindGroup(0, b.Samplers, nil)
	pass.SetBindGroup(1, set.BindGroup, nil)
	pass.SetBindGroup(2, b.Materials, nil)
	pass.SetBindGroup(3, b.Textures, nil)
}

func (p *Passes) setShadingGroups(pass encode.RenderPass, b Bindings, set *culling.CulledObjectSet) {
	p.setPrepassGroups(pass, b, set)
	pass.SetBindGroup(4, b.Lights, nil)
	pass.SetBindGroup(5, b.Uniforms, nil)
}

// Release frees the pipelines.
func (p *Passes) Release() {
	for _, pl := range []pipeline.Pipeline{p.PrepassOpaque, p.PrepassCutout, p.Opaque, p.Cutout, p.Blend} {
		if pl != nil {
			pl.Release()
		}
	}
}
