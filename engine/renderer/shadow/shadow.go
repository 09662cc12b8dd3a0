// Package shadow owns the shadow map pipelines. Each shadow-casting
// light renders the scene's opaque and cutout geometry into its layer of
// the shadow atlas, depth only, front-face culled with a depth bias to
// soften acne.
package shadow

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
	RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error
}

// Bindings carries the bind groups shadow draws need.
type Bindings struct {
	Samplers  encode.BindGroup
	Materials encode.BindGroup
	Textures  encode.BindGroup
}

// Passes holds the shadow map pipelines.
type Passes struct {
	Opaque pipeline.Pipeline
	Cutout pipeline.Pipeline
}

// NewPasses builds and registers the shadow map pipelines against the
// shadow atlas depth format.
//
// Parameters:
//   - reg: the pipeline registrar
//   - shaders: the built-in shader set
//   - layouts: the shared bind group layouts
//   - depthFormat: the shadow atlas depth format
//
// Returns:
//   - *Passes: the registered pipelines
//   - error: an error if any pipeline failed to compile
func NewPasses(reg Registrar, shaders *shader.ShaderSet, layouts *binding.Layouts, depthFormat wgpu.TextureFormat) (*Passes, error) {
	p := &Passes{
		Opaque: pipeline.NewPipeline(
			"shadow-opaque",
			pipeline.PipelineTypeRender,
			pipeline.ClassShadow,
			pipeline.WithVertexShader(shaders.DepthVertex),
			pipeline.WithCullMode(wgpu.CullModeFront),
			pipeline.WithDepthBias(2, 2.0),
		),
		Cutout: pipeline.NewPipeline(
			"shadow-cutout",
			pipeline.PipelineTypeRender,
			pipeline.ClassShadow,
			pipeline.WithVertexShader(shaders.DepthVertex),
			pipeline.WithFragmentShader(shaders.DepthCutoutFragment),
			pipeline.WithCullMode(wgpu.CullModeFront),
			pipeline.WithDepthBias(2, 2.0),
		),
	}

	desc := &pipeline.RenderDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Samplers,
			layouts.CulledObject,
			layouts.Material,
			layouts.Texture,
		},
		VertexLayouts: mesh.VertexBufferLayout(),
		DepthFormat:   depthFormat,
		Samples:       1,
	}
	for _, pl := range []pipeline.Pipeline{p.Opaque, p.Cutout} {
		if err := reg.RegisterRenderPipeline(pl, desc); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", pl.PipelineKey(), err)
		}
	}
	return p, nil
}

// Encode records one shadow view's opaque and cutout draws.
//
// Parameters:
//   - pass: the open shadow render pass
//   - b: the shadow bind groups
//   - opaque: the set culled against the light's frustum
//   - cutout: the cutout set culled against the light's frustum
func (p *Passes) Encode(pass encode.RenderPass, b Bindings, opaque, cutout *culling.CulledObjectSet) {
	encodeOne := func(pl pipeline.Pipeline, set *culling.CulledObjectSet) {
		if set.Empty() {
			return
		}
		pass.SetPipeline(pl)
		pass.SetBindGroup(0, b.Samplers, nil)
		pass.SetBindGroup(1, set.BindGroup, nil)
		pass.SetBindGroup(2, b.Materials, nil)
		pass.SetBindGroup(3, b.Textures, nil)
		set.Encode(pass)
	}
	encodeOne(p.Opaque, opaque)
	encodeOne(p.Cutout, cutout)
}

// Release frees the pipelines.
func (p *Passes) Release() {
	if p.Opaque != nil {
		p.Opaque.Release()
	}
	if p.Cutout != nil {
		p.Cutout.Release()
	}
}
