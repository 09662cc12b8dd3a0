// Package skybox draws the background cube behind all shaded geometry.
// The pipeline emits a full-screen triangle at maximum depth and tests
// LessEqual without writing, so it fills exactly the pixels the prepass
// left untouched.
package skybox

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
	"github.com/ember-gfx/ember-go/engine/renderer/shader"
)

// Registrar compiles pipelines against the device. The render backend
// satisfies this.
type Registrar interface {
	RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error
}

// Pass holds the skybox pipeline.
type Pass struct {
	Pipeline pipeline.Pipeline
}

// NewPass builds and registers the skybox pipeline.
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
//   - *Pass: the registered pass
//   - error: an error if the pipeline failed to compile
func NewPass(reg Registrar, shaders *shader.ShaderSet, layouts *binding.Layouts, hdrFormat, depthFormat wgpu.TextureFormat, samples uint32) (*Pass, error) {
	p := &Pass{
		Pipeline: pipeline.NewPipeline(
			"skybox",
			pipeline.PipelineTypeRender,
			pipeline.ClassSkybox,
			pipeline.WithVertexShader(shaders.SkyboxVertex),
			pipeline.WithFragmentShader(shaders.SkyboxFragment),
			pipeline.WithDepthCompare(wgpu.CompareFunctionLessEqual),
			pipeline.WithDepthWriteEnabled(false),
		),
	}
	desc := &pipeline.RenderDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Samplers,
			layouts.Skybox,
			layouts.Uniform,
		},
		ColorFormats: []wgpu.TextureFormat{hdrFormat},
		DepthFormat:  depthFormat,
		Samples:      samples,
	}
	if err := reg.RegisterRenderPipeline(p.Pipeline, desc); err != nil {
		return nil, fmt.Errorf("failed to register skybox: %w", err)
	}
	return p, nil
}

// Encode records the background draw. Callers skip this entirely when no
// background cube has been set.
//
// Parameters:
//   - pass: the open primary render pass
//   - samplers: the sampler bind group
//   - background: the background cube bind group
//   - uniforms: the frame uniform bind group
func (p *Pass) Encode(pass encode.RenderPass, samplers, background, uniforms encode.BindGroup) {
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, samplers, nil)
	pass.SetBindGroup(1, background, nil)
	pass.SetBindGroup(2, uniforms, nil)
	pass.Draw(3, 1, 0, 0)
}

// Release frees the pipeline.
func (p *Pass) Release() {
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}
