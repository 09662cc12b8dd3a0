// Package tonemap blits the HDR shading buffer to the output surface,
// applying the ACES fitted curve and letting the sRGB surface format
// handle gamma.
package tonemap

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

// Pass holds the tonemap pipeline.
type Pass struct {
	Pipeline pipeline.Pipeline
}

// NewPass builds and registers the tonemap pipeline against the output
// surface format. The pass has no depth attachment and never multisamples.
//
// Parameters:
//   - reg: the pipeline registrar
//   - shaders: the built-in shader set
//   - layouts: the shared bind group layouts
//   - surfaceFormat: the output surface format
//
// Returns:
//   - *Pass: the registered pass
//   - error: an error if the pipeline failed to compile
func NewPass(reg Registrar, shaders *shader.ShaderSet, layouts *binding.Layouts, surfaceFormat wgpu.TextureFormat) (*Pass, error) {
	p := &Pass{
		Pipeline: pipeline.NewPipeline(
			"tonemap",
			pipeline.PipelineTypeRender,
			pipeline.ClassTonemap,
			pipeline.WithVertexShader(shaders.TonemapVertex),
			pipeline.WithFragmentShader(shaders.TonemapFragment),
		),
	}
	desc := &pipeline.RenderDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{
			layouts.Samplers,
			layouts.TonemapInput,
		},
		ColorFormats: []wgpu.TextureFormat{surfaceFormat},
		Samples:      1,
	}
	if err := reg.RegisterRenderPipeline(p.Pipeline, desc); err != nil {
		return nil, fmt.Errorf("failed to register tonemap: %w", err)
	}
	return p, nil
}

// Encode records the full-screen blit.
//
// Parameters:
//   - pass: the open tonemap render pass
//   - samplers: the sampler bind group
//   - hdrInput: the bind group exposing the resolved HDR buffer
func (p *Pass) Encode(pass encode.RenderPass, samplers, hdrInput encode.BindGroup) {
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, samplers, nil)
	pass.SetBindGroup(1, hdrInput, nil)
	pass.Draw(3, 1, 0, 0)
}

// Release frees the pipeline.
func (p *Pass) Release() {
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}
