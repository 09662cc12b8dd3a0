package shadow

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/culling"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
	"github.com/ember-gfx/ember-go/engine/renderer/shader"
)

type fakeRegistrar struct {
	registered []pipeline.Pipeline
	descs      []*pipeline.RenderDescriptor
}

func (f *fakeRegistrar) RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error {
	f.registered = append(f.registered, p)
	f.descs = append(f.descs, desc)
	return nil
}

func TestNewPassesBiasesAndFrontCulls(t *testing.T) {
	reg := &fakeRegistrar{}
	passes, err := NewPasses(reg, shader.NewShaderSet(), &binding.Layouts{}, wgpu.TextureFormatDepth32Float)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reg.registered) != 2 {
		t.Fatalf("expected 2 registered pipelines, got %d", len(reg.registered))
	}
	for _, p := range []pipeline.Pipeline{passes.Opaque, passes.Cutout} {
		if p.CullMode() != wgpu.CullModeFront {
			t.Errorf("expected %s to cull front faces, got %v", p.PipelineKey(), p.CullMode())
		}
		if p.DepthBias() != 2 || p.DepthBiasSlopeScale() != 2.0 {
			t.Errorf("expected %s depth bias 2/2.0, got %d/%f", p.PipelineKey(), p.DepthBias(), p.DepthBiasSlopeScale())
		}
		if !p.DepthWriteEnabled() {
			t.Errorf("expected %s to write depth", p.PipelineKey())
		}
	}
	for i, desc := range reg.descs {
		if len(desc.ColorFormats) != 0 {
			t.Errorf("expected shadow pipeline %d to be depth only, got %d color targets", i, len(desc.ColorFormats))
		}
		if desc.Samples != 1 {
			t.Errorf("expected shadow pipeline %d to be single sampled, got %d", i, desc.Samples)
		}
	}
}

func TestNewPassesOnlyCutoutHasFragmentStage(t *testing.T) {
	passes, err := NewPasses(&fakeRegistrar{}, shader.NewShaderSet(), &binding.Layouts{}, wgpu.TextureFormatDepth32Float)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if passes.Opaque.Shader(shader.ShaderTypeFragment) != nil {
		t.Error("expected no fragment stage on the opaque shadow pipeline")
	}
	if passes.Cutout.Shader(shader.ShaderTypeFragment) == nil {
		t.Error("expected an alpha-discard fragment stage on the cutout shadow pipeline")
	}
}

func TestEncodeSkipsEmptySets(t *testing.T) {
	passes, err := NewPasses(&fakeRegistrar{}, shader.NewShaderSet(), &binding.Layouts{}, wgpu.TextureFormatDepth32Float)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pass := encode.NewRecordingRenderPass("shadow-0")
	passes.Encode(pass, Bindings{}, &culling.CulledObjectSet{}, &culling.CulledObjectSet{})
	if len(pass.Commands) != 0 {
		t.Errorf("expected no commands for empty sets, got %d", len(pass.Commands))
	}
}
