package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/shader"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("test", PipelineTypeRender, ClassForward)

	if p.Type() != PipelineTypeRender {
		t.Errorf("expected render pipeline type, got %v", p.Type())
	}
	if p.PipelineKey() != "test" {
		t.Errorf("expected key %q, got %q", "test", p.PipelineKey())
	}
	if p.Class() != ClassForward {
		t.Errorf("expected forward class, got %v", p.Class())
	}
	if p.DepthCompare() != wgpu.CompareFunctionLess {
		t.Errorf("expected default depth compare Less, got %v", p.DepthCompare())
	}
	if !p.DepthWriteEnabled() {
		t.Error("expected depth writes enabled by default")
	}
	if p.DepthBias() != 0 || p.DepthBiasSlopeScale() != 0 {
		t.Errorf("expected zero depth bias by default, got %d/%f", p.DepthBias(), p.DepthBiasSlopeScale())
	}
	if p.BlendEnabled() {
		t.Error("expected blending disabled by default")
	}
	if p.CullMode() != wgpu.CullModeNone {
		t.Errorf("expected default cull mode None, got %v", p.CullMode())
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList {
		t.Errorf("expected default topology TriangleList, got %v", p.Topology())
	}
	if p.FrontFace() != wgpu.FrontFaceCCW {
		t.Errorf("expected default front face CCW, got %v", p.FrontFace())
	}
	if p.WriteMask() != wgpu.ColorWriteMaskAll {
		t.Errorf("expected default write mask All, got %v", p.WriteMask())
	}
}

func TestNewPipelineDefaultBlendStateIsStandardAlpha(t *testing.T) {
	p := NewPipeline("blend", PipelineTypeRender, ClassForward)

	bs := p.BlendState()
	if bs == nil {
		t.Fatal("expected a default blend state")
	}
	if bs.Color.SrcFactor != wgpu.BlendFactorSrcAlpha {
		t.Errorf("expected color src factor SrcAlpha, got %v", bs.Color.SrcFactor)
	}
	if bs.Color.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Errorf("expected color dst factor OneMinusSrcAlpha, got %v", bs.Color.DstFactor)
	}
	if bs.Alpha.SrcFactor != wgpu.BlendFactorOne {
		t.Errorf("expected alpha src factor One, got %v", bs.Alpha.SrcFactor)
	}
	if bs.Alpha.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Errorf("expected alpha dst factor OneMinusSrcAlpha, got %v", bs.Alpha.DstFactor)
	}
}

func TestNewPipelineOptionsOverrideDefaults(t *testing.T) {
	p := NewPipeline("shadow-opaque", PipelineTypeRender, ClassShadow,
		WithDepthCompare(wgpu.CompareFunctionLessEqual),
		WithDepthWriteEnabled(false),
		WithDepthBias(2, 2.0),
		WithBlendEnabled(true),
		WithCullMode(wgpu.CullModeFront),
		WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
	)

	if p.DepthCompare() != wgpu.CompareFunctionLessEqual {
		t.Errorf("expected depth compare LessEqual, got %v", p.DepthCompare())
	}
	if p.DepthWriteEnabled() {
		t.Error("expected depth writes disabled")
	}
	if p.DepthBias() != 2 {
		t.Errorf("expected depth bias 2, got %d", p.DepthBias())
	}
	if p.DepthBiasSlopeScale() != 2.0 {
		t.Errorf("expected depth bias slope scale 2.0, got %f", p.DepthBiasSlopeScale())
	}
	if !p.BlendEnabled() {
		t.Error("expected blending enabled")
	}
	if p.CullMode() != wgpu.CullModeFront {
		t.Errorf("expected cull mode Front, got %v", p.CullMode())
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleStrip {
		t.Errorf("expected topology TriangleStrip, got %v", p.Topology())
	}
	if p.FrontFace() != wgpu.FrontFaceCW {
		t.Errorf("expected front face CW, got %v", p.FrontFace())
	}
	if p.WriteMask() != wgpu.ColorWriteMaskRed {
		t.Errorf("expected write mask Red, got %v", p.WriteMask())
	}
}

func TestShaderLookupByStage(t *testing.T) {
	vs := shader.NewShader("vs", "src", shader.ShaderTypeVertex)
	fs := shader.NewShader("fs", "src", shader.ShaderTypeFragment)

	p := NewPipeline("lookup", PipelineTypeRender, ClassForward,
		WithVertexShader(vs),
		WithFragmentShader(fs),
	)

	if p.Shader(shader.ShaderTypeVertex) != vs {
		t.Error("expected the vertex shader back")
	}
	if p.Shader(shader.ShaderTypeFragment) != fs {
		t.Error("expected the fragment shader back")
	}
	if p.Shader(shader.ShaderTypeCompute) != nil {
		t.Error("expected nil for an unset compute shader")
	}
}

func TestPipelineReturnsNilBeforeRegistration(t *testing.T) {
	render := NewPipeline("render", PipelineTypeRender, ClassForward)
	if rp, ok := render.Pipeline().(*wgpu.RenderPipeline); !ok || rp != nil {
		t.Errorf("expected a nil *wgpu.RenderPipeline, got %v", render.Pipeline())
	}

	compute := NewPipeline("compute", PipelineTypeCompute, ClassCull)
	if cp, ok := compute.Pipeline().(*wgpu.ComputePipeline); !ok || cp != nil {
		t.Errorf("expected a nil *wgpu.ComputePipeline, got %v", compute.Pipeline())
	}
}

func TestClassString(t *testing.T) {
	cases := []struct {
		class Class
		want  string
	}{
		{ClassDepthPrepass, "depth-prepass"},
		{ClassShadow, "shadow"},
		{ClassForward, "forward"},
		{ClassSkybox, "skybox"},
		{ClassTonemap, "tonemap"},
		{ClassCull, "cull"},
		{Class(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.class.String(); got != c.want {
			t.Errorf("expected class string %q, got %q", c.want, got)
		}
	}
}
