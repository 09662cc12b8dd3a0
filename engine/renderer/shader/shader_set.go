package shader

import _ "embed"

// depthSource is the WGSL source for the depth-only vertex stage and the
// alpha-discard fragment stage used by cutout prepass and shadow rendering.
//
//go:embed assets/depth.wgsl
var depthSource string

// forwardSource is the WGSL source for the forward shading stages.
//
//go:embed assets/forward.wgsl
var forwardSource string

// skyboxSource is the WGSL source for the background cube stages.
//
//go:embed assets/skybox.wgsl
var skyboxSource string

// tonemapSource is the WGSL source for the tonemapping blit stages.
//
//go:embed assets/tonemap.wgsl
var tonemapSource string

// cullSource is the WGSL source for the GPU visibility pass.
//
//go:embed assets/cull.wgsl
var cullSource string

// ShaderSet holds every shader entry point the render routine uses, loaded
// once at routine construction from the embedded WGSL assets.
type ShaderSet struct {
	// DepthVertex transforms vertices for depth-only rendering (prepass and shadow).
	DepthVertex Shader
	// DepthCutoutFragment discards fragments below the material's alpha cutoff.
	DepthCutoutFragment Shader

	// ForwardVertex transforms and forwards shading inputs.
	ForwardVertex Shader
	// ForwardFragment performs the surface shading.
	ForwardFragment Shader

	// SkyboxVertex emits a full-screen triangle at maximum depth.
	SkyboxVertex Shader
	// SkyboxFragment samples the background cube along the view ray.
	SkyboxFragment Shader

	// TonemapVertex emits a full-screen triangle.
	TonemapVertex Shader
	// TonemapFragment maps the linear HDR buffer to the output surface.
	TonemapFragment Shader

	// Cull tests object bounds against a frustum and emits draw data.
	Cull Shader
}

// NewShaderSet builds the full shader set from the embedded sources.
//
// Returns:
//   - *ShaderSet: the shader set
func NewShaderSet() *ShaderSet {
	return &ShaderSet{
		DepthVertex:         NewShader("depth-vs", depthSource, ShaderTypeVertex),
		DepthCutoutFragment: NewShader("depth-cutout-fs", depthSource, ShaderTypeFragment),
		ForwardVertex:       NewShader("forward-vs", forwardSource, ShaderTypeVertex),
		ForwardFragment:     NewShader("forward-fs", forwardSource, ShaderTypeFragment),
		SkyboxVertex:        NewShader("skybox-vs", skyboxSource, ShaderTypeVertex),
		SkyboxFragment:      NewShader("skybox-fs", skyboxSource, ShaderTypeFragment),
		TonemapVertex:       NewShader("tonemap-vs", tonemapSource, ShaderTypeVertex),
		TonemapFragment:     NewShader("tonemap-fs", tonemapSource, ShaderTypeFragment),
		Cull:                NewShader("cull-cs", cullSource, ShaderTypeCompute),
	}
}
