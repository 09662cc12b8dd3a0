package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// RenderDescriptor carries the registration inputs a backend needs to
// compile a render Pipeline: the bind group layouts the shaders reference,
// the vertex buffer layouts, and the attachment formats of the pass the
// pipeline will run in. Fixed-function state lives on the Pipeline itself.
type RenderDescriptor struct {
	// BindGroupLayouts is the pipeline layout, indexed by group number.
	// Slots the shaders never reference may be filled with any layout.
	BindGroupLayouts []*wgpu.BindGroupLayout

	// VertexLayouts describes the vertex buffers, or nil for pipelines that
	// generate geometry from the vertex index.
	VertexLayouts []wgpu.VertexBufferLayout

	// ColorFormats lists the color attachment formats, empty for depth-only
	// pipelines.
	ColorFormats []wgpu.TextureFormat

	// DepthFormat is the depth attachment format, or wgpu.TextureFormatUndefined
	// for passes without a depth attachment.
	DepthFormat wgpu.TextureFormat

	// Samples is the MSAA sample count of the target pass.
	Samples uint32
}

// ComputeDescriptor carries the registration inputs a backend needs to
// compile a compute Pipeline.
type ComputeDescriptor struct {
	// BindGroupLayouts is the pipeline layout, indexed by group number.
	BindGroupLayouts []*wgpu.BindGroupLayout
}
