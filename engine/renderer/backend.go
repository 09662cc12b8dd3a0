package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
)

// RoutineBackend is the device surface the render routine records frames
// through. The WebGPU backend talks to a real device; the recording
// backend captures the frame structure for inspection.
type RoutineBackend interface {
	// Allocator returns the backend's resource allocator.
	//
	// Returns:
	//   - encode.Allocator: the allocator
	Allocator() encode.Allocator

	// Layouts returns the shared bind group layouts.
	//
	// Returns:
	//   - *binding.Layouts: the layout set
	Layouts() *binding.Layouts

	// Samplers returns the immutable sampler bind group.
	//
	// Returns:
	//   - encode.BindGroup: the group bound at index 0 in every draw pass
	Samplers() encode.BindGroup

	// RegisterRenderPipeline compiles a render pipeline and attaches the
	// device handle to it.
	//
	// Parameters:
	//   - p: the pipeline to compile
	//   - desc: the layout and target description
	//
	// Returns:
	//   - error: an error if compilation failed
	RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error

	// RegisterComputePipeline compiles a compute pipeline and attaches the
	// device handle to it.
	//
	// Parameters:
	//   - p: the pipeline to compile
	//   - desc: the layout description
	//
	// Returns:
	//   - error: an error if compilation failed
	RegisterComputePipeline(p pipeline.Pipeline, desc *pipeline.ComputeDescriptor) error

	// CreateRenderTextures allocates the internal targets for one output
	// size and sample count.
	//
	// Parameters:
	//   - width: the output width in pixels
	//   - height: the output height in pixels
	//   - samples: the MSAA sample count, 1 to disable
	//
	// Returns:
	//   - *RenderTextures: the allocated targets
	//   - error: an error if allocation failed
	CreateRenderTextures(width, height, samples uint32) (*RenderTextures, error)

	// BeginFrame opens a command encoder for the frame. Must be called
	// before any pass is begun and balanced by Finish.
	//
	// Parameters:
	//   - label: the encoder debug label
	//
	// Returns:
	//   - error: an error if the encoder could not be created
	BeginFrame(label string) error

	// BeginComputePass opens a compute pass on the frame encoder.
	//
	// Parameters:
	//   - label: the pass debug label
	//
	// Returns:
	//   - encode.ComputePass: the open pass
	BeginComputePass(label string) encode.ComputePass

	// BeginShadowPass opens a depth-only pass targeting one shadow atlas
	// layer, cleared to maximum depth.
	//
	// Parameters:
	//   - label: the pass debug label
	//   - view: the atlas layer view to render into
	//
	// Returns:
	//   - encode.RenderPass: the open pass
	BeginShadowPass(label string, view *wgpu.TextureView) encode.RenderPass

	// BeginPrimaryPass opens the HDR pass over the render textures, with
	// color cleared to the given value and depth cleared to the far plane.
	//
	// Parameters:
	//   - label: the pass debug label
	//   - rt: the render textures to target
	//   - clear: the color the HDR buffer is cleared to
	//
	// Returns:
	//   - encode.RenderPass: the open pass
	BeginPrimaryPass(label string, rt *RenderTextures, clear wgpu.Color) encode.RenderPass

	// BeginTonemapPass opens the output pass over the surface texture.
	//
	// Parameters:
	//   - label: the pass debug label
	//   - target: the surface view to render into
	//
	// Returns:
	//   - encode.RenderPass: the open pass
	BeginTonemapPass(label string, target *wgpu.TextureView) encode.RenderPass

	// Finish closes the frame encoder and returns its command buffer.
	//
	// Returns:
	//   - *wgpu.CommandBuffer: the recorded commands, nil on recording backends
	//   - error: an error if encoding failed
	Finish() (*wgpu.CommandBuffer, error)

	// Release frees backend-owned resources.
	Release()
}
