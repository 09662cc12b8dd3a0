// Package encode abstracts the recording surface of a frame: buffer and
// bind group allocation, render pass encoding, and compute pass encoding.
// The render routine records frames exclusively through these interfaces,
// so frame construction can be driven and inspected without a GPU device.
package encode

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
)

// Buffer is a GPU buffer handle.
type Buffer interface {
	// Raw returns the underlying WebGPU buffer, nil on recording backends.
	//
	// Returns:
	//   - *wgpu.Buffer: the underlying buffer
	Raw() *wgpu.Buffer

	// Size returns the buffer size in bytes.
	//
	// Returns:
	//   - uint64: the size in bytes
	Size() uint64

	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Release frees the buffer.
	Release()
}

// BindGroup is a GPU bind group handle.
type BindGroup interface {
	// Raw returns the underlying WebGPU bind group, nil on recording backends.
	//
	// Returns:
	//   - *wgpu.BindGroup: the underlying bind group
	Raw() *wgpu.BindGroup

	// Label returns the debug label the bind group was created with.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Release frees the bind group.
	Release()
}

// BindGroupEntry is one resource binding inside a bind group. Exactly one
// of Buffer, TextureView, or Sampler is set.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	Offset      uint64
	Size        uint64
	TextureView *wgpu.TextureView
	Sampler     *wgpu.Sampler
}

// Allocator creates and writes GPU resources.
type Allocator interface {
	// CreateBuffer creates an uninitialized buffer.
	//
	// Parameters:
	//   - label: the debug label
	//   - size: the size in bytes
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if creation failed
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error)

	// CreateBufferInit creates a buffer and uploads the given contents.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the initial contents
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if creation failed
	CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error)

	// WriteBuffer schedules a write of data into buf at the given offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination offset in bytes
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write could not be scheduled
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateBindGroup creates a bind group against the given layout.
	//
	// Parameters:
	//   - label: the debug label
	//   - layout: the bind group layout
	//   - entries: the resource bindings
	//
	// Returns:
	//   - BindGroup: the created bind group
	//   - error: an error if creation failed
	CreateBindGroup(label string, layout *wgpu.BindGroupLayout, entries []BindGroupEntry) (BindGroup, error)
}

// RenderPass records draw commands into an open render pass.
type RenderPass interface {
	// SetPipeline binds a render pipeline for subsequent draws.
	//
	// Parameters:
	//   - p: the pipeline to bind
	SetPipeline(p pipeline.Pipeline)

	// SetBindGroup binds a bind group at the given group index.
	//
	// Parameters:
	//   - index: the group index
	//   - bg: the bind group to bind
	//   - offsets: dynamic offsets, or nil
	SetBindGroup(index uint32, bg BindGroup, offsets []uint32)

	// SetVertexBuffer binds a vertex buffer at the given slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - buf: the vertex buffer
	//   - offset: the offset in bytes
	SetVertexBuffer(slot uint32, buf Buffer, offset uint64)

	// SetIndexBuffer binds the index buffer.
	//
	// Parameters:
	//   - buf: the index buffer
	//   - format: the index format
	//   - offset: the offset in bytes
	SetIndexBuffer(buf Buffer, format wgpu.IndexFormat, offset uint64)

	// Draw issues a non-indexed draw.
	//
	// Parameters:
	//   - vertexCount: the number of vertices
	//   - instanceCount: the number of instances
	//   - firstVertex: the first vertex index
	//   - firstInstance: the first instance index
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed issues an indexed draw.
	//
	// Parameters:
	//   - indexCount: the number of indices
	//   - instanceCount: the number of instances
	//   - firstIndex: the first index
	//   - baseVertex: the value added to each index
	//   - firstInstance: the first instance index
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// DrawIndexedIndirect issues an indexed draw whose arguments are read
	// from a GPU buffer.
	//
	// Parameters:
	//   - buf: the buffer holding the 20-byte indirect arguments
	//   - offset: the offset of the arguments in bytes
	DrawIndexedIndirect(buf Buffer, offset uint64)

	// End closes the pass. No commands may be recorded after End.
	End()
}

// ComputePass records dispatch commands into an open compute pass.
type ComputePass interface {
	// SetPipeline binds a compute pipeline for subsequent dispatches.
	//
	// Parameters:
	//   - p: the pipeline to bind
	SetPipeline(p pipeline.Pipeline)

	// SetBindGroup binds a bind group at the given group index.
	//
	// Parameters:
	//   - index: the group index
	//   - bg: the bind group to bind
	//   - offsets: dynamic offsets, or nil
	SetBindGroup(index uint32, bg BindGroup, offsets []uint32)

	// DispatchWorkgroups dispatches the bound pipeline.
	//
	// Parameters:
	//   - x: the workgroup count along x
	//   - y: the workgroup count along y
	//   - z: the workgroup count along z
	DispatchWorkgroups(x, y, z uint32)

	// End closes the pass. No commands may be recorded after End.
	End()
}
