// Package culling filters a frame's object snapshot against a camera
// frustum and produces the per-camera object buffer and draw list the
// render passes consume. Two implementations exist: a CPU culler that
// tests bounding spheres on the host and emits one draw per survivor,
// and a GPU culler that uploads every candidate and runs a compute
// shader which compacts survivors into indirect draw batches.
package culling

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/common"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/go-gl/mathgl/mgl32"
)

// Candidate is one object entering culling, with every manager lookup
// already resolved so the culler never touches manager state.
type Candidate struct {
	MeshHandle     mesh.Handle
	Mesh           *mesh.GPUMesh
	MaterialIdx    uint32
	Transform      mgl32.Mat4
	BoundingRadius float32
}

// Camera is the view a cull runs against. ViewProj must be the matrix
// the Frustum was extracted from.
type Camera struct {
	View     mgl32.Mat4
	ViewProj mgl32.Mat4
	Frustum  common.Frustum
}

// Args carries the per-cull inputs. ComputePass is only consulted by the
// GPU culler and may be nil in CPU mode.
type Args struct {
	Alloc       encode.Allocator
	ComputePass encode.ComputePass
	Camera      Camera
	ObjectLabel string
	Candidates  []Candidate
}

// Culler turns a candidate list into a CulledObjectSet for one camera.
type Culler interface {
	// Cull builds the object buffer, its bind group, and the draw list for
	// the given camera. The returned set is frame-scoped and must be
	// released after the frame's command buffers are submitted.
	//
	// Parameters:
	//   - args: the allocator, camera, and candidate list for this cull
	//
	// Returns:
	//   - *CulledObjectSet: the per-camera draw data
	//   - error: an error if buffer or bind group creation fails
	Cull(args Args) (*CulledObjectSet, error)
}

// DrawCall is one non-indirect draw in a CPU-culled set.
type DrawCall struct {
	Mesh *mesh.GPUMesh
	// Slot is the object's index in the culled object buffer, passed as
	// the draw's first instance so the vertex shader can recover it.
	Slot uint32
}

// IndirectBatch is one mesh's DrawIndexedIndirect slot in a GPU-culled set.
type IndirectBatch struct {
	Mesh *mesh.GPUMesh
	// Offset is the byte offset of the batch's arguments in IndirectBuffer.
	Offset uint64
}

// CulledObjectSet is the output of one cull: the object storage buffer
// bound at group 1 during draws, plus either a host-side draw list (CPU
// mode) or an indirect buffer with per-mesh batches (GPU mode).
type CulledObjectSet struct {
	// ObjectBuffer holds GPUObjectData entries for surviving objects. In
	// GPU mode it is compute-written and its contents are not host-visible.
	ObjectBuffer encode.Buffer

	// BindGroup binds ObjectBuffer for the vertex stages.
	BindGroup encode.BindGroup

	// Calls is the CPU-mode draw list, in snapshot order. Empty in GPU mode.
	Calls []DrawCall

	// IndirectBuffer and Batches drive GPU-mode draws. Nil and empty in
	// CPU mode.
	IndirectBuffer encode.Buffer
	Batches        []IndirectBatch

	// scratch holds GPU-mode cull inputs released with the set.
	scratch []encode.Buffer
	cullBG  encode.BindGroup
}

// Empty reports whether the set contains no draws at all.
//
// Returns:
//   - bool: true when neither draw calls nor indirect batches exist.
func (s *CulledObjectSet) Empty() bool {
	return len(s.Calls) == 0 && len(s.Batches) == 0
}

// Encode records the set's draws into a render pass. The pipeline and
// all bind groups, including this set's BindGroup at group 1, must
// already be set on the pass.
//
// Parameters:
//   - pass: the render pass to record into
func (s *CulledObjectSet) Encode(pass encode.RenderPass) {
	for _, call := range s.Calls {
		pass.SetVertexBuffer(0, call.Mesh.VertexBuffer, 0)
		pass.SetIndexBuffer(call.Mesh.IndexBuffer, wgpu.IndexFormatUint32, 0)
		pass.DrawIndexed(call.Mesh.IndexCount, 1, 0, 0, call.Slot)
	}
	for _, batch := range s.Batches {
		pass.SetVertexBuffer(0, batch.Mesh.VertexBuffer, 0)
		pass.SetIndexBuffer(batch.Mesh.IndexBuffer, wgpu.IndexFormatUint32, 0)
		pass.DrawIndexedIndirect(s.IndirectBuffer, batch.Offset)
	}
}

// Release frees the set's frame-scoped GPU resources.
func (s *CulledObjectSet) Release() {
	if s.BindGroup != nil {
		s.BindGroup.Release()
		s.BindGroup = nil
	}
	if s.ObjectBuffer != nil {
		s.ObjectBuffer.Release()
		s.ObjectBuffer = nil
	}
	if s.IndirectBuffer != nil {
		s.IndirectBuffer.Release()
		s.IndirectBuffer = nil
	}
	if s.cullBG != nil {
		s.cullBG.Release()
		s.cullBG = nil
	}
	for _, buf := range s.scratch {
		buf.Release()
	}
	s.scratch = nil
	s.Calls = nil
	s.Batches = nil
}

// worldSphere returns the candidate's bounding sphere in world space.
func worldSphere(c Candidate) (mgl32.Vec3, float32) {
	center := c.Transform.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	return center, c.BoundingRadius * common.MaxScale(c.Transform)
}
