package culling

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
)

type cpuCuller struct {
	objectLayout *wgpu.BindGroupLayout
}

var _ Culler = &cpuCuller{}

// NewCPUCuller creates a culler that tests bounding spheres on the host
// and uploads shading data for survivors only. Each survivor becomes one
// DrawIndexed call whose first instance is the object's buffer slot.
//
// Parameters:
//   - layouts: the shared bind group layouts
//
// Returns:
//   - Culler: the CPU culler
func NewCPUCuller(layouts *binding.Layouts) Culler {
	return &cpuCuller{objectLayout: layouts.CulledObject}
}

// Cull filters the candidates against the camera frustum, uploads the
// survivors' object data, and returns the resulting draw list. Snapshot
// order is preserved so draws stay deterministic frame to frame.
//
// Parameters:
//   - args: the allocator, camera, and candidate list for this cull
//
// Returns:
//   - *CulledObjectSet: the per-camera draw data
//   - error: an error if buffer or bind group creation fails
func (c *cpuCuller) Cull(args Args) (*CulledObjectSet, error) {
	set := &CulledObjectSet{}

	var data []byte
	for _, cand := range args.Candidates {
		center, radius := worldSphere(cand)
		if !args.Camera.Frustum.ContainsSphere(center, radius) {
			continue
		}
		obj := newObjectData(args.Camera.View, args.Camera.ViewProj, cand.Transform, cand.MaterialIdx)
		data = append(data, obj.Marshal()...)
		set.Calls = append(set.Calls, DrawCall{
			Mesh: cand.Mesh,
			Slot: uint32(len(set.Calls)),
		})
	}

	// A bind group needs a non-empty buffer even when nothing survived.
	if len(data) == 0 {
		data = make([]byte, (&GPUObjectData{}).Size())
	}

	buf, err := args.Alloc.CreateBufferInit(
		fmt.Sprintf("%s-objects", args.ObjectLabel),
		data,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create object buffer: %w", err)
	}
	set.ObjectBuffer = buf

	bg, err := args.Alloc.CreateBindGroup(
		fmt.Sprintf("%s-object-group", args.ObjectLabel),
		c.objectLayout,
		[]encode.BindGroupEntry{{Binding: 0, Buffer: buf}},
	)
	if err != nil {
		set.Release()
		return nil, fmt.Errorf("failed to create object bind group: %w", err)
	}
	set.BindGroup = bg
	return set, nil
}
