package culling

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
)

// cullWorkgroupSize matches the @workgroup_size attribute in cull.wgsl.
const cullWorkgroupSize = 64

type gpuCuller struct {
	objectLayout *wgpu.BindGroupLayout
	cullLayout   *wgpu.BindGroupLayout
	cullPipeline pipeline.Pipeline
}

var _ Culler = &gpuCuller{}

// NewGPUCuller creates a culler that uploads every candidate and runs the
// cull compute shader, which compacts survivors into the object buffer
// and bumps per-mesh indirect instance counts with atomics. Requires the
// indirect-first-instance device feature.
//
// Parameters:
//   - layouts: the shared bind group layouts
//   - cullPipeline: the registered cull compute pipeline
//
// Returns:
//   - Culler: the GPU culler
func NewGPUCuller(layouts *binding.Layouts, cullPipeline pipeline.Pipeline) Culler {
	return &gpuCuller{
		objectLayout: layouts.CulledObject,
		cullLayout:   layouts.Cull,
		cullPipeline: cullPipeline,
	}
}

// Cull uploads the candidate list, dispatches the cull shader on the
// frame's compute pass, and returns the indirect batches the shader
// populates. Candidates sharing a mesh collapse into one batch, in order
// of first appearance.
//
// Parameters:
//   - args: the allocator, compute pass, camera, and candidate list
//
// Returns:
//   - *CulledObjectSet: the per-camera draw data
//   - error: an error if buffer or bind group creation fails
func (c *gpuCuller) Cull(args Args) (*CulledObjectSet, error) {
	if args.ComputePass == nil {
		return nil, errors.New("gpu culling requires an open compute pass")
	}

	set := &CulledObjectSet{}
	count := len(args.Candidates)

	// Group candidates into per-mesh batches and prefix-sum the batch
	// sizes so each batch owns a contiguous slot range in the output
	// object buffer.
	batchIdx := make(map[mesh.Handle]uint32)
	var meshes []*mesh.GPUMesh
	var sizes []uint32
	candidateBatch := make([]uint32, count)
	for i, cand := range args.Candidates {
		idx, ok := batchIdx[cand.MeshHandle]
		if !ok {
			idx = uint32(len(meshes))
			batchIdx[cand.MeshHandle] = idx
			meshes = append(meshes, cand.Mesh)
			sizes = append(sizes, 0)
		}
		sizes[idx]++
		candidateBatch[i] = idx
	}
	bases := make([]uint32, len(sizes))
	var total uint32
	for i, size := range sizes {
		bases[i] = total
		total += size
	}

	var inputData []byte
	for i, cand := range args.Candidates {
		center, radius := worldSphere(cand)
		cullObj := GPUCullObject{
			Object:         newObjectData(args.Camera.View, args.Camera.ViewProj, cand.Transform, cand.MaterialIdx),
			BoundingSphere: [4]float32{center.X(), center.Y(), center.Z(), radius},
			BatchIdx:       candidateBatch[i],
		}
		inputData = append(inputData, cullObj.Marshal()...)
	}
	if len(inputData) == 0 {
		inputData = make([]byte, (&GPUCullObject{}).Size())
	}
	inputBuf, err := args.Alloc.CreateBufferInit(
		fmt.Sprintf("%s-cull-input", args.ObjectLabel),
		inputData,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cull input buffer: %w", err)
	}
	set.scratch = append(set.scratch, inputBuf)

	camData := GPUCullCamera{
		Frustum:     args.Camera.Frustum,
		ObjectCount: uint32(count),
	}
	camBuf, err := args.Alloc.CreateBufferInit(
		fmt.Sprintf("%s-cull-camera", args.ObjectLabel),
		camData.Marshal(),
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst,
	)
	if err != nil {
		set.Release()
		return nil, fmt.Errorf("failed to create cull camera buffer: %w", err)
	}
	set.scratch = append(set.scratch, camBuf)

	objSize := uint64(max(count, 1)) * uint64((&GPUObjectData{}).Size())
	objBuf, err := args.Alloc.CreateBuffer(
		fmt.Sprintf("%s-objects", args.ObjectLabel),
		objSize,
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst,
	)
	if err != nil {
		set.Release()
		return nil, fmt.Errorf("failed to create object buffer: %w", err)
	}
	set.ObjectBuffer = objBuf

	var indirectData []byte
	for i, m := range meshes {
		draw := GPUIndirectDraw{
			IndexCount:    m.IndexCount,
			InstanceCount: 0,
			FirstInstance: bases[i],
		}
		indirectData = append(indirectData, draw.Marshal()...)
	}
	if len(indirectData) == 0 {
		indirectData = make([]byte, (&GPUIndirectDraw{}).Size())
	}
	indirectBuf, err := args.Alloc.CreateBufferInit(
		fmt.Sprintf("%s-indirect", args.ObjectLabel),
		indirectData,
		wgpu.BufferUsageIndirect|wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst,
	)
	if err != nil {
		set.Release()
		return nil, fmt.Errorf("failed to create indirect buffer: %w", err)
	}
	set.IndirectBuffer = indirectBuf

	cullBG, err := args.Alloc.CreateBindGroup(
		fmt.Sprintf("%s-cull-group", args.ObjectLabel),
		c.cullLayout,
		[]encode.BindGroupEntry{
			{Binding: 0, Buffer: camBuf},
			{Binding: 1, Buffer: inputBuf},
			{Binding: 2, Buffer: objBuf},
			{Binding: 3, Buffer: indirectBuf},
		},
	)
	if err != nil {
		set.Release()
		return nil, fmt.Errorf("failed to create cull bind group: %w", err)
	}
	set.cullBG = cullBG

	objBG, err := args.Alloc.CreateBindGroup(
		fmt.Sprintf("%s-object-group", args.ObjectLabel),
		c.objectLayout,
		[]encode.BindGroupEntry{{Binding: 0, Buffer: objBuf}},
	)
	if err != nil {
		set.Release()
		return nil, fmt.Errorf("failed to create object bind group: %w", err)
	}
	set.BindGroup = objBG

	if count > 0 {
		args.ComputePass.SetPipeline(c.cullPipeline)
		args.ComputePass.SetBindGroup(0, cullBG, nil)
		groups := (uint32(count) + cullWorkgroupSize - 1) / cullWorkgroupSize
		args.ComputePass.DispatchWorkgroups(groups, 1, 1)

		for i, m := range meshes {
			set.Batches = append(set.Batches, IndirectBatch{
				Mesh:   m,
				Offset: uint64(i) * uint64((&GPUIndirectDraw{}).Size()),
			})
		}
	}
	return set, nil
}
