// Package uniforms builds the per-frame camera uniform bind group consumed
// by the forward and skybox passes.
package uniforms

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/ember-gfx/ember-go/engine/camera"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUUniforms is the GPU-aligned representation of the per-frame uniforms.
// Matches the WGSL Uniforms struct layout exactly.
// Size: 288 bytes (std140 aligned, no padding required).
type GPUUniforms struct {
	View           [16]float32 // offset   0: world-to-view matrix (64 bytes)
	InvView        [16]float32 // offset  64: view-to-world matrix (64 bytes)
	ViewProj       [16]float32 // offset 128: world-to-clip matrix (64 bytes)
	InvViewProj    [16]float32 // offset 192: clip-to-world matrix (64 bytes)
	CameraPosition [4]float32  // offset 256: world-space camera position (16 bytes)
	Ambient        [4]float32  // offset 272: ambient radiance (16 bytes)
}

// Size returns the size of the GPUUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 288-byte buffer ready for GPU upload.
func (g *GPUUniforms) Marshal() []byte {
	buf := make([]byte, 288)
	offset := 0
	putMat := func(m [16]float32) {
		for i := 0; i < 16; i++ {
			binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(m[i]))
			offset += 4
		}
	}
	putVec := func(v [4]float32) {
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(v[i]))
			offset += 4
		}
	}
	putMat(g.View)
	putMat(g.InvView)
	putMat(g.ViewProj)
	putMat(g.InvViewProj)
	putVec(g.CameraPosition)
	putVec(g.Ambient)
	return buf
}

// FrameUniform is the uniform buffer and bind group for one frame. It is
// created after culling and released once the frame's command buffers are
// submitted.
type FrameUniform struct {
	// Buffer holds the marshaled GPUUniforms.
	Buffer encode.Buffer
	// BindGroup binds the buffer at group 5.
	BindGroup encode.BindGroup
}

// Release frees the frame's uniform resources.
func (f *FrameUniform) Release() {
	if f == nil {
		return
	}
	if f.BindGroup != nil {
		f.BindGroup.Release()
		f.BindGroup = nil
	}
	if f.Buffer != nil {
		f.Buffer.Release()
		f.Buffer = nil
	}
}

// CreateShaderUniform uploads the camera state for this frame and wraps it
// in a bind group.
//
// Parameters:
//   - alloc: the allocator to create GPU resources with
//   - layout: the uniform bind group layout
//   - cam: the camera to snapshot
//   - ambient: the ambient radiance, alpha unused
//
// Returns:
//   - *FrameUniform: the frame's uniform resources
//   - error: an error if creation failed
func CreateShaderUniform(alloc encode.Allocator, layout *wgpu.BindGroupLayout, cam camera.Camera, ambient mgl32.Vec4) (*FrameUniform, error) {
	view := cam.View()
	viewProj := cam.ViewProjection()
	position := cam.Position()

	g := GPUUniforms{
		View:        view,
		InvView:     view.Inv(),
		ViewProj:    viewProj,
		InvViewProj: viewProj.Inv(),
		CameraPosition: [4]float32{
			position.X(), position.Y(), position.Z(), 1,
		},
		Ambient: ambient,
	}

	buffer, err := alloc.CreateBufferInit("frame-uniforms", g.Marshal(), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("failed to upload frame uniforms: %w", err)
	}
	bindGroup, err := alloc.CreateBindGroup("frame-uniforms", layout, []encode.BindGroupEntry{
		{Binding: 0, Buffer: buffer},
	})
	if err != nil {
		buffer.Release()
		return nil, fmt.Errorf("failed to create frame uniform bind group: %w", err)
	}
	return &FrameUniform{Buffer: buffer, BindGroup: bindGroup}, nil
}
