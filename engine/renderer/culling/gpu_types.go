package culling

import (
	"encoding/binary"
	"math"

	"github.com/ember-gfx/ember-go/common"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUObjectData is the GPU-aligned per-object shading data read by the
// vertex stages. Matrices are pre-multiplied for the pass's camera.
// Matches the WGSL ObjectData struct layout exactly.
// Size: 192 bytes (mat3x3 stored as three 16-byte columns).
type GPUObjectData struct {
	ModelView         [16]float32 // offset   0: model-to-view matrix (64 bytes)
	ModelViewProj     [16]float32 // offset  64: model-to-clip matrix (64 bytes)
	InvTransModelView [9]float32  // offset 128: inverse-transpose 3x3 of ModelView, column-major (48 bytes on GPU)
	MaterialIdx       uint32      // offset 176: index into the material array (4 bytes + 12 padding)
}

// Size returns the marshaled size of the GPUObjectData struct in bytes.
//
// Returns:
//   - int: the marshaled size in bytes.
func (g *GPUObjectData) Size() int {
	return 192
}

// Marshal serializes the GPUObjectData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 192-byte buffer ready for GPU upload.
func (g *GPUObjectData) Marshal() []byte {
	buf := make([]byte, 192)
	offset := 0
	put := func(f float32) {
		binary.LittleEndian.PutUint32(buf[offset:offset+4], math.Float32bits(f))
		offset += 4
	}
	for i := 0; i < 16; i++ {
		put(g.ModelView[i])
	}
	for i := 0; i < 16; i++ {
		put(g.ModelViewProj[i])
	}
	// mat3x3: each column is padded to vec4 alignment.
	for col := 0; col < 3; col++ {
		put(g.InvTransModelView[col*3])
		put(g.InvTransModelView[col*3+1])
		put(g.InvTransModelView[col*3+2])
		put(0)
	}
	binary.LittleEndian.PutUint32(buf[176:180], g.MaterialIdx)
	return buf
}

// newObjectData computes the per-object matrices for one camera.
func newObjectData(view, viewProj, transform mgl32.Mat4, materialIdx uint32) GPUObjectData {
	modelView := view.Mul4(transform)
	return GPUObjectData{
		ModelView:         modelView,
		ModelViewProj:     viewProj.Mul4(transform),
		InvTransModelView: modelView.Mat3().Inv().Transpose(),
		MaterialIdx:       materialIdx,
	}
}

// GPUCullObject is one candidate in the GPU culling input buffer: the
// shading data to emit on survival, the world-space bounding sphere to
// test, and the batch the object draws in.
// Matches the WGSL CullObject struct layout exactly.
// Size: 224 bytes.
type GPUCullObject struct {
	Object         GPUObjectData // offset   0: shading data (192 bytes)
	BoundingSphere [4]float32    // offset 192: xyz world center, w radius (16 bytes)
	BatchIdx       uint32        // offset 208: indirect batch index (4 bytes + 12 padding)
}

// Size returns the marshaled size of the GPUCullObject struct in bytes.
//
// Returns:
//   - int: the marshaled size in bytes.
func (g *GPUCullObject) Size() int {
	return 224
}

// Marshal serializes the GPUCullObject struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 224-byte buffer ready for GPU upload.
func (g *GPUCullObject) Marshal() []byte {
	buf := make([]byte, 224)
	copy(buf, g.Object.Marshal())
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[192+i*4:196+i*4], math.Float32bits(g.BoundingSphere[i]))
	}
	binary.LittleEndian.PutUint32(buf[208:212], g.BatchIdx)
	return buf
}

// GPUCullCamera is the GPU culling camera uniform: six frustum planes and
// the candidate count.
// Matches the WGSL CullCamera struct layout exactly.
// Size: 112 bytes.
type GPUCullCamera struct {
	Frustum     common.Frustum // offset  0: six planes, xyz normal w distance (96 bytes)
	ObjectCount uint32         // offset 96: candidates in the input buffer (4 bytes + 12 padding)
}

// Size returns the marshaled size of the GPUCullCamera struct in bytes.
//
// Returns:
//   - int: the marshaled size in bytes.
func (g *GPUCullCamera) Size() int {
	return 112
}

// Marshal serializes the GPUCullCamera struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 112-byte buffer ready for GPU upload.
func (g *GPUCullCamera) Marshal() []byte {
	buf := make([]byte, 112)
	for i, plane := range g.Frustum.Planes {
		base := i * 16
		binary.LittleEndian.PutUint32(buf[base:base+4], math.Float32bits(plane.Normal[0]))
		binary.LittleEndian.PutUint32(buf[base+4:base+8], math.Float32bits(plane.Normal[1]))
		binary.LittleEndian.PutUint32(buf[base+8:base+12], math.Float32bits(plane.Normal[2]))
		binary.LittleEndian.PutUint32(buf[base+12:base+16], math.Float32bits(plane.Distance))
	}
	binary.LittleEndian.PutUint32(buf[96:100], g.ObjectCount)
	return buf
}

// GPUIndirectDraw matches the wgpu DrawIndexedIndirect argument layout.
// Size: 20 bytes.
type GPUIndirectDraw struct {
	IndexCount    uint32 // offset  0: indices per instance (4 bytes)
	InstanceCount uint32 // offset  4: instances to draw, written by the cull shader (4 bytes)
	FirstIndex    uint32 // offset  8: first index (4 bytes)
	BaseVertex    int32  // offset 12: value added to each index (4 bytes)
	FirstInstance uint32 // offset 16: base slot in the culled object buffer (4 bytes)
}

// Size returns the marshaled size of the GPUIndirectDraw struct in bytes.
//
// Returns:
//   - int: the marshaled size in bytes.
func (g *GPUIndirectDraw) Size() int {
	return 20
}

// Marshal serializes the GPUIndirectDraw struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (g *GPUIndirectDraw) Marshal() []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], g.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.FirstIndex)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.BaseVertex))
	binary.LittleEndian.PutUint32(buf[16:20], g.FirstInstance)
	return buf
}
