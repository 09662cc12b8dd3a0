package light

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// ShadowLayerNone marks a light with no shadow atlas layer. The shader
// treats lights carrying this value as fully lit and skips the atlas
// lookup entirely. Must match SHADOW_LAYER_NONE in forward.wgsl.
const ShadowLayerNone uint32 = 0xFFFFFFFF

// GPULightHeader prefixes the light storage buffer.
// Size: 16 bytes (std430 aligned).
type GPULightHeader struct {
	Count uint32    // offset 0: number of lights in the buffer (4 bytes)
	_     [3]uint32 // offset 4: padding to the array's 16-byte alignment (12 bytes)
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPULightHeader) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.Count)
	return buf
}

// GPUDirectionalLight is the GPU-aligned representation of a directional light.
// Matches the WGSL DirectionalLight struct layout exactly.
// Size: 96 bytes (std430 aligned, no padding required).
type GPUDirectionalLight struct {
	ViewProj    [16]float32 // offset  0: world-to-light-clip matrix for shadow lookups (64 bytes)
	Color       [3]float32  // offset 64: linear light color (12 bytes)
	Intensity   float32     // offset 76: radiance scale (4 bytes)
	Direction   [3]float32  // offset 80: world-space direction the light travels (12 bytes)
	ShadowLayer uint32      // offset 92: shadow atlas layer index (4 bytes)
}

// Size returns the size of the GPUDirectionalLight struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUDirectionalLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDirectionalLight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (g *GPUDirectionalLight) Marshal() []byte {
	buf := make([]byte, 96)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.ViewProj[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[68:72], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[72:76], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[76:80], math.Float32bits(g.Intensity))
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(g.Direction[0]))
	binary.LittleEndian.PutUint32(buf[84:88], math.Float32bits(g.Direction[1]))
	binary.LittleEndian.PutUint32(buf[88:92], math.Float32bits(g.Direction[2]))
	binary.LittleEndian.PutUint32(buf[92:96], g.ShadowLayer)
	return buf
}
