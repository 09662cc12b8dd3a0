package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Material flag bits, mirrored by the forward shader.
const (
	// GPUFlagCutout marks materials whose fragments discard below the cutoff.
	GPUFlagCutout uint32 = 1 << iota
	// GPUFlagBlend marks alpha-blended materials.
	GPUFlagBlend
	// GPUFlagUnlit bypasses shading.
	GPUFlagUnlit
)

// GPUMaterial is the GPU-aligned representation of a material.
// Matches the WGSL Material struct layout exactly.
// Size: 64 bytes (std430 aligned, no padding required).
type GPUMaterial struct {
	Albedo                 [4]float32 // offset  0: base color factor (16 bytes)
	Emissive               [3]float32 // offset 16: emitted radiance factor (12 bytes)
	Roughness              float32    // offset 28: perceptual roughness factor (4 bytes)
	Metallic               float32    // offset 32: metalness factor (4 bytes)
	Reflectance            float32    // offset 36: dielectric specular scale (4 bytes)
	AlphaCutout            float32    // offset 40: cutout discard threshold (4 bytes)
	Flags                  uint32     // offset 44: GPUFlag bits (4 bytes)
	AlbedoTex              uint32     // offset 48: albedo layer + 1, 0 = none (4 bytes)
	NormalTex              uint32     // offset 52: normal layer + 1, 0 = none (4 bytes)
	MetallicRoughnessTex   uint32     // offset 56: metallic-roughness layer + 1, 0 = none (4 bytes)
	EmissiveTex            uint32     // offset 60: emissive layer + 1, 0 = none (4 bytes)
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Albedo[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Albedo[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Albedo[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Albedo[3]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Emissive[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Emissive[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Emissive[2]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Reflectance))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.AlphaCutout))
	binary.LittleEndian.PutUint32(buf[44:48], g.Flags)
	binary.LittleEndian.PutUint32(buf[48:52], g.AlbedoTex)
	binary.LittleEndian.PutUint32(buf[52:56], g.NormalTex)
	binary.LittleEndian.PutUint32(buf[56:60], g.MetallicRoughnessTex)
	binary.LittleEndian.PutUint32(buf[60:64], g.EmissiveTex)
	return buf
}

// marshalMaterial converts a Material to its GPU form and serializes it.
func marshalMaterial(mat *Material) []byte {
	var flags uint32
	switch mat.Transparency {
	case TransparencyCutout:
		flags |= GPUFlagCutout
	case TransparencyBlend:
		flags |= GPUFlagBlend
	}
	if mat.Unlit {
		flags |= GPUFlagUnlit
	}
	g := GPUMaterial{
		Albedo:               mat.Albedo,
		Emissive:             mat.Emissive,
		Roughness:            mat.Roughness,
		Metallic:             mat.Metallic,
		Reflectance:          mat.Reflectance,
		AlphaCutout:          mat.AlphaCutout,
		Flags:                flags,
		AlbedoTex:            uint32(mat.AlbedoTexture),
		NormalTex:            uint32(mat.NormalTexture),
		MetallicRoughnessTex: uint32(mat.MetallicRoughnessTexture),
		EmissiveTex:          uint32(mat.EmissiveTexture),
	}
	return g.Marshal()
}
