package material

import (
	"fmt"
	"sync"

	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/texture"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Handle identifies a material registered with a Manager. The zero value
// resolves to the built-in default material.
type Handle uint32

// TransparencyClass partitions materials by how their alpha is handled.
// The render routine culls and draws each class separately.
type TransparencyClass int

const (
	// TransparencyOpaque ignores alpha entirely.
	TransparencyOpaque TransparencyClass = iota

	// TransparencyCutout discards fragments below the alpha cutoff.
	TransparencyCutout

	// TransparencyBlend alpha-blends fragments back to front.
	TransparencyBlend
)

// String returns the class name used in pipeline keys and logs.
func (t TransparencyClass) String() string {
	switch t {
	case TransparencyOpaque:
		return "opaque"
	case TransparencyCutout:
		return "cutout"
	case TransparencyBlend:
		return "blend"
	default:
		return "unknown"
	}
}

// Material holds the surface parameters for physically based shading.
type Material struct {
	// Albedo is the base color factor, multiplied with the albedo texture.
	Albedo mgl32.Vec4
	// Emissive is the emitted radiance factor.
	Emissive mgl32.Vec3
	// Roughness is the perceptual roughness factor in [0, 1].
	Roughness float32
	// Metallic is the metalness factor in [0, 1].
	Metallic float32
	// Reflectance scales dielectric specular reflectance, 0.5 is typical.
	Reflectance float32
	// AlphaCutout is the discard threshold for cutout materials.
	AlphaCutout float32
	// Transparency selects how alpha is handled.
	Transparency TransparencyClass
	// Unlit bypasses shading and outputs albedo plus emissive directly.
	Unlit bool

	// Texture handles, texture.HandleNone for parameter-only surfaces.

	AlbedoTexture            texture.Handle
	NormalTexture            texture.Handle
	MetallicRoughnessTexture texture.Handle
	EmissiveTexture          texture.Handle
}

// DefaultMaterial returns the material used when an object references an
// unknown handle: matte mid-gray, fully opaque.
//
// Returns:
//   - Material: the default material
func DefaultMaterial() Material {
	return Material{
		Albedo:      mgl32.Vec4{0.5, 0.5, 0.5, 1},
		Roughness:   1,
		Reflectance: 0.5,
	}
}

// managerImpl is the implementation of the Manager interface.
type managerImpl struct {
	mu *sync.RWMutex

	nextHandle Handle
	order      []Handle
	materials  map[Handle]Material
	dirty      bool

	buffer    encode.Buffer
	bindGroup encode.BindGroup
}

// Manager owns the material set and its GPU mirror: a storage buffer of
// GPUMaterial entries, indexed by the per-object material index. Slot zero
// always holds the default material, so unknown handles shade sensibly.
type Manager interface {
	// Add registers a material.
	//
	// Parameters:
	//   - mat: the material parameters
	//
	// Returns:
	//   - Handle: the handle identifying the material
	Add(mat Material) Handle

	// Update replaces a material's parameters. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the material handle
	//   - mat: the new parameters
	Update(h Handle, mat Material)

	// Remove unregisters a material. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the material handle
	Remove(h Handle)

	// Material returns the parameters for a handle, falling back to the
	// default material for unknown handles.
	//
	// Parameters:
	//   - h: the material handle
	//
	// Returns:
	//   - Material: the material parameters
	Material(h Handle) Material

	// Index returns the GPU array index for a handle, 0 for unknown handles.
	// Indices are only stable between Ready calls.
	//
	// Parameters:
	//   - h: the material handle
	//
	// Returns:
	//   - uint32: the index into the GPU material array
	Index(h Handle) uint32

	// Ready rebuilds the GPU material buffer and bind group if any material
	// changed since the previous call.
	//
	// Parameters:
	//   - alloc: the allocator to create GPU resources with
	//   - layout: the material bind group layout
	//
	// Returns:
	//   - error: an error if the rebuild failed
	Ready(alloc encode.Allocator, layout *wgpu.BindGroupLayout) error

	// BindGroup returns the material bind group built by the last Ready call.
	//
	// Returns:
	//   - encode.BindGroup: the bind group, nil before the first Ready
	BindGroup() encode.BindGroup

	// Release frees the GPU material buffer and bind group.
	Release()
}

var _ Manager = &managerImpl{}

// NewManager creates a material Manager holding only the default material.
//
// Returns:
//   - Manager: the manager
func NewManager() Manager {
	return &managerImpl{
		mu:         &sync.RWMutex{},
		nextHandle: 1,
		materials:  make(map[Handle]Material),
		dirty:      true,
	}
}

func (m *managerImpl) Add(mat Material) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.nextHandle
	m.nextHandle++
	m.materials[h] = mat
	m.order = append(m.order, h)
	m.dirty = true
	return h
}

func (m *managerImpl) Update(h Handle, mat Material) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[h]; !ok {
		return
	}
	m.materials[h] = mat
	m.dirty = true
}

func (m *managerImpl) Remove(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[h]; !ok {
		return
	}
	delete(m.materials, h)
	for i, existing := range m.order {
		if existing == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.dirty = true
}

func (m *managerImpl) Material(h Handle) Material {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mat, ok := m.materials[h]; ok {
		return mat
	}
	return DefaultMaterial()
}

func (m *managerImpl) Index(h Handle) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, existing := range m.order {
		if existing == h {
			// Slot 0 is the default material.
			return uint32(i + 1)
		}
	}
	return 0
}

func (m *managerImpl) Ready(alloc encode.Allocator, layout *wgpu.BindGroupLayout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty && m.bindGroup != nil {
		return nil
	}

	data := make([]byte, 0, (len(m.order)+1)*64)
	defaultMat := DefaultMaterial()
	data = append(data, marshalMaterial(&defaultMat)...)
	for _, h := range m.order {
		mat := m.materials[h]
		data = append(data, marshalMaterial(&mat)...)
	}

	buffer, err := alloc.CreateBufferInit("materials", data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("failed to upload material buffer: %w", err)
	}
	bindGroup, err := alloc.CreateBindGroup("materials", layout, []encode.BindGroupEntry{
		{Binding: 0, Buffer: buffer},
	})
	if err != nil {
		buffer.Release()
		return fmt.Errorf("failed to create material bind group: %w", err)
	}

	if m.bindGroup != nil {
		m.bindGroup.Release()
	}
	if m.buffer != nil {
		m.buffer.Release()
	}
	m.buffer = buffer
	m.bindGroup = bindGroup
	m.dirty = false
	return nil
}

func (m *managerImpl) BindGroup() encode.BindGroup {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bindGroup
}

func (m *managerImpl) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	if m.buffer != nil {
		m.buffer.Release()
		m.buffer = nil
	}
}
