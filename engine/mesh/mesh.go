package mesh

import (
	"fmt"
	"sync"

	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/cogentcore/webgpu/wgpu"
)

// Handle identifies a mesh registered with a Manager. The zero value is
// never a valid handle.
type Handle uint32

// GPUMesh is the uploaded form of a mesh: the GPU buffers the render
// passes bind plus the data needed for culling and draw submission.
type GPUMesh struct {
	// VertexBuffer holds the interleaved GPUVertex data.
	VertexBuffer encode.Buffer
	// IndexBuffer holds uint32 indices.
	IndexBuffer encode.Buffer
	// IndexCount is the number of indices to draw.
	IndexCount uint32
	// BoundingRadius is the model-space bounding sphere radius around the origin.
	BoundingRadius float32
}

// stagedMesh holds CPU-side mesh data awaiting upload.
type stagedMesh struct {
	vertexData []byte
	indices    []uint32
	radius     float32
	indexCount uint32
}

// managerImpl is the implementation of the Manager interface.
type managerImpl struct {
	mu *sync.RWMutex

	nextHandle Handle
	staged     map[Handle]*stagedMesh
	uploaded   map[Handle]*GPUMesh
}

// Manager owns mesh geometry. Meshes are registered from any goroutine and
// staged on the CPU; Ready uploads everything staged since the previous
// frame, so render passes only ever observe fully uploaded meshes.
type Manager interface {
	// Add registers a mesh and stages it for upload on the next Ready call.
	//
	// Parameters:
	//   - vertices: the interleaved vertex data
	//   - indices: the triangle list indices
	//
	// Returns:
	//   - Handle: the handle identifying the mesh
	//   - error: an error if the mesh data is empty
	Add(vertices []GPUVertex, indices []uint32) (Handle, error)

	// Mesh returns the uploaded mesh for a handle.
	//
	// Parameters:
	//   - h: the mesh handle
	//
	// Returns:
	//   - *GPUMesh: the uploaded mesh, or nil if the handle is unknown or still staged
	Mesh(h Handle) *GPUMesh

	// BoundingRadius returns the model-space bounding sphere radius of a mesh,
	// available as soon as the mesh is registered.
	//
	// Parameters:
	//   - h: the mesh handle
	//
	// Returns:
	//   - float32: the bounding radius, 0 if the handle is unknown
	BoundingRadius(h Handle) float32

	// Ready uploads all staged meshes.
	//
	// Parameters:
	//   - alloc: the allocator to create GPU buffers with
	//
	// Returns:
	//   - error: an error if any upload failed
	Ready(alloc encode.Allocator) error

	// Release frees every uploaded mesh buffer.
	Release()
}

var _ Manager = &managerImpl{}

// NewManager creates an empty mesh Manager.
//
// Returns:
//   - Manager: the manager
func NewManager() Manager {
	return &managerImpl{
		mu:         &sync.RWMutex{},
		nextHandle: 1,
		staged:     make(map[Handle]*stagedMesh),
		uploaded:   make(map[Handle]*GPUMesh),
	}
}

func (m *managerImpl) Add(vertices []GPUVertex, indices []uint32) (Handle, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return 0, fmt.Errorf("mesh requires vertices and indices, got %d vertices and %d indices", len(vertices), len(indices))
	}

	vertexData := make([]byte, 0, len(vertices)*64)
	for i := range vertices {
		vertexData = append(vertexData, vertices[i].Marshal()...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.nextHandle
	m.nextHandle++
	m.staged[h] = &stagedMesh{
		vertexData: vertexData,
		indices:    append([]uint32(nil), indices...),
		radius:     ComputeBoundingRadius(vertices),
		indexCount: uint32(len(indices)),
	}
	return h, nil
}

func (m *managerImpl) Mesh(h Handle) *GPUMesh {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploaded[h]
}

func (m *managerImpl) BoundingRadius(h Handle) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mesh, ok := m.uploaded[h]; ok {
		return mesh.BoundingRadius
	}
	if staged, ok := m.staged[h]; ok {
		return staged.radius
	}
	return 0
}

func (m *managerImpl) Ready(alloc encode.Allocator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h, staged := range m.staged {
		vertexBuf, err := alloc.CreateBufferInit(
			fmt.Sprintf("mesh-%d-vertices", h),
			staged.vertexData,
			wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst,
		)
		if err != nil {
			return fmt.Errorf("failed to upload vertex buffer for mesh %d: %w", h, err)
		}

		indexData := make([]byte, len(staged.indices)*4)
		for i, idx := range staged.indices {
			indexData[i*4] = byte(idx)
			indexData[i*4+1] = byte(idx >> 8)
			indexData[i*4+2] = byte(idx >> 16)
			indexData[i*4+3] = byte(idx >> 24)
		}
		indexBuf, err := alloc.CreateBufferInit(
			fmt.Sprintf("mesh-%d-indices", h),
			indexData,
			wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst,
		)
		if err != nil {
			vertexBuf.Release()
			return fmt.Errorf("failed to upload index buffer for mesh %d: %w", h, err)
		}

		m.uploaded[h] = &GPUMesh{
			VertexBuffer:   vertexBuf,
			IndexBuffer:    indexBuf,
			IndexCount:     staged.indexCount,
			BoundingRadius: staged.radius,
		}
		delete(m.staged, h)
	}
	return nil
}

func (m *managerImpl) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mesh := range m.uploaded {
		mesh.VertexBuffer.Release()
		mesh.IndexBuffer.Release()
	}
	m.uploaded = make(map[Handle]*GPUMesh)
}
