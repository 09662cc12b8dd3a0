package object

import (
	"sync"

	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/renderer/material"

	"github.com/go-gl/mathgl/mgl32"
)

// Handle identifies a render object registered with a Manager. The zero
// value is never a valid handle.
type Handle uint32

// Object is one renderable instance: a mesh, the material to shade it with,
// and its model-to-world transform.
type Object struct {
	// Handle is the identity of the object within its Manager.
	Handle Handle
	// Mesh is the geometry to draw.
	Mesh mesh.Handle
	// Material selects the surface parameters and transparency behavior.
	Material material.Handle
	// Transform is the model-to-world matrix.
	Transform mgl32.Mat4
}

// managerImpl is the implementation of the Manager interface.
type managerImpl struct {
	mu *sync.RWMutex

	nextHandle Handle
	order      []Handle
	objects    map[Handle]*Object
}

// Manager owns the set of renderable objects. Mutations may come from any
// goroutine; Ready takes an insertion-ordered snapshot of the full set, and
// the frame is built exclusively from that snapshot so mid-frame mutations
// never tear a frame.
type Manager interface {
	// Add registers an object for rendering.
	//
	// Parameters:
	//   - meshHandle: the geometry to draw
	//   - materialHandle: the material to shade with
	//   - transform: the model-to-world matrix
	//
	// Returns:
	//   - Handle: the handle identifying the object
	Add(meshHandle mesh.Handle, materialHandle material.Handle, transform mgl32.Mat4) Handle

	// SetTransform replaces an object's model-to-world matrix. Unknown
	// handles are ignored.
	//
	// Parameters:
	//   - h: the object handle
	//   - transform: the new model-to-world matrix
	SetTransform(h Handle, transform mgl32.Mat4)

	// SetMaterial replaces an object's material. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the object handle
	//   - materialHandle: the new material
	SetMaterial(h Handle, materialHandle material.Handle)

	// Remove unregisters an object. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the object handle
	Remove(h Handle)

	// Count returns the number of registered objects.
	//
	// Returns:
	//   - int: the object count
	Count() int

	// Ready returns an insertion-ordered snapshot of every registered object.
	//
	// Returns:
	//   - []Object: the snapshot
	Ready() []Object
}

var _ Manager = &managerImpl{}

// NewManager creates an empty object Manager.
//
// Returns:
//   - Manager: the manager
func NewManager() Manager {
	return &managerImpl{
		mu:         &sync.RWMutex{},
		nextHandle: 1,
		objects:    make(map[Handle]*Object),
	}
}

func (m *managerImpl) Add(meshHandle mesh.Handle, materialHandle material.Handle, transform mgl32.Mat4) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.nextHandle
	m.nextHandle++
	m.objects[h] = &Object{
		Handle:    h,
		Mesh:      meshHandle,
		Material:  materialHandle,
		Transform: transform,
	}
	m.order = append(m.order, h)
	return h
}

func (m *managerImpl) SetTransform(h Handle, transform mgl32.Mat4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[h]; ok {
		obj.Transform = transform
	}
}

func (m *managerImpl) SetMaterial(h Handle, materialHandle material.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[h]; ok {
		obj.Material = materialHandle
	}
}

func (m *managerImpl) Remove(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[h]; !ok {
		return
	}
	delete(m.objects, h)
	for i, existing := range m.order {
		if existing == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *managerImpl) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *managerImpl) Ready() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make([]Object, 0, len(m.order))
	for _, h := range m.order {
		snapshot = append(snapshot, *m.objects[h])
	}
	return snapshot
}
