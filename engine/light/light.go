package light

import (
	"fmt"
	"sync"

	"github.com/ember-gfx/ember-go/common"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Handle identifies a light registered with a Manager. The zero value is
// never a valid handle.
type Handle uint32

// DirectionalLight is a light infinitely far away shining along Direction.
type DirectionalLight struct {
	// Direction is the world-space direction the light travels. It does not
	// need to be normalized.
	Direction mgl32.Vec3
	// Color is the linear light color.
	Color mgl32.Vec3
	// Intensity scales the radiance contribution.
	Intensity float32
	// CastShadows reserves a shadow atlas layer for this light.
	CastShadows bool
	// ShadowExtent is the half-size of the orthographic shadow volume.
	ShadowExtent float32
	// ShadowDistance is how far behind the focus point the shadow camera sits.
	ShadowDistance float32
}

// ShadowView is one shadow atlas layer to render this frame: the target
// view, the light's camera, and its frustum for shadow culling.
type ShadowView struct {
	// Light is the handle of the light owning this layer.
	Light Handle
	// Layer is the shadow atlas layer index.
	Layer uint32
	// Target is the depth attachment for the shadow pass.
	Target *wgpu.TextureView
	// View is the world-to-light view matrix.
	View mgl32.Mat4
	// ViewProj is the world-to-light-clip matrix.
	ViewProj mgl32.Mat4
	// Frustum is the light camera's frustum for culling shadow casters.
	Frustum common.Frustum
}

// managerImpl is the implementation of the Manager interface.
type managerImpl struct {
	mu *sync.RWMutex

	nextHandle Handle
	order      []Handle
	lights     map[Handle]DirectionalLight
	dirty      bool

	atlasSize   uint32
	atlasLayers uint32

	atlasTexture *wgpu.Texture
	atlasView    *wgpu.TextureView
	layerViews   []*wgpu.TextureView

	buffer      encode.Buffer
	bindGroup   encode.BindGroup
	shadowViews []ShadowView
	lastFocus   mgl32.Vec3
}

// Manager owns the directional lights, the shadow atlas they render into,
// and the GPU light buffer the forward pass reads. Ready assigns shadow
// layers in insertion order, rebuilds the light buffer when anything
// changed, and publishes the shadow views to render this frame.
type Manager interface {
	// Add registers a directional light.
	//
	// Parameters:
	//   - l: the light parameters
	//
	// Returns:
	//   - Handle: the handle identifying the light
	Add(l DirectionalLight) Handle

	// Update replaces a light's parameters. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the light handle
	//   - l: the new parameters
	Update(h Handle, l DirectionalLight)

	// Remove unregisters a light. Unknown handles are ignored.
	//
	// Parameters:
	//   - h: the light handle
	Remove(h Handle)

	// Count returns the number of registered lights.
	//
	// Returns:
	//   - int: the light count
	Count() int

	// Ready rebuilds the GPU light buffer, bind group, and shadow view list
	// if any light changed since the previous call. Shadow cameras are
	// centered on the focus point, typically the primary camera's target.
	//
	// Parameters:
	//   - alloc: the allocator to create GPU resources with
	//   - layout: the light bind group layout
	//   - focus: the world-space point shadow volumes are centered on
	//
	// Returns:
	//   - error: an error if the rebuild failed
	Ready(alloc encode.Allocator, layout *wgpu.BindGroupLayout, focus mgl32.Vec3) error

	// ShadowViews returns the shadow layers to render this frame, one per
	// shadow-casting light, in insertion order.
	//
	// Returns:
	//   - []ShadowView: the shadow views published by the last Ready call
	ShadowViews() []ShadowView

	// BindGroup returns the light bind group built by the last Ready call.
	//
	// Returns:
	//   - encode.BindGroup: the bind group, nil before the first Ready
	BindGroup() encode.BindGroup

	// Release frees the shadow atlas, light buffer, and bind group.
	Release()
}

var _ Manager = &managerImpl{}

// NewManager creates a light Manager and allocates its shadow atlas.
//
// Parameters:
//   - device: the device to create the shadow atlas on
//   - opts: variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the manager
//   - error: an error if atlas allocation failed
func NewManager(device *wgpu.Device, opts ...ManagerBuilderOption) (Manager, error) {
	m := &managerImpl{
		mu:          &sync.RWMutex{},
		nextHandle:  1,
		lights:      make(map[Handle]DirectionalLight),
		dirty:       true,
		atlasSize:   2048,
		atlasLayers: 4,
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	m.atlasTexture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Shadow Atlas",
		Size: wgpu.Extent3D{
			Width:              m.atlasSize,
			Height:             m.atlasSize,
			DepthOrArrayLayers: m.atlasLayers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow atlas: %w", err)
	}
	m.atlasView, err = m.atlasTexture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Shadow Atlas View",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: m.atlasLayers,
		Aspect:          wgpu.TextureAspectDepthOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow atlas view: %w", err)
	}
	m.layerViews = make([]*wgpu.TextureView, m.atlasLayers)
	for layer := uint32(0); layer < m.atlasLayers; layer++ {
		m.layerViews[layer], err = m.atlasTexture.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("Shadow Atlas Layer %d", layer),
			Format:          wgpu.TextureFormatDepth32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  layer,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create shadow atlas layer %d view: %w", layer, err)
		}
	}
	return m, nil
}

func (m *managerImpl) Add(l DirectionalLight) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.nextHandle
	m.nextHandle++
	m.lights[h] = l
	m.order = append(m.order, h)
	m.dirty = true
	return h
}

func (m *managerImpl) Update(h Handle, l DirectionalLight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lights[h]; !ok {
		return
	}
	m.lights[h] = l
	m.dirty = true
}

func (m *managerImpl) Remove(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lights[h]; !ok {
		return
	}
	delete(m.lights, h)
	for i, existing := range m.order {
		if existing == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.dirty = true
}

func (m *managerImpl) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lights)
}

func (m *managerImpl) Ready(alloc encode.Allocator, layout *wgpu.BindGroupLayout, focus mgl32.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty && m.bindGroup != nil && focus == m.lastFocus {
		return nil
	}

	header := GPULightHeader{Count: uint32(len(m.order))}
	data := header.Marshal()
	shadowViews := make([]ShadowView, 0, len(m.order))
	nextLayer := uint32(0)

	for _, h := range m.order {
		l := m.lights[h]
		gpu := GPUDirectionalLight{
			Color:     l.Color,
			Intensity: l.Intensity,
			Direction: l.Direction.Normalize(),
		}

		if l.CastShadows && nextLayer < m.atlasLayers {
			layer := nextLayer
			nextLayer++

			extent := common.Coalesce(l.ShadowExtent, 50)
			distance := common.Coalesce(l.ShadowDistance, 100)
			dir := l.Direction.Normalize()
			up := mgl32.Vec3{0, 1, 0}
			if mgl32.Abs(dir.Dot(up)) > 0.999 {
				up = mgl32.Vec3{0, 0, 1}
			}
			view := mgl32.LookAtV(focus.Sub(dir.Mul(distance)), focus, up)
			proj := common.OrthoMatrix(-extent, extent, -extent, extent, 0.1, distance*2)
			viewProj := proj.Mul4(view)

			gpu.ViewProj = viewProj
			gpu.ShadowLayer = layer
			shadowViews = append(shadowViews, ShadowView{
				Light:    h,
				Layer:    layer,
				Target:   m.layerViews[layer],
				View:     view,
				ViewProj: viewProj,
				Frustum:  common.FrustumFromMatrix(viewProj),
			})
		} else {
			// No shadow: the sentinel makes the shader skip the atlas
			// lookup, since texture array indices clamp rather than
			// fail and the zero ViewProj would project to NaN.
			gpu.ShadowLayer = ShadowLayerNone
		}
		data = append(data, gpu.Marshal()...)
	}

	buffer, err := alloc.CreateBufferInit("lights", data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("failed to upload light buffer: %w", err)
	}
	bindGroup, err := alloc.CreateBindGroup("lights", layout, []encode.BindGroupEntry{
		{Binding: 0, Buffer: buffer},
		{Binding: 1, TextureView: m.atlasView},
	})
	if err != nil {
		buffer.Release()
		return fmt.Errorf("failed to create light bind group: %w", err)
	}

	if m.bindGroup != nil {
		m.bindGroup.Release()
	}
	if m.buffer != nil {
		m.buffer.Release()
	}
	m.buffer = buffer
	m.bindGroup = bindGroup
	m.shadowViews = shadowViews
	m.lastFocus = focus
	m.dirty = false
	return nil
}

func (m *managerImpl) ShadowViews() []ShadowView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shadowViews
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
	for _, view := range m.layerViews {
		view.Release()
	}
	m.layerViews = nil
	if m.atlasView != nil {
		m.atlasView.Release()
		m.atlasView = nil
	}
	if m.atlasTexture != nil {
		m.atlasTexture.Release()
		m.atlasTexture = nil
	}
}

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*managerImpl)

// WithAtlasSize sets the shadow atlas resolution per layer.
//
// Parameters:
//   - size: the layer edge length in pixels
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithAtlasSize(size uint32) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.atlasSize = size
	}
}

// WithAtlasLayers sets how many lights can cast shadows at once.
//
// Parameters:
//   - layers: the atlas layer count
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithAtlasLayers(layers uint32) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.atlasLayers = layers
	}
}
