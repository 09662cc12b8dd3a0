package texture

import (
	"fmt"
	"sync"
	"time"

	"github.com/ember-gfx/ember-go/common"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// Handle identifies a texture registered with a Manager. A handle's value is
// its array layer plus one, so the zero value doubles as "no texture" and
// handles upload directly into GPU material records.
type Handle uint32

// HandleNone marks the absence of a texture.
const HandleNone Handle = 0

// stagedLayer is decoded pixel data awaiting upload to one array layer.
type stagedLayer struct {
	layer  uint32
	pixels []byte
	width  uint32
	height uint32
}

// stagedCube is decoded face data awaiting upload to the background cube.
// Faces are ordered +X, -X, +Y, -Y, +Z, -Z.
type stagedCube struct {
	faces [6][]byte
	size  uint32
}

// Manager owns the texture atlas the shaders sample from: one 2D array
// texture holding every registered surface texture, and one cube texture
// holding the background. Image decoding runs on a worker pool; Ready drains
// finished decodes and uploads them, so registration never blocks a frame.
type Manager interface {
	// Add registers an image for use as a surface texture. Decoding runs
	// asynchronously; the returned handle is valid immediately and samples
	// black until the decoded pixels are uploaded by a later Ready call.
	// Images must match the manager's layer dimensions.
	//
	// Parameters:
	//   - img: the image to decode and upload
	//
	// Returns:
	//   - Handle: the handle identifying the texture
	//   - error: an error if the atlas is full
	Add(img common.ImportedTexture) (Handle, error)

	// AddPixels registers raw RGBA pixels as a surface texture.
	//
	// Parameters:
	//   - pixels: RGBA pixel data, 4 bytes per pixel, row-major
	//   - width: the image width in pixels
	//   - height: the image height in pixels
	//
	// Returns:
	//   - Handle: the handle identifying the texture
	//   - error: an error if the atlas is full or dimensions mismatch
	AddPixels(pixels []byte, width, height uint32) (Handle, error)

	// SetBackground stages six cube faces for the skybox. Faces are RGBA,
	// square, and ordered +X, -X, +Y, -Y, +Z, -Z.
	//
	// Parameters:
	//   - faces: the six face pixel buffers
	//   - size: the face edge length in pixels
	//
	// Returns:
	//   - error: an error if a face buffer has the wrong size
	SetBackground(faces [6][]byte, size uint32) error

	// ClearBackground removes the background cube. The skybox stops drawing
	// on the next frame; any cube staged by SetBackground and not yet
	// uploaded is discarded.
	ClearBackground()

	// Ready uploads every staged layer and cube face and builds the bind
	// groups on first use.
	//
	// Parameters:
	//   - alloc: the allocator to create bind groups with
	//   - textureLayout: the surface texture bind group layout
	//   - skyboxLayout: the background cube bind group layout
	//
	// Returns:
	//   - error: an error if any upload failed
	Ready(alloc encode.Allocator, textureLayout, skyboxLayout *wgpu.BindGroupLayout) error

	// BindGroup returns the surface texture bind group.
	//
	// Returns:
	//   - encode.BindGroup: the bind group, nil before the first Ready
	BindGroup() encode.BindGroup

	// SkyboxBindGroup returns the background cube bind group.
	//
	// Returns:
	//   - encode.BindGroup: the bind group, nil before the first Ready
	SkyboxBindGroup() encode.BindGroup

	// HasBackground reports whether a background cube has been set.
	//
	// Returns:
	//   - bool: true once SetBackground has been called
	HasBackground() bool

	// Release frees the textures and bind groups.
	Release()
}

// managerImpl is the implementation of the Manager interface.
type managerImpl struct {
	mu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
	logger *zap.Logger

	layerSize  uint32
	capacity   uint32
	nextLayer  uint32
	nextTaskID int

	decodePool worker.DynamicWorkerPool

	pendingLayers []stagedLayer
	pendingCube   *stagedCube
	cubeSize      uint32
	hasBackground bool

	arrayTexture *wgpu.Texture
	arrayView    *wgpu.TextureView
	cubeTexture  *wgpu.Texture
	cubeView     *wgpu.TextureView
	bindGroup    encode.BindGroup
	skyboxGroup  encode.BindGroup
}

var _ Manager = &managerImpl{}

// NewManager creates a texture Manager and allocates its GPU textures.
//
// Parameters:
//   - device: the device to create textures on
//   - queue: the queue texture uploads are scheduled on
//   - logger: the logger for decode failures
//   - opts: variadic list of ManagerBuilderOption functions
//
// Returns:
//   - Manager: the manager
//   - error: an error if texture allocation failed
func NewManager(device *wgpu.Device, queue *wgpu.Queue, logger *zap.Logger, opts ...ManagerBuilderOption) (Manager, error) {
	m := &managerImpl{
		mu:        &sync.Mutex{},
		device:    device,
		queue:     queue,
		logger:    logger,
		layerSize: 1024,
		capacity:  64,
		cubeSize:  1,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.decodePool = worker.NewDynamicWorkerPool(4, 64, 1*time.Second)

	var err error
	m.arrayTexture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Surface Texture Array",
		Size: wgpu.Extent3D{
			Width:              m.layerSize,
			Height:             m.layerSize,
			DepthOrArrayLayers: m.capacity,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture array: %w", err)
	}
	m.arrayView, err = m.arrayTexture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Surface Texture Array View",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimension2DArray,
		MipLevelCount:   1,
		ArrayLayerCount: m.capacity,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture array view: %w", err)
	}

	if err := m.createCube(m.cubeSize); err != nil {
		return nil, err
	}
	return m, nil
}

// createCube allocates the background cube texture. Callers must hold the
// lock or be inside construction.
func (m *managerImpl) createCube(size uint32) error {
	if m.cubeView != nil {
		m.cubeView.Release()
	}
	if m.cubeTexture != nil {
		m.cubeTexture.Release()
	}
	var err error
	m.cubeTexture, err = m.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Background Cube",
		Size: wgpu.Extent3D{
			Width:              size,
			Height:             size,
			DepthOrArrayLayers: 6,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create background cube: %w", err)
	}
	m.cubeView, err = m.cubeTexture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Background Cube View",
		Format:          wgpu.TextureFormatRGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimensionCube,
		MipLevelCount:   1,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return fmt.Errorf("failed to create background cube view: %w", err)
	}
	m.cubeSize = size
	// The view changed, so the bind group must be rebuilt.
	if m.skyboxGroup != nil {
		m.skyboxGroup.Release()
		m.skyboxGroup = nil
	}
	return nil
}

func (m *managerImpl) Add(img common.ImportedTexture) (Handle, error) {
	m.mu.Lock()
	if m.nextLayer >= m.capacity {
		m.mu.Unlock()
		return HandleNone, fmt.Errorf("texture array full: %d layers in use", m.capacity)
	}
	layer := m.nextLayer
	m.nextLayer++
	taskID := m.nextTaskID
	m.nextTaskID++
	m.mu.Unlock()

	m.decodePool.SubmitTask(worker.Task{
		ID: taskID,
		Do: func() (any, error) {
			pixels, width, height, err := img.Decode()
			if err != nil {
				m.logger.Error("texture decode failed",
					zap.String("name", img.Name),
					zap.Error(err))
				return nil, err
			}
			if width != m.layerSize || height != m.layerSize {
				m.logger.Error("texture dimensions do not match atlas layer size",
					zap.String("name", img.Name),
					zap.Uint32("width", width),
					zap.Uint32("height", height),
					zap.Uint32("layerSize", m.layerSize))
				return nil, fmt.Errorf("texture %q is %dx%d, atlas layers are %dx%d", img.Name, width, height, m.layerSize, m.layerSize)
			}
			m.mu.Lock()
			m.pendingLayers = append(m.pendingLayers, stagedLayer{layer: layer, pixels: pixels, width: width, height: height})
			m.mu.Unlock()
			return nil, nil
		},
	})
	return Handle(layer + 1), nil
}

func (m *managerImpl) AddPixels(pixels []byte, width, height uint32) (Handle, error) {
	if width != m.layerSize || height != m.layerSize {
		return HandleNone, fmt.Errorf("pixels are %dx%d, atlas layers are %dx%d", width, height, m.layerSize, m.layerSize)
	}
	if uint32(len(pixels)) != width*height*4 {
		return HandleNone, fmt.Errorf("pixel buffer is %d bytes, expected %d", len(pixels), width*height*4)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextLayer >= m.capacity {
		return HandleNone, fmt.Errorf("texture array full: %d layers in use", m.capacity)
	}
	layer := m.nextLayer
	m.nextLayer++
	m.pendingLayers = append(m.pendingLayers, stagedLayer{layer: layer, pixels: pixels, width: width, height: height})
	return Handle(layer + 1), nil
}

func (m *managerImpl) SetBackground(faces [6][]byte, size uint32) error {
	expected := int(size * size * 4)
	for i, face := range faces {
		if len(face) != expected {
			return fmt.Errorf("cube face %d is %d bytes, expected %d", i, len(face), expected)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingCube = &stagedCube{faces: faces, size: size}
	m.hasBackground = true
	return nil
}

func (m *managerImpl) ClearBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingCube = nil
	m.hasBackground = false
}

func (m *managerImpl) HasBackground() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasBackground
}

func (m *managerImpl) Ready(alloc encode.Allocator, textureLayout, skyboxLayout *wgpu.BindGroupLayout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, staged := range m.pendingLayers {
		m.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  m.arrayTexture,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: staged.layer},
				Aspect:   wgpu.TextureAspectAll,
			},
			staged.pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  staged.width * 4,
				RowsPerImage: staged.height,
			},
			&wgpu.Extent3D{
				Width:              staged.width,
				Height:             staged.height,
				DepthOrArrayLayers: 1,
			},
		)
	}
	m.pendingLayers = m.pendingLayers[:0]

	if m.pendingCube != nil {
		if m.pendingCube.size != m.cubeSize {
			if err := m.createCube(m.pendingCube.size); err != nil {
				return err
			}
		}
		for face, pixels := range m.pendingCube.faces {
			m.queue.WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture:  m.cubeTexture,
					MipLevel: 0,
					Origin:   wgpu.Origin3D{Z: uint32(face)},
					Aspect:   wgpu.TextureAspectAll,
				},
				pixels,
				&wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  m.pendingCube.size * 4,
					RowsPerImage: m.pendingCube.size,
				},
				&wgpu.Extent3D{
					Width:              m.pendingCube.size,
					Height:             m.pendingCube.size,
					DepthOrArrayLayers: 1,
				},
			)
		}
		m.pendingCube = nil
	}

	if m.bindGroup == nil {
		bg, err := alloc.CreateBindGroup("surface-textures", textureLayout, []encode.BindGroupEntry{
			{Binding: 0, TextureView: m.arrayView},
		})
		if err != nil {
			return fmt.Errorf("failed to create texture bind group: %w", err)
		}
		m.bindGroup = bg
	}
	if m.skyboxGroup == nil {
		bg, err := alloc.CreateBindGroup("skybox-texture", skyboxLayout, []encode.BindGroupEntry{
			{Binding: 0, TextureView: m.cubeView},
		})
		if err != nil {
			return fmt.Errorf("failed to create skybox bind group: %w", err)
		}
		m.skyboxGroup = bg
	}
	return nil
}

func (m *managerImpl) BindGroup() encode.BindGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindGroup
}

func (m *managerImpl) SkyboxBindGroup() encode.BindGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skyboxGroup
}

func (m *managerImpl) Release() {
	// Drain in-flight decodes before taking the lock: decode tasks append
	// to pendingLayers under m.mu, and none may land after teardown.
	m.decodePool.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	if m.skyboxGroup != nil {
		m.skyboxGroup.Release()
		m.skyboxGroup = nil
	}
	if m.arrayView != nil {
		m.arrayView.Release()
		m.arrayView = nil
	}
	if m.arrayTexture != nil {
		m.arrayTexture.Release()
		m.arrayTexture = nil
	}
	if m.cubeView != nil {
		m.cubeView.Release()
		m.cubeView = nil
	}
	if m.cubeTexture != nil {
		m.cubeTexture.Release()
		m.cubeTexture = nil
	}
}

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*managerImpl)

// WithLayerSize sets the edge length of every atlas layer in pixels.
//
// Parameters:
//   - size: the layer edge length
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithLayerSize(size uint32) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.layerSize = size
	}
}

// WithCapacity sets the number of layers in the atlas.
//
// Parameters:
//   - capacity: the layer count
//
// Returns:
//   - ManagerBuilderOption: the builder option
func WithCapacity(capacity uint32) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.capacity = capacity
	}
}
