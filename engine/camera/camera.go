package camera

import (
	"sync"

	"github.com/ember-gfx/ember-go/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.RWMutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	view     mgl32.Mat4
	proj     mgl32.Mat4
	viewProj mgl32.Mat4
}

// Camera defines the interface for the primary view. It holds perspective
// settings and a look-at transform, and derives the matrices and frustum the
// render routine consumes each frame.
//
// All accessors return values computed at the last mutation, so reads taken
// during frame construction observe a consistent matrix set.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// View returns the current 4x4 view matrix (column-major).
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the current 4x4 projection matrix (column-major).
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// ViewProjection returns the combined Projection * View matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the combined view-projection matrix
	ViewProjection() mgl32.Mat4

	// Frustum returns the view frustum extracted from the current
	// view-projection matrix, for visibility culling.
	//
	// Returns:
	//   - common.Frustum: the view frustum
	Frustum() common.Frustum

	// LookAt repositions the camera and recomputes matrices.
	//
	// Parameters:
	//   - position: the new camera position
	//   - target: the point the camera looks at
	LookAt(position, target mgl32.Vec3)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	// Called on resize.
	//
	// Parameters:
	//   - aspect: the new aspect ratio
	SetAspect(aspect float32)

	// SetPerspective sets the vertical field of view (radians) and the near and
	// far plane distances, then recomputes matrices.
	//
	// Parameters:
	//   - fov: vertical field of view in radians
	//   - near: near plane distance
	//   - far: far plane distance
	SetPerspective(fov, near, far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with sensible defaults and any provided
// options applied.
//
// Parameters:
//   - opts: variadic list of CameraBuilderOption functions to configure the camera
//
// Returns:
//   - Camera: a new Camera instance
func NewCamera(opts ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.RWMutex{},
		position: mgl32.Vec3{0, 0, 5},
		target:   mgl32.Vec3{0, 0, 0},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(60),
		aspect:   16.0 / 9.0,
		near:     0.1,
		far:      1000,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recompute()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proj
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewProj
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return common.FrustumFromMatrix(c.viewProj)
}

func (c *cameraImpl) LookAt(position, target mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = position
	c.target = target
	c.recompute()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.recompute()
}

func (c *cameraImpl) SetPerspective(fov, near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.near = near
	c.far = far
	c.recompute()
}

// recompute rebuilds the view, projection, and combined matrices.
// Callers must hold the write lock (or be inside construction).
func (c *cameraImpl) recompute() {
	c.view = mgl32.LookAtV(c.position, c.target, c.up)
	c.proj = common.ProjectionMatrix(c.fov, c.aspect, c.near, c.far)
	c.viewProj = c.proj.Mul4(c.view)
}
