package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption defines a function which modifies a camera during
// construction.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's world-space position.
//
// Parameters:
//   - position: the camera position
//
// Returns:
//   - CameraBuilderOption: the builder option
func WithPosition(position mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = position
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - target: the look-at target
//
// Returns:
//   - CameraBuilderOption: the builder option
func WithTarget(target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = target
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: the builder option
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithPerspective sets the vertical field of view (radians), aspect ratio,
// and near/far plane distances.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - aspect: aspect ratio (width / height)
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: the builder option
func WithPerspective(fov, aspect, near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
		c.aspect = aspect
		c.near = near
		c.far = far
	}
}
