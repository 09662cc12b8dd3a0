package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// depthZeroToOne remaps GL-convention clip-space depth [-1, 1] to the
// [0, 1] range WebGPU expects. Column-major.
var depthZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// ProjectionMatrix builds a perspective projection with clip-space depth in
// [0, 1]. Every matrix uploaded to the GPU and every frustum extraction goes
// through this instead of a raw GL-convention perspective.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - aspect: aspect ratio (width / height)
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func ProjectionMatrix(fov, aspect, near, far float32) mgl32.Mat4 {
	return depthZeroToOne.Mul4(mgl32.Perspective(fov, aspect, near, far))
}

// OrthoMatrix builds an orthographic projection with clip-space depth in
// [0, 1], used by directional shadow cameras.
//
// Parameters:
//   - left, right, bottom, top: the view volume extents
//   - near, far: the depth range
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func OrthoMatrix(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return depthZeroToOne.Mul4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// MaxScale returns the largest axis scale factor encoded in a transform matrix.
// Used to scale object-space bounding radii into world space before frustum
// tests, so non-uniform scaling never shrinks a bounding sphere below the
// geometry it encloses.
//
// Parameters:
//   - m: the transform matrix
//
// Returns:
//   - float32: the largest column length of the upper-left 3x3 block
func MaxScale(m mgl32.Mat4) float32 {
	sx := mgl32.Vec3{m[0], m[1], m[2]}.Len()
	sy := mgl32.Vec3{m[4], m[5], m[6]}.Len()
	sz := mgl32.Vec3{m[8], m[9], m[10]}.Len()
	return max(sx, sy, sz)
}
