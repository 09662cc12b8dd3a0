package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// SignedDistance returns the signed distance from a point to the plane.
// Positive values lie on the side the normal points toward.
//
// Parameters:
//   - p: the point to test
//
// Returns:
//   - float32: the signed distance
func (pl Plane) SignedDistance(p mgl32.Vec3) float32 {
	return pl.Normal.Dot(p) + pl.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// FrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix (column-major)
// with clip-space depth in [0, 1], as produced by ProjectionMatrix. Uses the
// Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined view-projection matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func FrustumFromMatrix(viewProj mgl32.Mat4) Frustum {
	var f Frustum

	// For a column-major matrix M, row r is (M[r], M[4+r], M[8+r], M[12+r]).
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	set := func(index int, v mgl32.Vec4) {
		f.Planes[index] = Plane{
			Normal:   mgl32.Vec3{v.X(), v.Y(), v.Z()},
			Distance: v.W(),
		}
	}

	set(FrustumLeft, r3.Add(r0))
	set(FrustumRight, r3.Sub(r0))
	set(FrustumBottom, r3.Add(r1))
	set(FrustumTop, r3.Sub(r1))
	set(FrustumNear, r2)
	set(FrustumFar, r3.Sub(r2))

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// ContainsSphere reports whether a bounding sphere intersects the frustum.
// A sphere touching a plane boundary counts as inside, so culling is
// conservative: a visible sphere is never reported as outside.
//
// Parameters:
//   - center: the sphere center in world space
//   - radius: the sphere radius
//
// Returns:
//   - bool: true if any part of the sphere lies inside the frustum
func (f Frustum) ContainsSphere(center mgl32.Vec3, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}
