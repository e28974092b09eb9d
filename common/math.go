package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice view.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Pose is a rigid transform: a translation followed by a rotation.
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// IdentityPose returns the pose at the origin with no rotation.
//
// Returns:
//   - Pose: the identity pose
func IdentityPose() Pose {
	return Pose{Rotation: mgl32.QuatIdent()}
}

// NewPose builds a Pose from a position and a w-first quaternion.
// A zero quaternion is treated as the identity rotation; any other quaternion is normalized.
//
// Parameters:
//   - p: position x, y, z
//   - q: rotation as w, x, y, z
//
// Returns:
//   - Pose: the pose
func NewPose(p [3]float32, q [4]float32) Pose {
	rot := mgl32.Quat{W: q[0], V: mgl32.Vec3{q[1], q[2], q[3]}}
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	} else {
		rot = rot.Normalize()
	}
	return Pose{Position: mgl32.Vec3(p), Rotation: rot}
}

// Matrix returns the pose as a 4x4 local-to-world matrix (T * R).
//
// Returns:
//   - mgl32.Mat4: the transform matrix
func (p Pose) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).Mul4(p.Rotation.Mat4())
}

// InverseMatrix returns the world-to-local matrix of the pose.
// Computed analytically from the rotation conjugate, so it is exact for unit quaternions.
//
// Returns:
//   - mgl32.Mat4: the inverse transform matrix
func (p Pose) InverseMatrix() mgl32.Mat4 {
	inv := p.Rotation.Conjugate()
	t := inv.Rotate(p.Position.Mul(-1))
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).Mul4(inv.Mat4())
}

// Mul composes two poses: the result maps o's local frame through p.
//
// Parameters:
//   - o: the pose expressed in p's frame
//
// Returns:
//   - Pose: p * o
func (p Pose) Mul(o Pose) Pose {
	return Pose{
		Position: p.Position.Add(p.Rotation.Rotate(o.Position)),
		Rotation: p.Rotation.Mul(o.Rotation).Normalize(),
	}
}

// Wire returns the position and the w-first quaternion of the pose.
//
// Returns:
//   - [3]float32: position x, y, z
//   - [4]float32: rotation w, x, y, z
func (p Pose) Wire() ([3]float32, [4]float32) {
	return [3]float32(p.Position), [4]float32{p.Rotation.W, p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2]}
}

// ModelMatrix composes a pose with a per-axis scale (T * R * S).
//
// Parameters:
//   - p: the pose
//   - scale: the per-axis scale
//
// Returns:
//   - mgl32.Mat4: the model matrix
func ModelMatrix(p Pose, scale mgl32.Vec3) mgl32.Mat4 {
	return p.Matrix().Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}
