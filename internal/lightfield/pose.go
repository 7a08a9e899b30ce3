package lightfield

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a camera position with its local frame. The grid lies in the plane
// spanned by Right and Up, centered on Position.
type Pose struct {
	Position r3.Vec
	Right    r3.Vec
	Up       r3.Vec
}

// Offset returns the pose moved by u along Right and v along Up. Scale converts
// grid units into scene units (1e-3 for millimetre offsets in a metre scene).
// The frame is unchanged, so every view of the grid looks the same way.
func (p Pose) Offset(u, v, scale float64) Pose {
	pos := r3.Add(p.Position, r3.Scale(u*scale, p.Right))
	pos = r3.Add(pos, r3.Scale(v*scale, p.Up))
	return Pose{Position: pos, Right: p.Right, Up: p.Up}
}

// At returns the pose of a grid sample.
func (p Pose) At(s Sample, scale float64) Pose {
	return p.Offset(s.U, s.V, scale)
}

// Back is the camera's backward axis, Right x Up.
func (p Pose) Back() r3.Vec {
	return r3.Cross(p.Right, p.Up)
}
