package dataset

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ErrLightSlab is returned for operations that need lens parameters.
var ErrLightSlab = errors.New("light-slab views have no projection")

// PerspectiveProjection returns a projection for a lens without near and far
// clipping planes. Clip w is the negated camera-space depth.
func PerspectiveProjection(focalLength, sensorWidth float64, width, height int) mgl64.Mat4 {
	var p mgl64.Mat4
	p.Set(0, 0, 2*focalLength/sensorWidth)
	p.Set(1, 1, 2*focalLength*float64(width)/(sensorWidth*float64(height)))
	p.Set(3, 2, -1)
	return p
}

// ViewProjection returns projection x view for a camera at the view's uv,
// looking down -z with +y up.
func (v View) ViewProjection() (mgl64.Mat4, error) {
	if v.FocalLength <= 0 || v.SensorWidth <= 0 {
		return mgl64.Ident4(), ErrLightSlab
	}
	eye := mgl64.Vec3{v.UV.X, v.UV.Y, 0}
	view := mgl64.LookAtV(eye, eye.Add(mgl64.Vec3{0, 0, -1}), mgl64.Vec3{0, 1, 0})
	proj := PerspectiveProjection(v.FocalLength, v.SensorWidth, v.Size.X, v.Size.Y)
	return proj.Mul4(view), nil
}

// Project maps a world point to pixel coordinates of the view. ok is false for
// points behind the camera.
func Project(vp mgl64.Mat4, size [2]int, p mgl64.Vec3) (x, y float64, ok bool) {
	clip := vp.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	nx, ny := clip.X()/clip.W(), clip.Y()/clip.W()
	x = (nx+1)/2*float64(size[0]) - 0.5
	y = (1-ny)/2*float64(size[1]) - 0.5
	return x, y, true
}
