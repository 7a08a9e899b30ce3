package dataset

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestRefocusRaisedEyeSelectsViewsPerPixel(t *testing.T) {
	dir := t.TempDir()
	writeView(t, dir, perspectiveID(0, 0, -50, 0), ".png", color.NRGBA{R: 255, A: 255}, 36, 4)
	writeView(t, dir, perspectiveID(0, 1, 50, 0), ".png", color.NRGBA{B: 255, A: 255}, 36, 4)

	a, err := Load(dir)
	require.NoError(t, err)

	// From 0.5 m above the camera plane the frame's rays cross it between
	// u = -0.18 and 0.18, so each view only feeds a narrow band of columns.
	out, err := a.Refocus(context.Background(), RefocusOptions{
		Eye:           r3.Vec{Z: 0.5},
		Aperture:      0.02,
		FocusDistance: 1.5,
	})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(12, 2))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(23, 2))
}

func TestCameraLens(t *testing.T) {
	a := &Array{Views: []View{
		{UV: r2.Vec{X: -1}, Size: image.Pt(100, 50), FocalLength: 0.05, SensorWidth: 0.036},
		{UV: r2.Vec{X: 1}, Size: image.Pt(40, 20), FocalLength: 0.1, SensorWidth: 0.036},
	}}

	cam, err := a.camera(RefocusOptions{Eye: r3.Vec{X: 0.9}, FocusDistance: 1})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 20), cam.size)
	assert.InDelta(t, 0.18, cam.halfW, 1e-12)
	assert.InDelta(t, 0.09, cam.halfH, 1e-12)

	cam, err = a.camera(RefocusOptions{
		FocalLength:   0.05,
		SensorWidth:   0.024,
		Size:          image.Pt(30, 30),
		FocusDistance: 2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.48, cam.halfW, 1e-12)
	assert.InDelta(t, 0.48, cam.halfH, 1e-12)

	// Breathing moves the sensor back and narrows the frame.
	cam, err = a.camera(RefocusOptions{FocalLength: 0.05, SensorWidth: 0.036, FocusDistance: 1, FocusBreathing: true})
	require.NoError(t, err)
	assert.InDelta(t, 0.018/ThinLensImageDistance(0.05, 1), cam.halfW, 1e-12)
	assert.Less(t, cam.halfW, 0.36)

	_, err = a.camera(RefocusOptions{FocalLength: 0.05, FocusDistance: 0.04, FocusBreathing: true})
	assert.Error(t, err)
}

func TestCameraRejectsBadEye(t *testing.T) {
	a := &Array{Views: []View{{Size: image.Pt(4, 4), FocalLength: 0.05, SensorWidth: 0.036}}}
	for _, opts := range []RefocusOptions{
		{Eye: r3.Vec{Z: -0.1}, FocusDistance: 1},
		{Eye: r3.Vec{Z: 1}, FocusDistance: 1},
		{Eye: r3.Vec{Z: 1}, FocusDistance: 0.5},
	} {
		_, err := a.camera(opts)
		assert.Error(t, err, "%+v", opts)
	}
	_, err := (&Array{}).camera(RefocusOptions{FocusDistance: 1})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestUVHit(t *testing.T) {
	cam := virtualCamera{eye: r3.Vec{X: 0.1, Z: 0.5}, size: image.Pt(10, 10), focus: 1, halfW: 0.4, halfH: 0.4}

	center := cam.uvHit(5, 5)
	assert.InDelta(t, 0.1, center.X, 1e-12)
	assert.InDelta(t, 0, center.Y, 1e-12)

	// Halfway down to the focus plane the ray has covered half the offset.
	right := cam.uvHit(10, 5)
	assert.InDelta(t, 0.3, right.X, 1e-12)

	lo, hi := cam.uvBounds()
	assert.InDelta(t, -0.1, lo.X, 1e-12)
	assert.InDelta(t, 0.3, hi.X, 1e-12)
	assert.InDelta(t, -0.2, lo.Y, 1e-12)
	assert.InDelta(t, 0.2, hi.Y, 1e-12)
}
