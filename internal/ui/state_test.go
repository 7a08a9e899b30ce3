package ui

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/linusmossberg/light-field-renderer/internal/config"
	"github.com/linusmossberg/light-field-renderer/internal/dataset"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

func testArray(t *testing.T) *dataset.Array {
	t.Helper()
	dir := t.TempDir()
	policy := lightfield.FormatPolicy{OffsetPrecision: -1, LensPrecision: -1}
	colors := []color.NRGBA{{R: 255, A: 255}, {G: 255, A: 255}}
	for col, u := range []float64{100, -100} {
		id := lightfield.Identifier{Name: "Cam", Column: col, U: u, FocalLength: 50, SensorWidth: 36, HasLens: true}
		path := filepath.Join(dir, policy.Format(id)+".png")
		require.NoError(t, imaging.Save(imaging.New(4, 4, colors[col]), path))
	}
	arr, err := dataset.Load(dir)
	require.NoError(t, err)
	return arr
}

func TestStateClampsUV(t *testing.T) {
	arr := testArray(t)
	cfg := config.DefaultViewer()
	cfg.X.Set(2)
	s := newState(arr, cfg)
	assert.InDelta(t, 0.1, s.uv.X, 1e-12)

	s.setUV(r2.Vec{X: -5, Y: 5})
	assert.InDelta(t, -0.1, s.uv.X, 1e-12)
	assert.Equal(t, 0.0, s.uv.Y)
}

func TestStateMove(t *testing.T) {
	s := newState(testArray(t), config.DefaultViewer())
	assert.InDelta(t, 0.01, s.step(), 1e-12)
	s.move(1, 0)
	assert.InDelta(t, 0.01, s.uv.X, 1e-12)
	for range 100 {
		s.move(1, 0)
	}
	assert.InDelta(t, 0.1, s.uv.X, 1e-12)
}

func TestStateFrameClosest(t *testing.T) {
	s := newState(testArray(t), config.DefaultViewer())
	s.setUV(r2.Vec{X: 0.09})

	img, label, err := s.frame(context.Background())
	require.NoError(t, err)
	r, g, _, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Contains(t, label, "Cam_00_00_0_100_50_36.png")
}

func TestStateFrameRefocus(t *testing.T) {
	cfg := config.DefaultViewer()
	cfg.FocusDistance.Set(5)
	s := newState(testArray(t), cfg)
	s.mode = ModeRefocus

	opts := s.refocusOptions()
	// 50 mm at f/1 is narrower than the 0.2 m spacing; the closest view is used.
	assert.InDelta(t, 0.05, opts.Aperture, 1e-12)
	assert.Equal(t, 5.0, opts.FocusDistance)
	assert.InDelta(t, 0.2, opts.Eye.Z, 1e-12)
	assert.InDelta(t, 0.036, opts.SensorWidth, 1e-12)

	img, label, err := s.frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Contains(t, label, "f/1.0")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "Refocus", ModeRefocus.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestStateAutofocusStoresFocus(t *testing.T) {
	cfg := config.DefaultViewer()
	cfg.FocusDistance.Set(2)
	s := newState(testArray(t), cfg)
	s.afPoint = r2.Vec{X: 1, Y: 1}

	// Flat views match at zero disparity, which keeps the current depth.
	d, err := s.autofocus(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2, d, 1e-9)
	assert.InDelta(t, 2, cfg.FocusDistance.Value(), 1e-9)

	s.mode = ModeRefocus
	s.breathing = true
	cfg.FocalLength.Set(0.1)
	cfg.FocusDistance.Set(0.5)
	_, err = s.frame(context.Background())
	require.NoError(t, err)
}
