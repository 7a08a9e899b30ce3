package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linusmossberg/light-field-renderer/internal/capture"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCapturePartial(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "job.json", `{"scene": "scenes/room.json", "num_x": 9, "num_y": 5, "extent_x": 80}`)

	cfg, err := LoadCapture(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scenes/room.json"), cfg.Scene)
	assert.Equal(t, filepath.Join(dir, "lightfield"), cfg.OutputDir)
	assert.Equal(t, ".png", cfg.Extension)
	assert.Equal(t, lightfield.DefaultFormat, cfg.Format)
	assert.Equal(t, filepath.Join(dir, "lightfield", "manifest.db"), cfg.ManifestPath())

	g, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, 9, g.Horizontal.Count)
	// ExtentY follows the horizontal baseline: 80/8 * 4.
	assert.InDelta(t, 40, g.Vertical.Extent, 1e-12)
	assert.InDelta(t, g.Horizontal.Baseline(), g.Vertical.Baseline(), 1e-12)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, capture.Abort, p)
}

func TestLoadCaptureFull(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "job.json", `{
		"scene": "/abs/scene.json",
		"camera_name": "Cam.L",
		"extent_x": 100, "extent_y": 50, "num_x": 3, "num_y": 2,
		"output_dir": "out",
		"extension": ".jpg",
		"on_error": "continue",
		"format": {"offset_precision": 2, "lens_precision": 0},
		"manifest": "-",
		"workers": 4,
		"settings": {"width": 320, "samples_per_px": 8}
	}`)
	cfg, err := LoadCapture(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/scene.json", cfg.Scene)
	assert.Equal(t, "Cam.L", cfg.CameraName)
	assert.Equal(t, lightfield.FormatPolicy{OffsetPrecision: 2}, cfg.Format)
	assert.Empty(t, cfg.ManifestPath())
	assert.Equal(t, 4, cfg.Workers)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, capture.Continue, p)

	merged := cfg.RenderSettings(scene.RenderSettings{Width: 640, Height: 480, SamplesPerPx: 64, MaxDepth: 5})
	assert.Equal(t, scene.RenderSettings{Width: 320, Height: 480, SamplesPerPx: 8, MaxDepth: 5}, merged)
}

func TestLoadCaptureEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "job.json", `{"scene": "s.json", "num_x": 9}`)
	t.Setenv("LIGHTFIELD_NUM_X", "5")
	t.Setenv("LIGHTFIELD_ON_ERROR", "continue")
	t.Setenv("LIGHTFIELD_OUTPUT_DIR", "/data/lf")

	cfg, err := LoadCapture(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NumX)
	assert.Equal(t, 27, cfg.NumY)
	assert.Equal(t, "continue", cfg.OnError)
	assert.Equal(t, "/data/lf", cfg.OutputDir)
}

func TestLoadCaptureBadEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "job.json", `{"scene": "s.json"}`)
	t.Setenv("LIGHTFIELD_NUM_Y", "many")
	_, err := LoadCapture(path)
	assert.Error(t, err)
}

func TestLoadCaptureErrors(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name, file, body string
	}{
		{"extension", "job.yaml", `{}`},
		{"syntax", "syntax.json", `{"scene":`},
		{"no scene", "noscene.json", `{}`},
		{"degenerate grid", "grid.json", `{"scene": "s.json", "num_x": 1}`},
		{"bad name", "name.json", `{"scene": "s.json", "camera_name": "a_b"}`},
		{"bad policy", "policy.json", `{"scene": "s.json", "on_error": "retry"}`},
		{"bad format", "format.json", `{"scene": "s.json", "format": {"offset_precision": -4}}`},
		{"negative workers", "workers.json", `{"scene": "s.json", "workers": -1}`},
		{"negative settings", "settings.json", `{"scene": "s.json", "settings": {"width": -1}}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := LoadCapture(writeFile(t, dir, c.file, c.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadCapture(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	big := writeFile(t, dir, "big.json", `{"scene": "`+strings.Repeat("x", maxFileSize)+`"}`)
	_, err = LoadCapture(big)
	assert.ErrorContains(t, err, "too large")
}

func TestLoadViewerDefaults(t *testing.T) {
	v, err := LoadViewer(t.TempDir())
	require.NoError(t, err)
	assert.InDelta(t, 0.05, v.FocalLength.Value(), 1e-12)
	assert.InDelta(t, 0.036, v.SensorWidth.Value(), 1e-12)
	assert.InDelta(t, 50, v.FocalLength.Display(), 1e-9)
	assert.InDelta(t, 0.2, v.Z.Value(), 1e-12)
	lo, hi := v.Z.DisplayBounds()
	assert.InDelta(t, 0, lo, 1e-9)
	assert.InDelta(t, 3, hi, 1e-9)
}

func TestLoadViewerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ViewerFile, strings.Join([]string{
		"focal-length 85 10 200",
		"",
		"z 0.5 0 2",
		"yaw 45 -90 90",
		"f-stop 2.8 0.4 16",
		"target_depth 4 0 10",
		"unknown-thing 1 2 3",
	}, "\n"))

	// Any non-.cfg path in the dataset directory selects config.cfg.
	img := filepath.Join(dir, "Camera_00_00_0_0.png")
	v, err := LoadViewer(img)
	require.NoError(t, err)
	assert.Equal(t, dir, v.Dir)
	assert.InDelta(t, 0.085, v.FocalLength.Value(), 1e-12)
	assert.InDelta(t, 0.2, v.FocalLength.Max(), 1e-12)
	assert.InDelta(t, 0.5, v.Z.Value(), 1e-12)
	assert.InDelta(t, 2.8, v.FStop.Value(), 1e-12)
	assert.InDelta(t, 1, v.FocusDistance.Value(), 1e-12)

	same, err := LoadViewer(dir)
	require.NoError(t, err)
	assert.Equal(t, v.FocalLength, same.FocalLength)
}

func TestLoadViewerInvalid(t *testing.T) {
	for _, line := range []string{
		"f-stop 8 0.4 5.6",
		"f-stop 1 0.4",
		"f-stop 1 0.4 5.6 9",
		"f-stop one 0.4 5.6",
	} {
		dir := t.TempDir()
		path := writeFile(t, dir, "custom.cfg", line)
		_, err := LoadViewer(path)
		assert.True(t, errors.Is(err, ErrInvalidViewer), "%q: %v", line, err)
	}
}

func TestPropertyClamps(t *testing.T) {
	p := NewProperty(1, 0.5, 5, 1)
	p.Set(10)
	assert.Equal(t, 5.0, p.Value())
	p.Set(-1)
	assert.Equal(t, 0.5, p.Value())
	p.SetNormalized(0.5)
	assert.InDelta(t, 2.75, p.Value(), 1e-12)
	assert.InDelta(t, 0.5, p.Normalized(), 1e-12)

	mm := NewProperty(50, 10, 100, 1e-3)
	mm.SetDisplay(70)
	assert.InDelta(t, 0.07, mm.Value(), 1e-12)
	assert.InDelta(t, 0.09, mm.Range(), 1e-12)
	assert.InDelta(t, 0.01, mm.Min(), 1e-12)
}
