package main

import (
	"bytes"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linusmossberg/light-field-renderer/internal/dataset"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"lightfield"}, args...))
	return out.String(), err
}

func TestGridCommand(t *testing.T) {
	out, err := run(t, "grid",
		"--extent-x", "20", "--num-x", "3", "--num-y", "2",
		"--name", "Cam", "--lens-precision", "0")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{
		"   0\tCam_00_00_5.000000_10.000000_50_36",
		"   1\tCam_00_01_5.000000_0.000000_50_36",
		"   2\tCam_00_02_5.000000_-10.000000_50_36",
		"   3\tCam_01_00_-5.000000_10.000000_50_36",
		"   4\tCam_01_01_-5.000000_0.000000_50_36",
		"   5\tCam_01_02_-5.000000_-10.000000_50_36",
	}
	assert.Equal(t, want, lines)
}

func TestGridCommandLightSlab(t *testing.T) {
	out, err := run(t, "grid", "--num-x", "2", "--num-y", "2", "--light-slab", "--offset-precision", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Camera_00_00_400_400\n")
	assert.Contains(t, out, "Camera_01_01_-400_-400\n")
}

func TestGridCommandRejectsBadInput(t *testing.T) {
	_, err := run(t, "grid", "--num-x", "1")
	assert.ErrorIs(t, err, lightfield.ErrDegenerateAperture)

	_, err = run(t, "grid", "--name", "my_cam")
	assert.ErrorIs(t, err, lightfield.ErrInvalidIdentifier)
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Cam_00_00_0_10_50_36.png", "Cam_00_01_0_-10_50_36.png"} {
		img := imaging.New(6, 4, color.White)
		require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
	}

	out, err := run(t, "inspect", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 views, perspective")
	assert.Contains(t, out, "6x4")
	assert.Contains(t, out, "50/36 mm")
	assert.Contains(t, out, "Cam_00_01_0_-10_50_36.png")
}

func TestInspectCommandEmptyDir(t *testing.T) {
	_, err := run(t, "inspect", t.TempDir())
	assert.ErrorIs(t, err, dataset.ErrEmpty)
}

func TestCommandsNeedArguments(t *testing.T) {
	for _, cmd := range []string{"inspect", "capture", "view"} {
		_, err := run(t, cmd)
		assert.Error(t, err, cmd)
	}
}

func TestSessionsCommandMissingManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.db")
	_, err := run(t, "sessions", "--manifest", path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "sessions must not create a manifest")
}
