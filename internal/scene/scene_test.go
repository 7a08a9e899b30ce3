package scene

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func validScene() *Scene {
	return &Scene{
		Name: "s",
		Camera: Camera{
			Name:     "Camera",
			Position: Vec3{X: 1, Y: 1, Z: 5},
			Target:   Vec3{X: 1, Y: 1},
			Up:       Vec3{Y: 1},
			FOV:      45,
		},
		Materials: []Material{{ID: "m", Type: MaterialLambert}},
		Objects:   []Object{{ID: "o", Type: ObjectSphere, MaterialID: "m", Size: Vec3{X: 1}}},
		Sky:       &Sky{Type: "solid"},
	}
}

func TestCameraFrame(t *testing.T) {
	right, up, back := validScene().Camera.Frame()
	assert.Equal(t, r3.Vec{X: 1}, right)
	assert.Equal(t, r3.Vec{Y: 1}, up)
	assert.Equal(t, r3.Vec{Z: 1}, back)
}

func TestLensParams(t *testing.T) {
	c := validScene().Camera
	c.Lens, c.SensorWidth = 85, 24
	f, s := c.LensParams(1.5)
	assert.Equal(t, 85.0, f)
	assert.Equal(t, 24.0, s)

	c.SensorWidth = 0
	_, s = c.LensParams(1.5)
	assert.Equal(t, DefaultSensorWidth, s)

	c.Lens = 0
	c.FOV = 2 * math.Atan(12.0/50.0) * 180 / math.Pi
	f, s = c.LensParams(1.5)
	assert.InDelta(t, 50.0, f, 1e-9)
	assert.Equal(t, DefaultSensorWidth, s)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validScene().Validate())

	cases := map[string]func(*Scene){
		"target at position": func(sc *Scene) { sc.Camera.Target = sc.Camera.Position },
		"up parallel":        func(sc *Scene) { sc.Camera.Up = Vec3{Z: 1} },
		"no fov":             func(sc *Scene) { sc.Camera.FOV = 0 },
		"negative lens":      func(sc *Scene) { sc.Camera.Lens = -1 },
		"negative width":     func(sc *Scene) { sc.Settings.Width = -1 },
		"unknown material":   func(sc *Scene) { sc.Objects[0].MaterialID = "nope" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sc := validScene()
			mutate(sc)
			assert.Error(t, sc.Validate())
		})
	}

	sc := validScene()
	sc.Camera.FOV = 0
	sc.Camera.Lens = 35
	assert.NoError(t, sc.Validate(), "lens replaces fov")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	sc := validScene()
	sc.Camera.Lens, sc.Camera.SensorWidth = 50, 36
	require.NoError(t, Save(path, sc))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sc, got)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"camera":{"fov":40}}`), 0o644))
	_, err = Load(invalid)
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	sc := validScene()
	c := sc.Clone()
	c.Objects[0].ID = "changed"
	c.Sky.Type = "gradient"
	c.Camera.Position.X = 42
	assert.Equal(t, "o", sc.Objects[0].ID)
	assert.Equal(t, "solid", sc.Sky.Type)
	assert.Equal(t, 1.0, sc.Camera.Position.X)
}
