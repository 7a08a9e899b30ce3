package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 represents a simple 3D vector or point.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// R3 converts to a gonum vector.
func (v Vec3) R3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// FromR3 converts a gonum vector.
func FromR3(v r3.Vec) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// Color is an RGB color in linear space.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Default lens used when a camera only specifies a field of view.
const (
	DefaultSensorWidth = 36.0 // mm
	DefaultFocalLength = 50.0 // mm
)

// Camera describes the viewpoint for the renderer.
//
// When Lens is set, Lens and SensorWidth (both millimetres) define the
// horizontal field of view and FOV is ignored. Otherwise FOV is the vertical
// field of view in degrees.
type Camera struct {
	Name     string  `json:"name"`
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	Up       Vec3    `json:"up"`
	FOV      float64 `json:"fov"`

	Lens        float64 `json:"lens"`
	SensorWidth float64 `json:"sensor_width"`

	Aperture    float64 `json:"aperture"`
	FocusDist   float64 `json:"focus_dist"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// Frame returns the camera's orthonormal basis: right, up and back (pointing
// away from the target).
func (c Camera) Frame() (right, up, back r3.Vec) {
	back = r3.Unit(r3.Sub(c.Position.R3(), c.Target.R3()))
	right = r3.Unit(r3.Cross(c.Up.R3(), back))
	up = r3.Cross(back, right)
	return right, up, back
}

// LensParams returns the focal length and sensor width in millimetres. Cameras
// without a lens get the default sensor and the focal length that reproduces
// their vertical FOV at the given aspect ratio.
func (c Camera) LensParams(aspect float64) (focal, sensor float64) {
	if c.Lens > 0 {
		sensor = c.SensorWidth
		if sensor <= 0 {
			sensor = DefaultSensorWidth
		}
		return c.Lens, sensor
	}
	if c.FOV <= 0 || aspect <= 0 {
		return DefaultFocalLength, DefaultSensorWidth
	}
	sensorHeight := DefaultSensorWidth / aspect
	focal = sensorHeight / (2 * math.Tan(c.FOV*math.Pi/360))
	return focal, DefaultSensorWidth
}

// MaterialType enumerates supported material kinds.
type MaterialType string

const (
	MaterialLambert    MaterialType = "lambert"
	MaterialMetal      MaterialType = "metal"
	MaterialDielectric MaterialType = "dielectric"
	MaterialEmissive   MaterialType = "emissive"
	MaterialMirror     MaterialType = "mirror"
)

// Material describes surface properties.
type Material struct {
	ID   string       `json:"id"`
	Type MaterialType `json:"type"`

	Albedo Color   `json:"albedo"`
	Rough  float64 `json:"rough"` // lambert and metal
	IOR    float64 `json:"ior"`   // dielectric

	Emit  Color   `json:"emit"`
	Power float64 `json:"power"` // emit multiplier
}

// ObjectType enumerates supported geometric primitives.
type ObjectType string

const (
	ObjectSphere      ObjectType = "sphere"
	ObjectPlane       ObjectType = "plane"
	ObjectBox         ObjectType = "box"
	ObjectSphereLight ObjectType = "sphere_light"
)

// Object is a single entity in the scene.
type Object struct {
	ID   string     `json:"id"`
	Type ObjectType `json:"type"`

	Position Vec3 `json:"position"`
	Size     Vec3 `json:"size"` // radius for sphere: use X, for boxes: extents

	MaterialID string `json:"material_id"`
}

// RenderSettings defines quality/performance parameters.
type RenderSettings struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	SamplesPerPx int `json:"samples_per_px"`
	MaxDepth     int `json:"max_depth"`
}

// Sky describes sky/environment settings.
type Sky struct {
	Type    string `json:"type"`    // "solid" or "gradient"
	Color   Color  `json:"color"`   // solid
	Horizon Color  `json:"horizon"` // gradient
	Zenith  Color  `json:"zenith"`  // gradient
}

// Scene holds everything needed to render an image.
type Scene struct {
	Name      string         `json:"name"`
	Camera    Camera         `json:"camera"`
	Objects   []Object       `json:"objects"`
	Materials []Material     `json:"materials"`
	Settings  RenderSettings `json:"settings"`

	Background Color `json:"background"` // used when Sky is nil
	Sky        *Sky  `json:"sky"`
}

// Validate checks the parts of a scene the renderer cannot recover from.
func (sc *Scene) Validate() error {
	c := sc.Camera
	if c.Position == c.Target {
		return fmt.Errorf("camera position equals target")
	}
	right, _, _ := c.Frame()
	if r3.Norm(right) == 0 || math.IsNaN(right.X) {
		return fmt.Errorf("camera up vector is parallel to the view direction")
	}
	if c.Lens < 0 || c.SensorWidth < 0 {
		return fmt.Errorf("camera lens %v and sensor width %v must not be negative", c.Lens, c.SensorWidth)
	}
	if c.Lens == 0 && (c.FOV <= 0 || c.FOV >= 180) {
		return fmt.Errorf("camera fov %v out of range (0, 180)", c.FOV)
	}
	if s := sc.Settings; s.Width < 0 || s.Height < 0 || s.SamplesPerPx < 0 || s.MaxDepth < 0 {
		return fmt.Errorf("negative render settings %+v", s)
	}

	ids := make(map[string]bool, len(sc.Materials))
	for _, m := range sc.Materials {
		ids[m.ID] = true
	}
	for _, o := range sc.Objects {
		if !ids[o.MaterialID] {
			return fmt.Errorf("object %q: unknown material %q", o.ID, o.MaterialID)
		}
	}
	return nil
}
