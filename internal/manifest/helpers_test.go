package manifest

import (
	"context"
	"image"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/linusmossberg/light-field-renderer/internal/host"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

// stubHost accepts every call and captures nothing to disk.
type stubHost struct {
	pose lightfield.Pose
	cfg  host.RenderConfig
}

func (h *stubHost) CameraName() string { return "Camera" }
func (h *stubHost) Lens() host.Lens    { return host.Lens{FocalLength: 35, SensorWidth: 24} }

func (h *stubHost) Pose() (lightfield.Pose, error) {
	if h.pose == (lightfield.Pose{}) {
		h.pose = lightfield.Pose{Right: r3.Vec{X: 1}, Up: r3.Vec{Y: 1}}
	}
	return h.pose, nil
}

func (h *stubHost) SetPose(p lightfield.Pose) error {
	h.pose = p
	return nil
}

func (h *stubHost) RenderConfig() (host.RenderConfig, error) { return h.cfg, nil }

func (h *stubHost) SetRenderConfig(cfg host.RenderConfig) error {
	h.cfg = cfg
	return nil
}

func (h *stubHost) Capture(context.Context, string) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}
