// Package host abstracts the rendering application a light-field capture runs
// against: a camera pose, global render settings and a capture call.
package host

import (
	"context"
	"fmt"
	"image"

	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

// RenderConfig is the global render state a capture session may change.
type RenderConfig struct {
	Width        int
	Height       int
	SamplesPerPx int
	MaxDepth     int
	Seed         int64
}

// Lens describes the active camera optics in millimetres.
type Lens struct {
	FocalLength float64
	SensorWidth float64
}

// Context is the host-owned state a capture loop reads, mutates and must
// restore. Implementations need not be safe for concurrent use.
type Context interface {
	// CameraName is the name of the active camera, used to prefix identifiers.
	CameraName() string
	Lens() Lens

	Pose() (lightfield.Pose, error)
	SetPose(lightfield.Pose) error

	RenderConfig() (RenderConfig, error)
	SetRenderConfig(RenderConfig) error

	// Capture renders the current state and writes it to path. The format is
	// chosen from the path's extension. Failures are *CaptureError.
	Capture(ctx context.Context, path string) (image.Image, error)
}

// CaptureError is returned by Context.Capture.
type CaptureError struct {
	Path string
	Err  error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Path, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
