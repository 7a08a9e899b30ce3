package host

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/linusmossberg/light-field-renderer/internal/engine"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

// Tracer is a Context backed by the in-process path tracer. It owns a copy of
// the scene; SetPose moves that copy's camera.
type Tracer struct {
	mu sync.Mutex
	sc *scene.Scene
	// home is the camera as loaded. Setting its pose again restores it
	// verbatim, including a non-orthonormal Up.
	home    scene.Camera
	cfg     RenderConfig
	workers int
	logger  *zap.SugaredLogger
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithWorkers sets the render goroutine count (0 means one per CPU).
func WithWorkers(n int) TracerOption {
	return func(t *Tracer) { t.workers = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) TracerOption {
	return func(t *Tracer) { t.logger = logger }
}

// NewTracer returns a host over a copy of sc rendering with settings.
func NewTracer(sc *scene.Scene, settings scene.RenderSettings, opts ...TracerOption) (*Tracer, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	t := &Tracer{
		sc: sc.Clone(),
		cfg: RenderConfig{
			Width:        settings.Width,
			Height:       settings.Height,
			SamplesPerPx: settings.SamplesPerPx,
			MaxDepth:     settings.MaxDepth,
		},
		logger: zap.NewNop().Sugar(),
	}
	t.home = t.sc.Camera
	for _, opt := range opts {
		opt(t)
	}
	if err := t.engineConfig().Validate(); err != nil {
		return nil, fmt.Errorf("render settings: %w", err)
	}
	return t, nil
}

func (t *Tracer) CameraName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sc.Camera.Name == "" {
		return "Camera"
	}
	return t.sc.Camera.Name
}

func (t *Tracer) Lens() Lens {
	t.mu.Lock()
	defer t.mu.Unlock()
	aspect := float64(t.cfg.Width) / float64(t.cfg.Height)
	if t.sc.Camera.AspectRatio != 0 {
		aspect = t.sc.Camera.AspectRatio
	}
	f, s := t.sc.Camera.LensParams(aspect)
	return Lens{FocalLength: f, SensorWidth: s}
}

func (t *Tracer) Pose() (lightfield.Pose, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cameraPose(t.sc.Camera), nil
}

func cameraPose(c scene.Camera) lightfield.Pose {
	right, up, _ := c.Frame()
	return lightfield.Pose{Position: c.Position.R3(), Right: right, Up: up}
}

// SetPose places the camera at p. A pose with the current frame translates
// the camera and its target and leaves Up as it is. The pose of the loaded
// camera restores that camera exactly.
func (t *Tracer) SetPose(p lightfield.Pose) error {
	unit := lightfield.Pose{Right: r3.Unit(p.Right), Up: r3.Unit(p.Up)}
	back := unit.Back()
	if n := r3.Norm(back); n < 1e-9 || math.IsNaN(n) {
		return fmt.Errorf("pose frame is degenerate: right %v up %v", p.Right, p.Up)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if p == cameraPose(t.home) {
		t.sc.Camera = t.home
		return nil
	}

	cam := &t.sc.Camera
	cur := cameraPose(*cam)
	if sameDir(cur.Right, unit.Right) && sameDir(cur.Up, unit.Up) {
		look := r3.Sub(cam.Target.R3(), cam.Position.R3())
		cam.Position = scene.FromR3(p.Position)
		cam.Target = scene.FromR3(r3.Add(p.Position, look))
		return nil
	}

	dist := r3.Norm(r3.Sub(cam.Position.R3(), cam.Target.R3()))
	cam.Position = scene.FromR3(p.Position)
	cam.Target = scene.FromR3(r3.Sub(p.Position, r3.Scale(dist, r3.Unit(back))))
	cam.Up = scene.FromR3(unit.Up)
	return nil
}

func sameDir(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-12
}

func (t *Tracer) RenderConfig() (RenderConfig, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg, nil
}

func (t *Tracer) SetRenderConfig(cfg RenderConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.cfg
	t.cfg = cfg
	if err := t.engineConfig().Validate(); err != nil {
		t.cfg = prev
		return fmt.Errorf("render config: %w", err)
	}
	return nil
}

func (t *Tracer) engineConfig() engine.RenderConfig {
	return engine.RenderConfig{
		Width:        t.cfg.Width,
		Height:       t.cfg.Height,
		SamplesPerPx: t.cfg.SamplesPerPx,
		MaxDepth:     t.cfg.MaxDepth,
		Seed:         t.cfg.Seed,
		Workers:      t.workers,
	}
}

// Capture renders the current state and saves it to path.
func (t *Tracer) Capture(ctx context.Context, path string) (image.Image, error) {
	t.mu.Lock()
	sc := t.sc.Clone()
	cfg := t.engineConfig()
	t.mu.Unlock()

	img, err := engine.Render(ctx, sc, cfg)
	if err != nil {
		return nil, &CaptureError{Path: path, Err: fmt.Errorf("render: %w", err)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &CaptureError{Path: path, Err: err}
	}
	if err := imaging.Save(img, path); err != nil {
		return nil, &CaptureError{Path: path, Err: fmt.Errorf("save: %w", err)}
	}
	t.logger.Debugw("captured", "path", path, "seed", cfg.Seed)
	return img, nil
}
