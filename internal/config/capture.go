// Package config loads capture job files and viewer property files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/linusmossberg/light-field-renderer/internal/capture"
	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
	"github.com/linusmossberg/light-field-renderer/internal/manifest"
	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIGHTFIELD_"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Capture describes a capture job.
type Capture struct {
	Scene      string `json:"scene" env:"SCENE"`
	CameraName string `json:"camera_name" env:"CAMERA_NAME"`

	// ExtentX and ExtentY are the grid extents in millimetres. A zero ExtentY
	// reuses the horizontal baseline.
	ExtentX float64 `json:"extent_x" env:"EXTENT_X"`
	ExtentY float64 `json:"extent_y" env:"EXTENT_Y"`
	NumX    int     `json:"num_x" env:"NUM_X"`
	NumY    int     `json:"num_y" env:"NUM_Y"`

	OutputDir    string                  `json:"output_dir" env:"OUTPUT_DIR"`
	Extension    string                  `json:"extension" env:"EXTENSION"`
	UnitScale    float64                 `json:"unit_scale" env:"UNIT_SCALE"`
	OnError      string                  `json:"on_error" env:"ON_ERROR"`
	SkipExisting bool                    `json:"skip_existing" env:"SKIP_EXISTING"`
	Format       lightfield.FormatPolicy `json:"format"`

	// Manifest is the session database path. Empty means manifest.db in
	// OutputDir; "-" disables recording.
	Manifest string `json:"manifest" env:"MANIFEST"`
	Workers  int    `json:"workers" env:"WORKERS"`

	// Settings overrides the non-zero fields of the scene's render settings.
	Settings scene.RenderSettings `json:"settings"`
}

// RenderSettings merges c.Settings over base.
func (c *Capture) RenderSettings(base scene.RenderSettings) scene.RenderSettings {
	if c.Settings.Width > 0 {
		base.Width = c.Settings.Width
	}
	if c.Settings.Height > 0 {
		base.Height = c.Settings.Height
	}
	if c.Settings.SamplesPerPx > 0 {
		base.SamplesPerPx = c.Settings.SamplesPerPx
	}
	if c.Settings.MaxDepth > 0 {
		base.MaxDepth = c.Settings.MaxDepth
	}
	return base
}

// DefaultCapture returns the 27x27, 800 mm capture with full-precision names.
func DefaultCapture() *Capture {
	return &Capture{
		ExtentX:   800,
		NumX:      27,
		NumY:      27,
		OutputDir: "lightfield",
		Extension: ".png",
		UnitScale: capture.DefaultUnitScale,
		OnError:   capture.Abort.String(),
		Format:    lightfield.DefaultFormat,
	}
}

// LoadCapture reads a capture job from a JSON file, applies LIGHTFIELD_*
// environment overrides and validates the result. Fields missing from the file
// keep their defaults. Relative scene, output and manifest paths are resolved
// against the file's directory.
func LoadCapture(path string) (*Capture, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultCapture()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	base := filepath.Dir(cleanPath)
	cfg.Scene = resolve(base, cfg.Scene)
	cfg.OutputDir = resolve(base, cfg.OutputDir)
	if cfg.Manifest != "-" {
		cfg.Manifest = resolve(base, cfg.Manifest)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LIGHTFIELD_* environment variables.
func (c *Capture) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Grid returns the capture grid, filling in ExtentY when it is zero.
func (c *Capture) Grid() (lightfield.Grid, error) {
	h := lightfield.Aperture{Extent: c.ExtentX, Count: c.NumX}
	v := lightfield.Aperture{Extent: c.ExtentY, Count: c.NumY}
	if v.Extent == 0 && c.NumX > 1 {
		v = lightfield.SameBaseline(h, c.NumY)
	}
	return lightfield.NewGrid(h, v)
}

// Policy returns the parsed OnError policy.
func (c *Capture) Policy() (capture.Policy, error) {
	return capture.ParsePolicy(c.OnError)
}

// ManifestPath returns where sessions are recorded, or "" when disabled.
func (c *Capture) ManifestPath() string {
	switch c.Manifest {
	case "-":
		return ""
	case "":
		return filepath.Join(c.OutputDir, manifest.DefaultFile)
	}
	return c.Manifest
}

// Validate checks the job before any rendering starts.
func (c *Capture) Validate() error {
	if c.Scene == "" {
		return fmt.Errorf("scene is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if _, err := c.Grid(); err != nil {
		return err
	}
	if c.CameraName != "" {
		if err := lightfield.ValidateName(c.CameraName); err != nil {
			return err
		}
	}
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if c.UnitScale <= 0 {
		return fmt.Errorf("unit_scale must be positive, got %v", c.UnitScale)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if s := c.Settings; s.Width < 0 || s.Height < 0 || s.SamplesPerPx < 0 || s.MaxDepth < 0 {
		return fmt.Errorf("negative render settings %+v", s)
	}
	return nil
}
