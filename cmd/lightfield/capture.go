package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/linusmossberg/light-field-renderer/internal/capture"
	"github.com/linusmossberg/light-field-renderer/internal/config"
	"github.com/linusmossberg/light-field-renderer/internal/engine"
	"github.com/linusmossberg/light-field-renderer/internal/host"
	"github.com/linusmossberg/light-field-renderer/internal/manifest"
	"github.com/linusmossberg/light-field-renderer/internal/scene"
)

var captureCommand = &cli.Command{
	Name:      "capture",
	Usage:     "render every view of a light-field grid",
	ArgsUsage: "CONFIG.json",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "mode", Value: "preview", Usage: "render quality when the scene has no settings: preview or final"},
	},
	Action: captureAction,
}

func captureAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected a capture config file")
	}
	cfg, err := config.LoadCapture(c.Args().First())
	if err != nil {
		return err
	}
	sc, err := scene.Load(cfg.Scene)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	grid, err := cfg.Grid()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	settings := cfg.RenderSettings(engine.SettingsFor(sc, c.String("mode")))
	tracer, err := host.NewTracer(sc, settings,
		host.WithWorkers(cfg.Workers),
		host.WithLogger(logger.Named("tracer")))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	opts := capture.Options{
		Grid:         grid,
		Name:         cfg.CameraName,
		Dir:          cfg.OutputDir,
		Extension:    cfg.Extension,
		Format:       &cfg.Format,
		UnitScale:    cfg.UnitScale,
		Policy:       policy,
		SkipExisting: cfg.SkipExisting,
		Logger:       logger.Named("capture"),
	}
	if path := cfg.ManifestPath(); path != "" {
		store, err := manifest.Open(c.Context, path, manifest.WithLogger(logger.Named("manifest")))
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer store.Close()
		opts.Recorder = store
	}

	start := time.Now()
	opts.Progress = func(p capture.Progress) {
		elapsed := time.Since(start)
		eta := time.Duration(float64(elapsed) / float64(p.Done) * float64(p.Total-p.Done))
		logger.Infow("progress",
			"view", fmt.Sprintf("%d/%d", p.Done, p.Total),
			"file", filepath.Base(p.View.Path),
			"eta", eta.Round(time.Second).String(),
			"error", p.Err)
	}

	res, err := capture.Run(c.Context, tracer, opts)
	fmt.Fprintf(c.App.Writer, "session %s: %d captured, %d failed in %s\n",
		res.SessionID, len(res.Views), len(res.Failed), time.Since(start).Round(time.Millisecond))
	return err
}
