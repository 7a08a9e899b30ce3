package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/linusmossberg/light-field-renderer/internal/dataset"
	"github.com/linusmossberg/light-field-renderer/internal/manifest"
)

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "load a dataset directory and print its camera array",
	ArgsUsage: "DIR",
	Action:    inspectAction,
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected a dataset directory")
	}
	arr, err := dataset.Load(c.Args().First(), dataset.WithLogger(logger.Named("dataset")))
	if err != nil {
		return err
	}

	kind := "perspective"
	if arr.LightSlab {
		kind = "light slab"
	}
	lo, hi := arr.Bounds()
	out := c.App.Writer
	fmt.Fprintf(out, "%s: %d views, %s, uv [%.4f, %.4f] x [%.4f, %.4f] m\n",
		arr.Dir, len(arr.Views), kind, lo.X, hi.X, lo.Y, hi.Y)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tCOL\tU (m)\tV (m)\tSIZE\tLENS\tFILE")
	for _, v := range arr.Views {
		lens := "-"
		if !arr.LightSlab {
			lens = fmt.Sprintf("%g/%g mm", v.Identifier.FocalLength, v.Identifier.SensorWidth)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.4f\t%.4f\t%dx%d\t%s\t%s\n",
			v.Identifier.Row, v.Identifier.Column, v.UV.X, v.UV.Y,
			v.Size.X, v.Size.Y, lens, filepath.Base(v.Path))
	}
	return tw.Flush()
}

var sessionsCommand = &cli.Command{
	Name:      "sessions",
	Usage:     "list recorded capture sessions, or the views of one session",
	ArgsUsage: "[SESSION-ID]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "manifest",
			Aliases:  []string{"m"},
			Usage:    "manifest database `FILE`",
			Required: true,
		},
	},
	Action: sessionsAction,
}

func sessionsAction(c *cli.Context) error {
	path := c.String("manifest")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	store, err := manifest.Open(c.Context, path, manifest.WithLogger(logger.Named("manifest")))
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	if id := c.Args().First(); id != "" {
		caps, err := store.Captures(c.Context, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "INDEX\tROW\tCOL\tSEED\tDURATION\tSTATUS\tPATH")
		for _, cp := range caps {
			status := "ok"
			switch {
			case cp.Error != "":
				status = cp.Error
			case cp.Skipped:
				status = "skipped"
			}
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
				cp.Sample.Index, cp.Sample.Row, cp.Sample.Column, cp.Seed, cp.Duration, status, cp.Path)
		}
		return tw.Flush()
	}

	sessions, err := store.Sessions(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "ID\tCAMERA\tGRID\tSTATUS\tCAPTURED\tFAILED\tSTARTED")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%d\t%d\t%s\n",
			s.ID, s.Camera, s.Grid.Horizontal.Count, s.Grid.Vertical.Count,
			s.Status, s.Captured, s.Failed, s.StartedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
