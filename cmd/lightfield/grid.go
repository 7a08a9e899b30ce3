package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/linusmossberg/light-field-renderer/internal/lightfield"
)

var gridCommand = &cli.Command{
	Name:  "grid",
	Usage: "print the identifiers of a capture grid without rendering",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "extent-x", Value: 800, Usage: "horizontal extent in `MM`"},
		&cli.Float64Flag{Name: "extent-y", Usage: "vertical extent in `MM` (default: same baseline as x)"},
		&cli.IntFlag{Name: "num-x", Value: 27, Usage: "views per row"},
		&cli.IntFlag{Name: "num-y", Value: 27, Usage: "views per column"},
		&cli.StringFlag{Name: "name", Value: "Camera", Usage: "camera name prefix"},
		&cli.Float64Flag{Name: "focal-length", Value: 50, Usage: "lens focal length in `MM`"},
		&cli.Float64Flag{Name: "sensor-width", Value: 36, Usage: "sensor width in `MM`"},
		&cli.IntFlag{Name: "offset-precision", Value: 6, Usage: "decimals for offsets (-1 for shortest)"},
		&cli.IntFlag{Name: "lens-precision", Value: 6, Usage: "decimals for lens fields (-1 for shortest)"},
		&cli.BoolFlag{Name: "light-slab", Usage: "omit the lens fields"},
	},
	Action: gridAction,
}

func gridAction(c *cli.Context) error {
	h := lightfield.Aperture{Extent: c.Float64("extent-x"), Count: c.Int("num-x")}
	v := lightfield.Aperture{Extent: c.Float64("extent-y"), Count: c.Int("num-y")}
	if v.Extent == 0 && h.Count > 1 {
		v = lightfield.SameBaseline(h, v.Count)
	}
	g, err := lightfield.NewGrid(h, v)
	if err != nil {
		return err
	}

	name := c.String("name")
	if err := lightfield.ValidateName(name); err != nil {
		return err
	}
	policy := lightfield.FormatPolicy{
		OffsetPrecision: c.Int("offset-precision"),
		LensPrecision:   c.Int("lens-precision"),
		OmitLens:        c.Bool("light-slab"),
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	out := c.App.Writer
	for s := range g.Samples() {
		id := policy.Format(lightfield.Identifier{
			Name:        name,
			Row:         s.Row,
			Column:      s.Column,
			U:           s.U,
			V:           s.V,
			FocalLength: c.Float64("focal-length"),
			SensorWidth: c.Float64("sensor-width"),
		})
		fmt.Fprintf(out, "%4d\t%s\n", s.Index, id)
	}
	logger.Debugw("grid printed", "views", g.Len(),
		"baseline_x", g.Horizontal.Baseline(), "baseline_y", g.Vertical.Baseline())
	return nil
}
