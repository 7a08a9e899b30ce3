package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/linusmossberg/light-field-renderer/internal/config"
	"github.com/linusmossberg/light-field-renderer/internal/ui"
)

var viewCommand = &cli.Command{
	Name:      "view",
	Usage:     "open the interactive viewer on a dataset",
	ArgsUsage: "DIR",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "viewer property `FILE` (default: DIR/config.cfg)"},
	},
	Action: viewAction,
}

func viewAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected a dataset directory")
	}
	dir := c.Args().First()
	path := dir
	if p := c.String("config"); p != "" {
		path = p
	}
	cfg, err := config.LoadViewer(path)
	if err != nil {
		return err
	}
	return ui.Run(dir, cfg, logger.Named("viewer"))
}
