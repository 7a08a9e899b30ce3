// Command lightfield captures, inspects and views light-field datasets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var logger = zap.NewNop().Sugar()

func newApp() *cli.App {
	return &cli.App{
		Name:            "lightfield",
		Usage:           "capture and inspect light-field camera arrays",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var (
				l   *zap.Logger
				err error
			)
			if c.Bool("debug") {
				l, err = zap.NewDevelopment()
			} else {
				l, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			logger = l.Sugar()
			return nil
		},
		After: func(*cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			gridCommand,
			captureCommand,
			renderCommand,
			inspectCommand,
			sessionsCommand,
			viewCommand,
		},
	}
}

func main() {
	app := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lightfield:", err)
		stop()
		os.Exit(1)
	}
}
