package main

import (
	"context"
	"os"

	"github.com/desertthunder/anisong/internal/shared"
	"github.com/urfave/cli/v3"
)

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "anisong",
		Usage:   "Batch-download anime theme songs through a local download engine",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   runner.configure,
		Commands: runner.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	err := newApp(runner).Run(context.Background(), os.Args)
	if cerr := runner.Close(context.Background()); cerr != nil {
		logger.Error("failed to close runner", "error", cerr)
	}

	if err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
