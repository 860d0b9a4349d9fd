// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/anisong/internal/formatter"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"}
}

// setupCommand initializes configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize storage",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the SQLite document store and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tasksCommand handles the active task catalog and the history archive
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"t"},
		Usage:   "Create, start and manage download tasks",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List active tasks after syncing with the engine",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.TasksList,
			},
			{
				Name:   "history",
				Usage:  "List archived tasks",
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.TasksHistory,
			},
			{
				Name:      "create",
				Usage:     "Create tasks for one or more anime titles",
				ArgsUsage: "[title...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read titles from a file, one per line",
					},
					&cli.StringFlag{
						Name:     "target-dir",
						Aliases:  []string{"d"},
						Usage:    "Directory the engine saves files into",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Media source (youtube or dmhy)",
						Value: string(models.SourceVideoPlatform),
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Download mode (video or torrent)",
						Value: string(models.ModeVideo),
					},
					&cli.StringFlag{
						Name:  "keywords",
						Usage: "Extra search keywords passed to the engine",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Lookup token (defaults to lookup.token from config)",
					},
					&cli.BoolFlag{
						Name:  "start",
						Usage: "Start every created task immediately",
					},
					jsonFlag(),
					prettyFlag(),
				},
				Action: r.TasksCreate,
			},
			{
				Name:      "start",
				Usage:     "Start downloading a task",
				ArgsUsage: "<id>",
				Action:    r.TasksStart,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an active task",
				ArgsUsage: "<id>",
				Action:    r.TasksDelete,
			},
			{
				Name:      "archive",
				Usage:     "Move a completed or failed task into history",
				ArgsUsage: "<id>",
				Action:    r.TasksArchive,
			},
			{
				Name:  "export",
				Usage: "Export active or archived tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (" + strings.Join(formatter.Formats, ", ") + ")",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: {name}_{timestamp}.{ext})",
					},
					&cli.BoolFlag{
						Name:  "history",
						Usage: "Export the history archive instead of active tasks",
					},
				},
				Action: r.TasksExport,
			},
		},
	}
}

// engineCommand inspects the download engine
func engineCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "engine",
		Usage: "Download engine diagnostics",
		Commands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check engine health once",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.EngineHealth,
			},
			{
				Name:   "watch",
				Usage:  "Poll engine health and log transitions until interrupted",
				Action: r.EngineWatch,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the task API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand launches the dashboard
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive task dashboard",
		Action: r.TUI,
	}
}
