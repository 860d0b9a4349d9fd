package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/desertthunder/anisong/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive task dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	if path := r.config.Log.File; path != "" {
		fileLogger, err := shared.NewFileLogger(path)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
		r.SetLogger(fileLogger)
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	monitor := r.healthMonitor()
	go monitor.Run(ctx)

	model := ui.NewModel(ctx, m, monitor, 0)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
