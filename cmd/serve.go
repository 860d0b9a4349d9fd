package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/anisong/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve exposes the task manager over HTTP until interrupted.
//
// The engine health monitor runs alongside the server and backs GET /api/engine/health.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	monitor := r.healthMonitor()
	go monitor.Run(ctx)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger), server.Recover(r.logger))
	router.Handler(server.NewTaskHandler(m, monitor, r.logger))

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	return server.ListenAndServe(ctx, addr, router, r.logger)
}
