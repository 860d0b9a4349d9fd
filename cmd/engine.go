package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/urfave/cli/v3"
)

// engineHealthReply is the JSON shape of `engine health --json`.
type engineHealthReply struct {
	Engine    string    `json:"engine"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// healthMonitor builds a monitor over the engine override when it can report health, else over the configured engine.
func (r *Runner) healthMonitor() *services.HealthMonitor {
	var checker services.HealthChecker = r.engineClient()
	if hc, ok := r.engine.(services.HealthChecker); ok {
		checker = hc
	}
	logger := shared.WithLogger(r.logger, "component", "health")
	return services.NewHealthMonitor(checker, r.config.Engine.HealthInterval, 0, logger)
}

// EngineHealth probes the engine once.
//
// An unhealthy engine is reported and returned as an error so scripts can test the exit status.
func (r *Runner) EngineHealth(ctx context.Context, cmd *cli.Command) error {
	monitor := r.healthMonitor()
	monitor.Check(ctx)
	report := monitor.Report()

	reply := engineHealthReply{
		Engine:    r.config.Engine.URL,
		Status:    string(report.Status),
		CheckedAt: report.CheckedAt,
	}
	if report.Err != nil {
		reply.Error = report.Err.Error()
	}

	if cmd.Bool("json") {
		if err := r.writeJSON(reply, true); err != nil {
			return err
		}
	} else if err := r.writePlain("%s: %s\n", reply.Engine, reply.Status); err != nil {
		return err
	}

	if report.Status != services.HealthHealthy {
		return fmt.Errorf("%w: engine at %s is %s", shared.ErrExternalUnavailable, reply.Engine, reply.Status)
	}
	return nil
}

// EngineWatch polls engine health until interrupted, logging every transition.
func (r *Runner) EngineWatch(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("watching engine health", "engine", r.config.Engine.URL, "interval", r.config.Engine.HealthInterval)
	r.healthMonitor().Run(ctx)
	return nil
}
