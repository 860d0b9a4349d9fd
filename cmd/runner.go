package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/repositories"
	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/desertthunder/anisong/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The task manager and its document store are opened on first use.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     tasks.Engine
	lookup     tasks.Lookup
	store      repositories.DocumentStore
	manager    *tasks.Manager
	closers    []func(context.Context) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Engine, Lookup and Store override the implementations otherwise built from Config.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Engine     tasks.Engine
	Lookup     tasks.Lookup
	Store      repositories.DocumentStore
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		engine:     opts.Engine,
		lookup:     opts.Lookup,
		store:      opts.Store,
	}
}

// SetLogger replaces the logger used by the runner and anything it opens afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tasksCommand, engineCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure is the root Before hook: it resolves the config file named by --config and applies the log level.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	config, err := shared.ResolveConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	r.config = config

	level := config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// engineClient returns a client for the configured engine.
func (r *Runner) engineClient() *services.EngineClient {
	return services.NewEngineClient(r.config.Engine.URL, r.config.Engine.Timeout, r.httpClient)
}

func (r *Runner) openEngine() tasks.Engine {
	if r.engine == nil {
		r.engine = r.engineClient()
	}
	return r.engine
}

func (r *Runner) openLookup() tasks.Lookup {
	if r.lookup == nil {
		r.lookup = services.NewLookupClient(r.config.Lookup.URL, r.config.Lookup.Timeout, r.httpClient)
	}
	return r.lookup
}

// openStore selects the document backend named by storage.driver.
func (r *Runner) openStore() (repositories.DocumentStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	switch r.config.Storage.Driver {
	case "sqlite":
		store, err := repositories.OpenSQLiteDocumentStore(r.config.Storage.DatabasePath)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func(context.Context) error {
			r.store = nil
			return store.Close()
		})
		r.store = store
	default:
		if err := os.MkdirAll(r.config.Storage.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create data directory: %v", shared.ErrPersistenceFailure, err)
		}
		r.store = repositories.NewFileDocumentStore(r.config.Storage.DataDir)
	}

	r.logger.Debug("document store opened", "driver", r.config.Storage.Driver)
	return r.store, nil
}

// open loads the task catalog and history and wires the manager.
func (r *Runner) open(ctx context.Context) (*tasks.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	storeLogger := shared.WithLogger(r.logger, "component", "store")
	cache := repositories.LoadTaskCache(ctx, store, storeLogger)
	history := repositories.LoadHistoryArchive(ctx, store, storeLogger)
	scheduler := repositories.NewPersistenceScheduler(
		cache, store, r.config.Storage.FlushDelay, shared.WithLogger(r.logger, "component", "scheduler"),
	)
	if dropped := repositories.DropArchived(cache, history, storeLogger); len(dropped) > 0 {
		_ = scheduler.Flush(ctx)
	}

	r.manager = tasks.NewManager(tasks.ManagerOpts{
		Cache:     cache,
		History:   history,
		Scheduler: scheduler,
		Engine:    r.openEngine(),
		Lookup:    r.openLookup(),
		Logger:    shared.WithLogger(r.logger, "component", "tasks"),
		RateLimit: r.config.Lookup.RateLimit,
		Workers:   r.config.Lookup.Workers,
	})
	r.closers = append(r.closers, r.manager.Close)
	return r.manager, nil
}

// Close releases everything opened by the runner in reverse order.
func (r *Runner) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	r.manager = nil
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
