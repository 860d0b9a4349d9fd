package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/desertthunder/anisong/internal/formatter"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/desertthunder/anisong/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TasksList syncs with the engine and prints the active tasks.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	return r.writeTasks(cmd, "Active Tasks", m.ListActive(ctx))
}

// TasksHistory prints the archived tasks.
func (r *Runner) TasksHistory(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}
	return r.writeTasks(cmd, "History", m.ListHistory())
}

func (r *Runner) writeTasks(cmd *cli.Command, title string, list []models.Task) error {
	if cmd.Bool("json") {
		if list == nil {
			list = []models.Task{}
		}
		return r.writeJSON(list, cmd.Bool("pretty"))
	}

	r.writePlainHeader(title)
	if len(list) == 0 {
		return r.writePlain("No tasks.\n")
	}
	return formatter.WriteTaskTable(r.output, list)
}

// TasksCreate creates one or more tasks per title, optionally starting them.
func (r *Runner) TasksCreate(ctx context.Context, cmd *cli.Command) error {
	titles := cmd.Args().Slice()
	if path := cmd.String("file"); path != "" {
		fromFile, err := readTitles(path)
		if err != nil {
			return err
		}
		titles = append(titles, fromFile...)
	}
	if len(titles) == 0 {
		return fmt.Errorf("%w: provide titles as arguments or with --file", shared.ErrMissingArgument)
	}

	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	token := cmd.String("token")
	if token == "" {
		token = r.config.Lookup.Token
	}

	req := tasks.BatchRequest{
		Titles:         titles,
		TargetDir:      cmd.String("target-dir"),
		Source:         models.Source(cmd.String("source")),
		DownloadMode:   models.DownloadMode(cmd.String("mode")),
		CustomKeywords: cmd.String("keywords"),
		Token:          token,
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range prog {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	created, err := m.CreateBatch(ctx, req, prog)
	close(prog)
	wg.Wait()
	if err != nil {
		return err
	}

	if cmd.Bool("start") {
		for i, task := range created {
			m.StartDownload(ctx, task.ID)
			if current, ok := m.Get(task.ID); ok {
				created[i] = current
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(created, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Created %d task(s)", len(created)))
	return formatter.WriteTaskTable(r.output, created)
}

// TasksStart asks the engine to start a task.
func (r *Runner) TasksStart(ctx context.Context, cmd *cli.Command) error {
	m, id, err := r.openTask(ctx, cmd)
	if err != nil {
		return err
	}

	m.StartDownload(ctx, id)

	task, _ := m.Get(id)
	if task.Status == models.StatusFailed {
		return r.writePlain("%s: %s (%s)\n", id, task.Status, task.ErrorMessage)
	}
	return r.writePlain("%s: %s\n", id, task.Status)
}

// TasksDelete removes an active task.
func (r *Runner) TasksDelete(ctx context.Context, cmd *cli.Command) error {
	m, id, err := r.openTask(ctx, cmd)
	if err != nil {
		return err
	}

	m.DeleteTask(ctx, id)
	return r.writePlain("deleted %s\n", id)
}

// TasksArchive moves a finished task into the history archive.
func (r *Runner) TasksArchive(ctx context.Context, cmd *cli.Command) error {
	m, id, err := r.openTask(ctx, cmd)
	if err != nil {
		return err
	}

	if !m.ArchiveTask(ctx, id) {
		task, _ := m.Get(id)
		return fmt.Errorf("%w: task %s is %s", shared.ErrInvalidTransition, id, task.Status)
	}
	return r.writePlain("archived %s\n", id)
}

// TasksExport writes active or archived tasks to a file.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	m, err := r.open(ctx)
	if err != nil {
		return err
	}

	name, list := "tasks", m.ListCached()
	if cmd.Bool("history") {
		name, list = "history", m.ListHistory()
	}

	path, err := formatter.WriteExport(list, cmd.String("format"), name, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("export complete", "tasks", len(list), "path", path)
	return r.writePlain("%s\n", path)
}

// openTask opens the manager and resolves the <id> argument to an active task.
func (r *Runner) openTask(ctx context.Context, cmd *cli.Command) (*tasks.Manager, string, error) {
	id := cmd.Args().First()
	if id == "" {
		return nil, "", fmt.Errorf("%w: task id is required", shared.ErrMissingArgument)
	}

	m, err := r.open(ctx)
	if err != nil {
		return nil, "", err
	}

	if _, ok := m.Get(id); !ok {
		return nil, "", fmt.Errorf("%w: task %s", shared.ErrNotFound, id)
	}
	return m, id, nil
}

// readTitles reads one title per line, skipping blanks.
func readTitles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open titles file: %w", err)
	}
	defer f.Close()

	var titles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if title := shared.CleanTitle(scanner.Text()); title != "" {
			titles = append(titles, title)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read titles file: %w", err)
	}
	return titles, nil
}
