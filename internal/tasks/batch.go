package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
	"golang.org/x/time/rate"
)

// BatchRequest describes a set of titles to turn into tasks.
type BatchRequest struct {
	Titles         []string            `json:"titles"`
	TargetDir      string              `json:"target_dir"`
	Source         models.Source       `json:"source"`
	DownloadMode   models.DownloadMode `json:"download_mode"`
	CustomKeywords string              `json:"custom_keywords,omitempty"`
	Token          string              `json:"token,omitempty"`
}

// Validate checks the shared fields of the request.
func (r BatchRequest) Validate() error {
	if strings.TrimSpace(r.TargetDir) == "" {
		return fmt.Errorf("%w: target directory is required", shared.ErrInvalidInput)
	}
	if _, err := models.ParseSource(string(r.Source)); err != nil {
		return err
	}
	if _, err := models.ParseDownloadMode(string(r.DownloadMode)); err != nil {
		return err
	}
	return nil
}

// lookupResult is the outcome for one input title.
type lookupResult struct {
	index   int
	title   string
	matches []models.Metadata
	err     error
}

// CreateBatch expands titles into pending tasks and persists them.
//
// Each title is looked up independently: k matches yield k tasks titled by the match, zero matches or a lookup
// error yield one task with the raw title and no metadata. Lookup errors are logged, never returned.
// The returned error is non-nil only for an invalid request, in which case nothing is created.
func (m *Manager) CreateBatch(ctx context.Context, req BatchRequest, prog chan<- ProgressUpdate) ([]models.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(req.Titles))
	for _, title := range req.Titles {
		if cleaned := shared.CleanTitle(title); cleaned != "" {
			titles = append(titles, cleaned)
		}
	}
	if len(titles) == 0 {
		return []models.Task{}, nil
	}

	results := m.lookupAll(ctx, titles, req.Token, prog)

	at := m.now()
	seen := make(map[string]struct{})
	created := make([]models.Task, 0, len(titles))
	for _, res := range results {
		if len(res.matches) == 0 {
			created = append(created, m.newTask(seen, res.title, nil, req, at))
			continue
		}
		for _, match := range res.matches {
			meta := match
			title := meta.AnimeTitle
			if strings.TrimSpace(title) == "" {
				title = res.title
			}
			created = append(created, m.newTask(seen, title, &meta, req, at))
		}
	}
	sendProgress(prog, createTasksUpdate(len(created)))

	m.cache.Append(created...)
	m.flush(ctx)
	sendProgress(prog, persistTasksUpdate(len(created)))

	m.logger.Info("batch created", "titles", len(titles), "tasks", len(created))
	return created, nil
}

// newTask builds a pending task with an id unused by the cache, the history and the batch so far.
func (m *Manager) newTask(seen map[string]struct{}, title string, meta *models.Metadata, req BatchRequest, at time.Time) models.Task {
	for {
		task := models.NewTask(title, req.TargetDir, req.Source, req.DownloadMode, meta, at)
		task.CustomKeywords = req.CustomKeywords

		if _, dup := seen[task.ID]; dup || m.cache.Has(task.ID) || m.history.Has(task.ID) {
			continue
		}
		seen[task.ID] = struct{}{}
		return task
	}
}

// lookupAll resolves titles on a bounded worker pool paced by a token bucket, returning results in input order.
func (m *Manager) lookupAll(ctx context.Context, titles []string, token string, prog chan<- ProgressUpdate) []lookupResult {
	results := make([]lookupResult, len(titles))
	for i, title := range titles {
		results[i] = lookupResult{index: i, title: title}
	}
	if m.lookup == nil {
		return results
	}

	limiter := rate.NewLimiter(rate.Limit(m.rateLimit), 1)
	jobs := make(chan int, len(titles))
	done := make(chan lookupResult, len(titles))

	workers := min(m.workers, len(titles))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go m.lookupWorker(ctx, &wg, limiter, token, titles, jobs, done)
	}

	sendProgress(prog, lookupStartedUpdate(len(titles)))
	for i := range titles {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for res := range done {
		completed++
		results[res.index] = res
		if res.err != nil || len(res.matches) == 0 {
			sendProgress(prog, lookupFallbackUpdate(completed, len(titles), res.title, res.err))
		} else {
			sendProgress(prog, lookupDoneUpdate(completed, len(titles), res.title, len(res.matches)))
		}
	}
	return results
}

// lookupWorker searches titles from jobs until the channel closes.
func (m *Manager) lookupWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	token string,
	titles []string,
	jobs <-chan int,
	done chan<- lookupResult,
) {
	defer wg.Done()

	for i := range jobs {
		res := lookupResult{index: i, title: titles[i]}
		if err := limiter.Wait(ctx); err != nil {
			res.err = fmt.Errorf("%w: %v", shared.ErrExternalUnavailable, err)
		} else {
			res.matches, res.err = m.lookup.Search(ctx, titles[i], token)
		}

		if res.err != nil {
			m.logger.Warn("lookup failed, using fallback task", "title", res.title, "kind", shared.ErrorKind(res.err), "error", res.err)
			res.matches = nil
		}
		done <- res
	}
}
