package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/desertthunder/anisong/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaskService struct {
	active   []models.Task
	history  []models.Task
	batchReq tasks.BatchRequest
	batchErr error
	started  []string
	deleted  []string
	archived []string
}

func (f *fakeTaskService) ListActive(ctx context.Context) []models.Task { return f.active }
func (f *fakeTaskService) ListHistory() []models.Task                   { return f.history }

func (f *fakeTaskService) CreateBatch(ctx context.Context, req tasks.BatchRequest, prog chan<- tasks.ProgressUpdate) ([]models.Task, error) {
	f.batchReq = req
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := []models.Task{}
	for _, title := range req.Titles {
		out = append(out, models.NewTask(title, req.TargetDir, req.Source, req.DownloadMode, nil, time.Now()))
	}
	return out, nil
}

func (f *fakeTaskService) StartDownload(ctx context.Context, id string) { f.started = append(f.started, id) }
func (f *fakeTaskService) DeleteTask(ctx context.Context, id string)    { f.deleted = append(f.deleted, id) }

func (f *fakeTaskService) ArchiveTask(ctx context.Context, id string) bool {
	f.archived = append(f.archived, id)
	return id == "done"
}

type fakeHealth struct{ report services.HealthReport }

func (f fakeHealth) Report() services.HealthReport { return f.report }

func newTestRouter(svc TaskService, health HealthReporter) http.Handler {
	r := NewBasicRouter()
	r.Use(Recover(shared.NewLogger(io.Discard)))
	r.Handler(NewTaskHandler(svc, health, shared.NewLogger(io.Discard)))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func TestTaskHandler(t *testing.T) {
	t.Run("List Active", func(t *testing.T) {
		task := models.NewTask("Frieren", "/music", models.SourceVideoPlatform, models.ModeVideo, nil, time.Now())
		svc := &fakeTaskService{active: []models.Task{task}}

		rec := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/tasks", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got []models.Task
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, task.ID, got[0].ID)
	})

	t.Run("List History", func(t *testing.T) {
		svc := &fakeTaskService{history: []models.Task{}}
		rec := do(t, newTestRouter(svc, nil), http.MethodGet, "/api/history", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("Create Batch", func(t *testing.T) {
		svc := &fakeTaskService{}
		body := `{"titles":["A","B"],"target_dir":"/music","source":"dmhy","download_mode":"torrent","token":"t"}`

		rec := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/tasks/batch", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, []string{"A", "B"}, svc.batchReq.Titles)
		assert.Equal(t, models.SourceTorrentIndex, svc.batchReq.Source)
		assert.Equal(t, "t", svc.batchReq.Token)

		var got []models.Task
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Len(t, got, 2)
	})

	t.Run("Create Batch Rejects Bad Input", func(t *testing.T) {
		svc := &fakeTaskService{batchErr: errors.Join(shared.ErrInvalidInput, errors.New("unknown source"))}

		rec := do(t, newTestRouter(svc, nil), http.MethodPost, "/api/tasks/batch", `{"titles":["A"]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = do(t, newTestRouter(svc, nil), http.MethodPost, "/api/tasks/batch", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "detail")
	})

	t.Run("Start Delete Archive", func(t *testing.T) {
		svc := &fakeTaskService{}
		router := newTestRouter(svc, nil)

		assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/api/tasks/abc/start", "").Code)
		assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodDelete, "/api/tasks/abc", "").Code)

		rec := do(t, router, http.MethodPost, "/api/tasks/done/archive", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"archived":true}`, rec.Body.String())

		rec = do(t, router, http.MethodPost, "/api/tasks/pending/archive", "")
		assert.JSONEq(t, `{"archived":false}`, rec.Body.String())

		assert.Equal(t, []string{"abc"}, svc.started)
		assert.Equal(t, []string{"abc"}, svc.deleted)
		assert.Equal(t, []string{"done", "pending"}, svc.archived)
	})

	t.Run("Wrong Method", func(t *testing.T) {
		rec := do(t, newTestRouter(&fakeTaskService{}, nil), http.MethodPut, "/api/tasks", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("Engine Health", func(t *testing.T) {
		checked := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
		health := fakeHealth{report: services.HealthReport{Status: services.HealthUnhealthy, Err: errors.New("connection refused"), CheckedAt: checked}}

		rec := do(t, newTestRouter(&fakeTaskService{}, health), http.MethodGet, "/api/engine/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"unhealthy","error":"connection refused","checked_at":"2024-04-01T12:00:00Z"}`, rec.Body.String())

		rec = do(t, newTestRouter(&fakeTaskService{}, nil), http.MethodGet, "/api/engine/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestListenAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler(), shared.NewLogger(io.Discard))
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
