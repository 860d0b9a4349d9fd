package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

func TestEngineClient(t *testing.T) {
	t.Run("NewEngineClient", func(t *testing.T) {
		t.Run("creates client with default URL", func(t *testing.T) {
			if c := NewEngineClient("", time.Second, nil); c.BaseURL() != defaultBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultBaseURL, c.BaseURL())
			}
		})

		t.Run("creates client with custom URL", func(t *testing.T) {
			if c := NewEngineClient("http://localhost:9000", time.Second, nil); c.BaseURL() != "http://localhost:9000" {
				t.Errorf("unexpected baseURL %s", c.BaseURL())
			}
		})
	})

	t.Run("Snapshot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/tasks" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]map[string]any{
				{"task_id": "a", "status": "downloading", "progress": 42.5, "speed": "1MB/s"},
				{"task_id": "b", "status": "failed", "progress": 10, "error_message": "no seeders"},
			})
		}))
		defer server.Close()

		jobs, err := NewEngineClient(server.URL, time.Second, nil).Snapshot(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(jobs) != 2 {
			t.Fatalf("expected 2 jobs, got %d", len(jobs))
		}
		if jobs[0].TaskID != "a" || jobs[0].Progress != 42.5 {
			t.Errorf("unexpected first job %+v", jobs[0])
		}
		if jobs[1].ErrorMessage != "no seeders" {
			t.Errorf("expected error message to decode, got %q", jobs[1].ErrorMessage)
		}
	})

	t.Run("Start", func(t *testing.T) {
		t.Run("sends locally owned fields", func(t *testing.T) {
			var got StartRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/download" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("expected JSON content type, got %s", ct)
				}
				json.NewDecoder(r.Body).Decode(&got)
				json.NewEncoder(w).Encode(map[string]any{"success": true, "task_id": got.TaskID, "status": "downloading", "progress": 0})
			}))
			defer server.Close()

			task := models.NewTask("Frieren", "/music", models.SourceTorrentIndex, models.ModeTorrent, &models.Metadata{SongTitle: "Yuusha"}, time.Now())
			task.CustomKeywords = "1080p"

			reply, err := NewEngineClient(server.URL, time.Second, nil).Start(context.Background(), NewStartRequest(task))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if got.TaskID != task.ID || got.Source != models.SourceTorrentIndex || got.CustomKeywords != "1080p" {
				t.Errorf("unexpected request body %+v", got)
			}
			if got.Metadata == nil || got.Metadata.SongTitle != "Yuusha" {
				t.Errorf("expected metadata to be sent, got %+v", got.Metadata)
			}
			if reply == nil || reply.Status != "downloading" {
				t.Errorf("unexpected reply %+v", reply)
			}
		})

		t.Run("empty reply", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			}))
			defer server.Close()

			reply, err := NewEngineClient(server.URL, time.Second, nil).Start(context.Background(), StartRequest{TaskID: "a"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if reply != nil {
				t.Errorf("expected nil reply, got %+v", reply)
			}
		})

		t.Run("rejection decodes detail", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				json.NewEncoder(w).Encode(map[string]string{"detail": "target_dir is not writable"})
			}))
			defer server.Close()

			_, err := NewEngineClient(server.URL, time.Second, nil).Start(context.Background(), StartRequest{TaskID: "a"})
			if !errors.Is(err, shared.ErrEngineRejected) {
				t.Fatalf("expected ErrEngineRejected, got %v", err)
			}
			if want := "target_dir is not writable"; !strings.Contains(err.Error(), want) {
				t.Errorf("expected %q in %q", want, err.Error())
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		var path string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("expected DELETE, got %s", r.Method)
			}
			path = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		if err := NewEngineClient(server.URL, time.Second, nil).Delete(context.Background(), "abc-123"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if path != "/tasks/abc-123" {
			t.Errorf("unexpected path %s", path)
		}
	})

	t.Run("Health", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(HealthStatus{Status: "healthy"})
		}))
		defer server.Close()

		status, err := NewEngineClient(server.URL, time.Second, nil).Health(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !status.Healthy() {
			t.Errorf("expected healthy, got %q", status.Status)
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := NewEngineClient(url, time.Second, nil).Snapshot(context.Background())
		if !errors.Is(err, shared.ErrExternalUnavailable) {
			t.Errorf("expected ErrExternalUnavailable, got %v", err)
		}
	})
}
