// package services defines the wire types exchanged with the download sidecar
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

const defaultBaseURL string = "http://127.0.0.1:8000"

// JobStatus is one record of the engine's status snapshot.
type JobStatus struct {
	TaskID       string  `json:"task_id"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// StartRequest asks the engine to begin a download under the caller's task id.
type StartRequest struct {
	TaskID         string              `json:"task_id"`
	AnimeTitle     string              `json:"anime_title"`
	TargetDir      string              `json:"target_dir"`
	Source         models.Source       `json:"source"`
	DownloadMode   models.DownloadMode `json:"download_mode"`
	Metadata       *models.Metadata    `json:"metadata,omitempty"`
	CustomKeywords string              `json:"custom_keywords,omitempty"`
}

// NewStartRequest copies the locally owned fields of t.
func NewStartRequest(t models.Task) StartRequest {
	return StartRequest{
		TaskID:         t.ID,
		AnimeTitle:     t.AnimeTitle,
		TargetDir:      t.TargetDir,
		Source:         t.Source,
		DownloadMode:   t.DownloadMode,
		Metadata:       t.Metadata,
		CustomKeywords: t.CustomKeywords,
	}
}

// StartResponse is the engine's synchronous reply to a start request.
//
// Status is empty when the engine accepted the job without reporting state.
type StartResponse struct {
	Success      bool    `json:"success"`
	TaskID       string  `json:"task_id"`
	Status       string  `json:"status,omitempty"`
	Progress     float64 `json:"progress"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// HealthStatus is the engine's health reply.
type HealthStatus struct {
	Status string `json:"status"`
}

// Healthy reports whether the engine answered "healthy".
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// client carries the shared request plumbing for the sidecar APIs.
type client struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func (c *client) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %v", shared.ErrExternalUnavailable, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: %s API error (status %d): %s", shared.ErrEngineRejected, c.name, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: %s API error: status %d", shared.ErrEngineRejected, c.name, resp.StatusCode)
	}

	if result != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: failed to read %s response: %v", shared.ErrExternalUnavailable, c.name, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrExternalUnavailable, c.name, err)
		}
	}

	return nil
}
