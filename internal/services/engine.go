package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// EngineClient talks to the download engine's HTTP API.
type EngineClient struct {
	client
}

// NewEngineClient creates a client for baseURL. A nil httpClient gets one with the given timeout.
func NewEngineClient(baseURL string, timeout time.Duration, httpClient *http.Client) *EngineClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &EngineClient{client{name: "engine", baseURL: baseURL, httpClient: httpClient}}
}

// BaseURL returns the engine address.
func (e *EngineClient) BaseURL() string {
	return e.baseURL
}

// Snapshot returns the execution state of every job the engine knows.
//
// Calls GET /tasks.
func (e *EngineClient) Snapshot(ctx context.Context) ([]JobStatus, error) {
	var jobs []JobStatus
	if err := e.doRequest(ctx, http.MethodGet, "/tasks", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Start asks the engine to begin req. The reply is nil when the engine sent no body.
//
// Calls POST /download.
func (e *EngineClient) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	var resp StartResponse
	if err := e.doRequest(ctx, http.MethodPost, "/download", req, &resp); err != nil {
		return nil, err
	}
	if resp.TaskID == "" && resp.Status == "" && !resp.Success {
		return nil, nil
	}
	return &resp, nil
}

// Delete removes the engine's job for taskID.
//
// Calls DELETE /tasks/{id}.
func (e *EngineClient) Delete(ctx context.Context, taskID string) error {
	endpoint := fmt.Sprintf("/tasks/%s", url.PathEscape(taskID))
	return e.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// Health checks GET /health.
func (e *EngineClient) Health(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	if err := e.doRequest(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return HealthStatus{}, err
	}
	return status, nil
}
