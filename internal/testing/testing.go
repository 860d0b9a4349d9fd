// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
)

// FakeEngine is a test double for the download engine.
//
// Snapshot returns Jobs (or SnapshotErr); Start records the request and returns StartReply (or StartErr).
type FakeEngine struct {
	mu          sync.Mutex
	Jobs        []services.JobStatus
	SnapshotErr error
	StartReply  *services.StartResponse
	StartErr    error
	DeleteErr   error
	Started     []services.StartRequest
	Deleted     []string
	OnStart     func(req services.StartRequest)
}

// SetJobs replaces the snapshot returned to callers.
func (f *FakeEngine) SetJobs(jobs ...services.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Jobs = jobs
}

func (f *FakeEngine) Snapshot(ctx context.Context) ([]services.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SnapshotErr != nil {
		return nil, f.SnapshotErr
	}
	return append([]services.JobStatus(nil), f.Jobs...), nil
}

func (f *FakeEngine) Start(ctx context.Context, req services.StartRequest) (*services.StartResponse, error) {
	f.mu.Lock()
	f.Started = append(f.Started, req)
	onStart, reply, err := f.OnStart, f.StartReply, f.StartErr
	f.mu.Unlock()

	if onStart != nil {
		onStart(req)
	}
	return reply, err
}

func (f *FakeEngine) Delete(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, taskID)
	return f.DeleteErr
}

// StartCount returns how many start requests were received.
func (f *FakeEngine) StartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Started)
}

// FakeLookup is a test double for the catalog lookup, keyed by title.
type FakeLookup struct {
	mu       sync.Mutex
	Matches  map[string][]models.Metadata
	Errors   map[string]error
	Calls    []string
	Tokens   []string
	inflight int
	peak     int
}

func (f *FakeLookup) Search(ctx context.Context, title, token string) ([]models.Metadata, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, title)
	f.Tokens = append(f.Tokens, token)
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	matches, err := f.Matches[title], f.Errors[title]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if err != nil {
		return nil, err
	}
	return append([]models.Metadata{}, matches...), nil
}

// Peak returns the highest number of concurrent searches observed.
func (f *FakeLookup) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
