package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
)

// StartDownload marks a task downloading and asks the engine to start it.
//
// Pending tasks start; failed tasks restart as an explicit retry. Downloading and completed tasks are left alone.
// Unknown ids are logged and ignored. An engine error marks the task failed with the error as its message.
// The manager never retries on its own and does not wait for the download to finish.
func (m *Manager) StartDownload(ctx context.Context, id string) {
	var prevStatus models.Status
	task, err := m.cache.Update(id, func(t models.Task) models.Task {
		prevStatus = t.Status
		if t.Status == models.StatusDownloading || t.Status == models.StatusCompleted {
			return t
		}
		t.Status = models.StatusDownloading
		t.Progress = 0
		t.ErrorMessage = ""
		t.UpdatedAt = m.now()
		return t
	})
	if err != nil {
		m.logger.Warn("start ignored", "id", id, "kind", shared.ErrorKind(err))
		return
	}
	if prevStatus == models.StatusDownloading || prevStatus == models.StatusCompleted {
		m.logger.Info("start ignored", "id", id, "status", prevStatus, "kind", shared.ErrorKind(shared.ErrInvalidTransition))
		return
	}

	m.flush(ctx)
	m.logger.Info("starting download", "id", id, "title", task.AnimeTitle, "retry", prevStatus == models.StatusFailed)

	reply, err := m.engine.Start(ctx, services.NewStartRequest(task))
	if err != nil {
		m.markFailed(ctx, id, fmt.Sprintf("failed to start download: %v", err))
		m.logger.Error("engine start failed", "id", id, "kind", shared.ErrorKind(err), "error", err)
		return
	}

	if reply != nil && reply.Status != "" {
		m.mergeStartReply(ctx, id, reply)
	}
}

// markFailed records a start failure on the task if it is still active.
func (m *Manager) markFailed(ctx context.Context, id, message string) {
	_, err := m.cache.Update(id, func(t models.Task) models.Task {
		t.Status = models.StatusFailed
		t.ErrorMessage = message
		t.UpdatedAt = m.now()
		return t
	})
	if err != nil {
		m.logger.Debug("task removed during start", "id", id)
		return
	}
	m.flush(ctx)
}

// mergeStartReply applies the engine's synchronous start reply through [Merge].
func (m *Manager) mergeStartReply(ctx context.Context, id string, reply *services.StartResponse) {
	status, err := models.ParseStatus(reply.Status)
	if err != nil {
		m.logger.Warn("ignoring start reply", "id", id, "kind", shared.ErrorKind(err), "error", err)
		return
	}

	remote := RemoteState{Status: status, Progress: reply.Progress, ErrorMessage: reply.ErrorMessage}
	if status == models.StatusFailed {
		if remote.ErrorMessage == "" {
			remote.ErrorMessage = "engine rejected download"
		}
		remote.ErrorMessage = fmt.Sprintf("failed to start download: %s", remote.ErrorMessage)
		m.logger.Error("engine rejected start", "id", id, "kind", shared.ErrorKind(shared.ErrEngineRejected), "error", reply.ErrorMessage)
	}

	var changed, forced bool
	_, err = m.cache.Update(id, func(local models.Task) models.Task {
		merged := Merge(local, remote, m.now())
		if !executionChanged(local, merged) {
			return local
		}
		changed, forced = true, needsForcedFlush(local, merged)
		return merged
	})
	if err != nil {
		m.logger.Debug("task removed during start", "id", id)
		return
	}

	switch {
	case forced:
		m.flush(ctx)
	case changed:
		m.scheduler.Schedule()
	}
}
