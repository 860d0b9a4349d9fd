package tasks

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

// Owner names which side writes a task field.
type Owner int

const (
	OwnedLocally Owner = iota
	OwnedRemotely
)

func (o Owner) String() string {
	if o == OwnedRemotely {
		return "remote"
	}
	return "local"
}

// FieldOwnership lists the writer of every persisted task field, keyed by JSON name.
//
// Locally owned fields are fixed at creation. Remotely owned fields are replaced wholesale by the latest engine read.
var FieldOwnership = map[string]Owner{
	"id":              OwnedLocally,
	"anime_title":     OwnedLocally,
	"target_dir":      OwnedLocally,
	"source":          OwnedLocally,
	"download_mode":   OwnedLocally,
	"metadata":        OwnedLocally,
	"custom_keywords": OwnedLocally,
	"created_at":      OwnedLocally,
	"status":          OwnedRemotely,
	"progress":        OwnedRemotely,
	"error_message":   OwnedRemotely,
	"updated_at":      OwnedRemotely,
}

// RemoteState is the engine's view of one task's execution.
type RemoteState struct {
	Status       models.Status
	Progress     float64
	ErrorMessage string
}

// Merge overlays remote execution state onto local and stamps it with at.
//
// Progress is clamped to [0, 100]. The error message survives only when the merged status is failed.
// There is no ordering check: the latest read wins.
func Merge(local models.Task, remote RemoteState, at time.Time) models.Task {
	merged := local.Clone()
	merged.Status = remote.Status
	merged.Progress = clampProgress(remote.Progress)
	merged.ErrorMessage = ""
	if remote.Status == models.StatusFailed {
		merged.ErrorMessage = remote.ErrorMessage
	}
	merged.UpdatedAt = at
	return merged
}

func clampProgress(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// executionChanged reports whether status, progress or error message differ.
func executionChanged(a, b models.Task) bool {
	return a.Status != b.Status || a.Progress != b.Progress || a.ErrorMessage != b.ErrorMessage
}

// needsForcedFlush reports whether moving from prev to next is a state-defining transition.
func needsForcedFlush(prev, next models.Task) bool {
	if next.Status.IsTerminal() {
		return true
	}
	return next.Status == models.StatusDownloading && prev.Status != models.StatusDownloading
}

// Reconcile merges the engine's snapshot into the active cache.
//
// Only tasks already in the cache are touched. Records whose execution state is unchanged are not rewritten,
// so their updated_at keeps the time of the last real change rather than the time of the read.
// A single forced flush covers every state-defining transition in the pass; progress-only changes are debounced.
func (m *Manager) Reconcile(ctx context.Context) error {
	jobs, err := m.engine.Snapshot(ctx)
	if err != nil {
		return err
	}

	at := m.now()
	changed, force := 0, false
	for _, job := range jobs {
		status, err := models.ParseStatus(job.Status)
		if err != nil {
			m.logger.Warn("skipping engine record", "id", job.TaskID, "kind", shared.ErrorKind(err), "error", err)
			continue
		}
		remote := RemoteState{Status: status, Progress: job.Progress, ErrorMessage: job.ErrorMessage}

		var updated, forced bool
		_, err = m.cache.Update(job.TaskID, func(local models.Task) models.Task {
			merged := Merge(local, remote, at)
			if !executionChanged(local, merged) {
				return local
			}
			updated, forced = true, needsForcedFlush(local, merged)
			return merged
		})
		if errors.Is(err, shared.ErrNotFound) {
			m.logger.Debug("ignoring engine job without local task", "id", job.TaskID)
			continue
		}

		if updated {
			changed++
			force = force || forced
			m.logger.Debug("task reconciled", "id", job.TaskID, "status", status, "progress", remote.Progress)
		}
	}

	switch {
	case force:
		m.flush(ctx)
	case changed > 0:
		m.scheduler.Schedule()
	}
	return nil
}
