package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/repositories"
	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toFields(t *testing.T, task models.Task) map[string]any {
	t.Helper()
	data, err := json.Marshal(task)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestMerge(t *testing.T) {
	local := newTask("Frieren", models.StatusDownloading)
	local.Metadata = &models.Metadata{AnimeTitle: "Frieren", SongTitle: "Yuusha", Type: models.SongOpening}
	local.CustomKeywords = "1080p"

	t.Run("Only Remote Fields Change", func(t *testing.T) {
		merged := Merge(local, RemoteState{Status: models.StatusFailed, Progress: 30, ErrorMessage: "no seeders"}, fixedNow)

		before, after := toFields(t, local), toFields(t, merged)
		for field, owner := range FieldOwnership {
			if owner == OwnedLocally {
				assert.Equal(t, before[field], after[field], "locally owned field %s changed", field)
			}
		}
		for field := range after {
			_, known := FieldOwnership[field]
			assert.True(t, known, "field %s has no owner", field)
		}

		assert.Equal(t, models.StatusFailed, merged.Status)
		assert.Equal(t, 30.0, merged.Progress)
		assert.Equal(t, "no seeders", merged.ErrorMessage)
		assert.True(t, merged.UpdatedAt.Equal(fixedNow))
	})

	t.Run("Does Not Alias Local", func(t *testing.T) {
		merged := Merge(local, RemoteState{Status: models.StatusCompleted, Progress: 100}, fixedNow)
		merged.Metadata.SongTitle = "changed"
		assert.Equal(t, "Yuusha", local.Metadata.SongTitle)
	})

	t.Run("Clamps Progress", func(t *testing.T) {
		tests := []struct {
			in, want float64
		}{
			{-5, 0},
			{0, 0},
			{55.5, 55.5},
			{100, 100},
			{250, 100},
		}
		for _, tt := range tests {
			merged := Merge(local, RemoteState{Status: models.StatusDownloading, Progress: tt.in}, fixedNow)
			assert.Equal(t, tt.want, merged.Progress, "progress %v", tt.in)
		}
	})

	t.Run("Error Kept Only When Failed", func(t *testing.T) {
		failed := local
		failed.ErrorMessage = "old"
		merged := Merge(failed, RemoteState{Status: models.StatusCompleted, Progress: 100, ErrorMessage: "stale"}, fixedNow)
		assert.Empty(t, merged.ErrorMessage)
	})

	t.Run("Latest Read Wins", func(t *testing.T) {
		done := Merge(local, RemoteState{Status: models.StatusCompleted, Progress: 100}, fixedNow)
		stale := Merge(done, RemoteState{Status: models.StatusDownloading, Progress: 40}, fixedNow.Add(time.Second))
		assert.Equal(t, models.StatusDownloading, stale.Status)
		assert.Equal(t, 40.0, stale.Progress)
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Completed Stays Active Until Archived", func(t *testing.T) {
		task := newTask("Show A", models.StatusDownloading)
		h := newHarness(t, task)
		h.engine.SetJobs(services.JobStatus{TaskID: task.ID, Status: "completed", Progress: 100})

		list := h.manager.ListActive(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, models.StatusCompleted, list[0].Status)
		assert.Equal(t, models.StatusCompleted, h.durable()[task.ID].Status, "terminal transition must be flushed immediately")
		assert.False(t, h.sched.Pending())
		assert.Equal(t, 0, h.history.Len())

		again := h.manager.ListActive(ctx)
		require.Len(t, again, 1)
		assert.Equal(t, task.ID, again[0].ID)
	})

	t.Run("Unknown Ids Are Discarded", func(t *testing.T) {
		task := newTask("Show A", models.StatusDownloading)
		h := newHarness(t, task)
		h.engine.SetJobs(
			services.JobStatus{TaskID: "stranger", Status: "downloading", Progress: 10},
			services.JobStatus{TaskID: task.ID, Status: "downloading", Progress: 20},
		)

		list := h.manager.ListActive(ctx)
		require.Len(t, list, 1)
		assert.False(t, h.cache.Has("stranger"))
		assert.Equal(t, 20.0, list[0].Progress)
	})

	t.Run("Progress Only Is Debounced", func(t *testing.T) {
		task := newTask("Show A", models.StatusDownloading)
		h := newHarness(t, task)
		h.engine.SetJobs(services.JobStatus{TaskID: task.ID, Status: "downloading", Progress: 50})

		h.manager.ListActive(ctx)
		assert.True(t, h.sched.Pending())
		assert.Equal(t, 0, h.store.Saves(repositories.ActiveDocument))
	})

	t.Run("Unchanged State Is Not Rewritten", func(t *testing.T) {
		task := newTask("Show A", models.StatusDownloading)
		task.Progress = 50
		h := newHarness(t, task)
		h.engine.SetJobs(services.JobStatus{TaskID: task.ID, Status: "downloading", Progress: 50})

		list := h.manager.ListActive(ctx)
		assert.False(t, h.sched.Pending())
		assert.True(t, list[0].UpdatedAt.Equal(task.UpdatedAt))
	})

	t.Run("Several Terminal Records Share One Flush", func(t *testing.T) {
		a, b := newTask("A", models.StatusDownloading), newTask("B", models.StatusDownloading)
		h := newHarness(t, a, b)
		h.engine.SetJobs(
			services.JobStatus{TaskID: a.ID, Status: "completed", Progress: 100},
			services.JobStatus{TaskID: b.ID, Status: "failed", Progress: 12, ErrorMessage: "timeout"},
		)

		h.manager.ListActive(ctx)
		assert.Equal(t, 1, h.store.Saves(repositories.ActiveDocument))
		assert.Equal(t, "timeout", h.durable()[b.ID].ErrorMessage)
	})

	t.Run("Unparsable Status Is Skipped", func(t *testing.T) {
		task := newTask("Show A", models.StatusDownloading)
		h := newHarness(t, task)
		h.engine.SetJobs(services.JobStatus{TaskID: task.ID, Status: "paused", Progress: 70})

		list := h.manager.ListActive(ctx)
		assert.Equal(t, models.StatusDownloading, list[0].Status)
		assert.Equal(t, 0.0, list[0].Progress)
	})

	t.Run("Engine Unavailable Returns Cache", func(t *testing.T) {
		task := newTask("Show A", models.StatusDownloading)
		h := newHarness(t, task)
		h.engine.SnapshotErr = errors.Join(shared.ErrExternalUnavailable, errors.New("connection refused"))

		list := h.manager.ListActive(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, task, list[0])
		assert.ErrorIs(t, h.manager.Reconcile(ctx), shared.ErrExternalUnavailable)
		assert.Equal(t, 0, h.store.Saves(repositories.ActiveDocument))
	})
}
