package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/anisong/internal/shared"
)

// Status is the execution state of a download task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// IsTerminal reports whether the engine will make no further progress on the task.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source is where the engine looks for the media.
type Source string

const (
	SourceVideoPlatform Source = "youtube"
	SourceTorrentIndex  Source = "dmhy"
)

// DownloadMode selects how the engine fetches the media.
type DownloadMode string

const (
	ModeVideo   DownloadMode = "video"
	ModeTorrent DownloadMode = "torrent"
)

// SongType distinguishes opening and ending themes.
type SongType string

const (
	SongOpening SongType = "OP"
	SongEnding  SongType = "ED"
)

// Metadata is a catalog match attached to a task at creation.
type Metadata struct {
	AnimeTitle string   `json:"anime_title" yaml:"anime_title"`
	SongTitle  string   `json:"song_title" yaml:"song_title"`
	Artist     string   `json:"artist" yaml:"artist"`
	Type       SongType `json:"type" yaml:"type"`
	CatalogID  string   `json:"bangumi_id,omitempty" yaml:"bangumi_id,omitempty"`
}

// Task is one requested download.
type Task struct {
	ID             string       `json:"id" yaml:"id"`
	AnimeTitle     string       `json:"anime_title" yaml:"anime_title"`
	TargetDir      string       `json:"target_dir" yaml:"target_dir"`
	Source         Source       `json:"source" yaml:"source"`
	DownloadMode   DownloadMode `json:"download_mode" yaml:"download_mode"`
	Metadata       *Metadata    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CustomKeywords string       `json:"custom_keywords,omitempty" yaml:"custom_keywords,omitempty"`
	Status         Status       `json:"status" yaml:"status"`
	Progress       float64      `json:"progress" yaml:"progress"`
	ErrorMessage   string       `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" yaml:"updated_at"`
}

// NewTask creates a pending task with a fresh id. Metadata may be nil.
func NewTask(title, targetDir string, source Source, mode DownloadMode, meta *Metadata, at time.Time) Task {
	return Task{
		ID:           shared.GenerateID(),
		AnimeTitle:   title,
		TargetDir:    targetDir,
		Source:       source,
		DownloadMode: mode,
		Metadata:     meta,
		Status:       StatusPending,
		Progress:     0,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	if t.Metadata != nil {
		meta := *t.Metadata
		t.Metadata = &meta
	}
	return t
}

// DisplayTitle prefers the song title from metadata when present.
func (t Task) DisplayTitle() string {
	if t.Metadata == nil || t.Metadata.SongTitle == "" {
		return t.AnimeTitle
	}
	if t.Metadata.Type != "" {
		return fmt.Sprintf("%s %s - %s", t.AnimeTitle, t.Metadata.Type, t.Metadata.SongTitle)
	}
	return fmt.Sprintf("%s - %s", t.AnimeTitle, t.Metadata.SongTitle)
}

// Validate checks the locally owned fields.
func (t Task) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: task id is required", shared.ErrInvalidInput)
	case strings.TrimSpace(t.AnimeTitle) == "":
		return fmt.Errorf("%w: anime title is required", shared.ErrInvalidInput)
	}
	if _, err := ParseSource(string(t.Source)); err != nil {
		return err
	}
	if _, err := ParseDownloadMode(string(t.DownloadMode)); err != nil {
		return err
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return err
	}
	return nil
}

// ParseStatus converts a wire value into a [Status].
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusDownloading, StatusCompleted, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, s)
	}
}

// ParseSource converts a wire or flag value into a [Source].
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceVideoPlatform, SourceTorrentIndex:
		return src, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", shared.ErrInvalidInput, s)
	}
}

// ParseDownloadMode converts a wire or flag value into a [DownloadMode].
func ParseDownloadMode(s string) (DownloadMode, error) {
	switch m := DownloadMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeVideo, ModeTorrent:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown download mode %q", shared.ErrInvalidInput, s)
	}
}
