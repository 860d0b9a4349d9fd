package ui

import (
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
)

// tasksLoadedMsg carries a fresh task list for the view it was loaded for.
type tasksLoadedMsg struct {
	view  ViewState
	tasks []models.Task
}

// actionDoneMsg reports a finished start, delete or archive.
type actionDoneMsg struct {
	verb string
	id   string
	ok   bool
}

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// healthMsg carries the latest engine health report.
type healthMsg services.HealthReport
