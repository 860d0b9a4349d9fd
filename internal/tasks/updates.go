package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	LookupTitles Phase = iota
	CreateTasks
	PersistTasks
)

func (p Phase) String() string {
	switch p {
	case LookupTitles:
		return "lookup_titles"
	case CreateTasks:
		return "create_tasks"
	case PersistTasks:
		return "persist_tasks"
	default:
		return ""
	}
}

// sendProgress delivers update without blocking; a full or nil channel drops it.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

func lookupStartedUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupTitles,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Looking up %d titles...", total),
	}
}

func lookupDoneUpdate(step, total int, title string, matches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupTitles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d matches)", step, total, title, matches),
	}
}

func lookupFallbackUpdate(step, total int, title string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✗ %s: no matches, using title as-is", step, total, title)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v, using title as-is", step, total, title, err)
	}
	return ProgressUpdate{
		Phase:   LookupTitles,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func createTasksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateTasks,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Created %d tasks", count),
	}
}

func persistTasksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PersistTasks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %d tasks", count),
	}
}
