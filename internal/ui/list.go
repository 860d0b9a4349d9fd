package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/anisong/internal/formatter"
	"github.com/desertthunder/anisong/internal/models"
)

var _ list.DefaultItem = taskItem{}

// taskItem wraps [models.Task] to implement [list.DefaultItem].
type taskItem struct {
	task models.Task
}

func (i taskItem) FilterValue() string { return i.task.AnimeTitle }
func (i taskItem) Title() string       { return i.task.DisplayTitle() }
func (i taskItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %s/%s",
		styles.status(i.task.Status).Render(string(i.task.Status)),
		formatter.FormatProgress(i.task.Progress),
		i.task.Source,
		i.task.DownloadMode,
	)
	if i.task.ErrorMessage != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.task.ErrorMessage)
	}
	return desc
}

func toItems(tasks []models.Task) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{task: t}
	}
	return items
}
