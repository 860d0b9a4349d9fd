// package formatter renders task lists as tables and export documents (JSON, CSV, YAML, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
	"gopkg.in/yaml.v3"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "yaml", "markdown"}

// ExportToJSON renders tasks as the same indented array the task documents use.
func ExportToJSON(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return shared.MarshalJSON(tasks, true)
}

// ExportToCSV converts tasks to CSV with columns: ID, Title, Song, Artist, Type, Source, Mode, Status, Progress, Error, Target, Created, Updated
func ExportToCSV(tasks []models.Task) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Song", "Artist", "Type", "Source", "Mode", "Status", "Progress", "Error", "Target", "Created", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range tasks {
		var song, artist, kind string
		if task.Metadata != nil {
			song, artist, kind = task.Metadata.SongTitle, task.Metadata.Artist, string(task.Metadata.Type)
		}
		record := []string{
			task.ID,
			task.AnimeTitle,
			song,
			artist,
			kind,
			string(task.Source),
			string(task.DownloadMode),
			string(task.Status),
			strconv.FormatFloat(task.Progress, 'f', -1, 64),
			task.ErrorMessage,
			task.TargetDir,
			task.CreatedAt.Format(time.RFC3339),
			task.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToYAML renders tasks as a YAML sequence.
func ExportToYAML(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tasks); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders tasks as a heading, a summary and a table
func ExportToMarkdown(tasks []models.Task, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Tasks"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	counts := map[models.Status]int{}
	for _, task := range tasks {
		counts[task.Status]++
	}
	buf.WriteString(fmt.Sprintf("**Tasks**: %d\n", len(tasks)))
	buf.WriteString(fmt.Sprintf("**Completed**: %d\n", counts[models.StatusCompleted]))
	buf.WriteString(fmt.Sprintf("**Failed**: %d\n\n", counts[models.StatusFailed]))

	if len(tasks) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Title | Source | Status | Progress | Error |\n")
	buf.WriteString("|---|-------|--------|--------|----------|-------|\n")
	for i, task := range tasks {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s/%s | %s | %s | %s |\n",
			i+1,
			escapeCell(task.DisplayTitle()),
			task.Source,
			task.DownloadMode,
			task.Status,
			FormatProgress(task.Progress),
			escapeCell(task.ErrorMessage),
		))
	}

	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Export renders tasks in format. Title is used by formats with a heading.
func Export(tasks []models.Task, format, title string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return ExportToJSON(tasks)
	case "csv":
		return ExportToCSV(tasks)
	case "yaml", "yml":
		return ExportToYAML(tasks)
	case "markdown", "md":
		return ExportToMarkdown(tasks, title)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return ".csv"
	case "yaml", "yml":
		return ".yaml"
	case "markdown", "md":
		return ".md"
	default:
		return ".json"
	}
}

// WriteExport renders tasks and writes them to path.
//
// Defaults to {name}_{epoch}{ext} in the working directory when path is empty.
func WriteExport(tasks []models.Task, format, name, path string) (string, error) {
	data, err := Export(tasks, format, name)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s_%d%s", name, time.Now().Unix(), Extension(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// FormatProgress renders a percentage without trailing zeros.
func FormatProgress(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// WriteTaskTable writes a column-aligned table of tasks.
func WriteTaskTable(w io.Writer, tasks []models.Task) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSOURCE\tSTATUS\tPROGRESS\tUPDATED")
	for _, task := range tasks {
		status := string(task.Status)
		if task.ErrorMessage != "" {
			status = fmt.Sprintf("%s (%s)", status, task.ErrorMessage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\n",
			task.ID,
			task.DisplayTitle(),
			task.Source,
			task.DownloadMode,
			status,
			FormatProgress(task.Progress),
			task.UpdatedAt.Format(time.DateTime),
		)
	}
	return tw.Flush()
}
