package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ActiveView ViewState = iota
	HistoryView
)

const defaultRefresh = 2 * time.Second

// Dashboard is the task boundary the TUI drives.
type Dashboard interface {
	ListActive(ctx context.Context) []models.Task
	ListHistory() []models.Task
	StartDownload(ctx context.Context, id string)
	DeleteTask(ctx context.Context, id string)
	ArchiveTask(ctx context.Context, id string) bool
}

// HealthReporter exposes the engine health monitor.
type HealthReporter interface {
	Report() services.HealthReport
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	svc     Dashboard
	health  HealthReporter
	refresh time.Duration
	width   int
	height  int
	tasks   list.Model
	engine  services.HealthReport
	status  string
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model. health may be nil; a non-positive refresh uses two seconds.
func NewModel(ctx context.Context, svc Dashboard, health HealthReporter, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	tasks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tasks.Title = "Active Tasks"
	tasks.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		view:    ActiveView,
		svc:     svc,
		health:  health,
		refresh: refresh,
		tasks:   tasks,
		engine:  services.HealthReport{Status: services.HealthChecking},
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads the active tasks and starts the refresh ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(ActiveView), m.checkHealth(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tasks.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if m.tasks.FilterState() == list.Filtering {
			break
		}
		return m.handleKeys(msg)

	case tasksLoadedMsg:
		if msg.view != m.view {
			return m, nil
		}
		cmd := m.tasks.SetItems(toItems(msg.tasks))
		return m, cmd

	case actionDoneMsg:
		m.status = describeAction(msg)
		return m, m.load(m.view)

	case healthMsg:
		m.engine = services.HealthReport(msg)
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{m.checkHealth(), m.tick()}
		if m.view == ActiveView {
			cmds = append(cmds, m.load(ActiveView))
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.tasks, cmd = m.tasks.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.load(m.view)
	case key.Matches(msg, m.keys.history):
		return m, m.toggleView()
	}

	if m.view == ActiveView {
		if selected, ok := m.selected(); ok {
			switch {
			case key.Matches(msg, m.keys.start):
				return m, m.act("start", selected.ID)
			case key.Matches(msg, m.keys.remove):
				return m, m.act("delete", selected.ID)
			case key.Matches(msg, m.keys.archive):
				return m, m.act("archive", selected.ID)
			}
		}
	}

	var cmd tea.Cmd
	m.tasks, cmd = m.tasks.Update(msg)
	return m, cmd
}

func (m *Model) toggleView() tea.Cmd {
	if m.view == ActiveView {
		m.view = HistoryView
		m.tasks.Title = "History"
	} else {
		m.view = ActiveView
		m.tasks.Title = "Active Tasks"
	}
	m.status = ""
	m.tasks.ResetSelected()
	return m.load(m.view)
}

func (m *Model) selected() (models.Task, bool) {
	item, ok := m.tasks.SelectedItem().(taskItem)
	if !ok {
		return models.Task{}, false
	}
	return item.task, true
}

func (m *Model) load(view ViewState) tea.Cmd {
	return func() tea.Msg {
		if view == HistoryView {
			return tasksLoadedMsg{view: view, tasks: m.svc.ListHistory()}
		}
		return tasksLoadedMsg{view: view, tasks: m.svc.ListActive(m.ctx)}
	}
}

func (m *Model) act(verb, id string) tea.Cmd {
	return func() tea.Msg {
		ok := true
		switch verb {
		case "start":
			m.svc.StartDownload(m.ctx, id)
		case "delete":
			m.svc.DeleteTask(m.ctx, id)
		case "archive":
			ok = m.svc.ArchiveTask(m.ctx, id)
		}
		return actionDoneMsg{verb: verb, id: id, ok: ok}
	}
}

func (m *Model) checkHealth() tea.Cmd {
	if m.health == nil {
		return nil
	}
	return func() tea.Msg {
		return healthMsg(m.health.Report())
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func describeAction(msg actionDoneMsg) string {
	short := msg.id
	if len(short) > 8 {
		short = short[:8]
	}

	switch {
	case msg.verb == "archive" && !msg.ok:
		return styles.warn.Render(fmt.Sprintf("Task %s is not finished; only completed or failed tasks can be archived", short))
	case msg.verb == "start":
		return styles.ok.Render(fmt.Sprintf("Start requested for %s", short))
	case msg.verb == "delete":
		return styles.ok.Render(fmt.Sprintf("Deleted %s", short))
	default:
		return styles.ok.Render(fmt.Sprintf("Archived %s", short))
	}
}

// View renders the task list, the engine status line and contextual help.
func (m *Model) View() string {
	engine := styles.health(m.engine.Status).Render(fmt.Sprintf("engine: %s", m.engine.Status))
	if m.engine.Err != nil {
		engine = fmt.Sprintf("%s %s", engine, styles.help.Render(m.engine.Err.Error()))
	}

	helpKeys := []key.Binding{m.keys.history, m.keys.refresh, m.keys.quit}
	if m.view == ActiveView {
		helpKeys = m.keys.ShortHelp()
	}

	status := m.status
	if status != "" {
		status = "\n" + status
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", m.tasks.View(), engine, status, m.help.ShortHelpView(helpKeys))
}
