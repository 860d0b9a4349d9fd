// Package ui implements an interactive terminal dashboard using bubbletea's Elm architecture.
//
// The dashboard has two views:
//  1. [ActiveView] : active tasks, refreshed on an interval through the reconciling list call
//  2. [HistoryView] : archived tasks
//
// From the active view the selected task can be started (s), deleted (x) or archived (a).
// Actions run as [tea.Cmd] values so the engine round trip never blocks rendering; the list is reloaded after each.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// A status line shows the engine health reported by the health monitor when one is attached.
//
// Keyboard navigation uses vim-style bindings (j/k, s, x, a, h, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
