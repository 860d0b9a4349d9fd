package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/services"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// status picks the style for a task status.
func (p *Palette) status(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusCompleted:
		return p.ok
	case models.StatusFailed:
		return p.err
	case models.StatusDownloading:
		return p.warn
	default:
		return p.help
	}
}

// health picks the style for an engine health state.
func (p *Palette) health(h services.EngineHealth) lipgloss.Style {
	switch h {
	case services.HealthHealthy:
		return p.ok
	case services.HealthUnhealthy:
		return p.err
	default:
		return p.warn
	}
}
