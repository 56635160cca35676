package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/tunedeck/internal/models"
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

// Badge renders a job status in its palette color.
func Badge(status models.JobStatus) string {
	return styles.status(status).Render(status.String())
}

// Success renders s in the palette's success color.
func Success(s string) string { return styles.ok.Render(s) }

func Failure(s string) string { return styles.err.Render(s) }

func Hint(s string) string { return styles.help.Render(s) }

func (p *Palette) status(status models.JobStatus) lipgloss.Style {
	switch status {
	case models.JobDone:
		return p.ok
	case models.JobFailed:
		return p.err
	case models.JobRunning, models.JobCancelled:
		return p.warn
	default:
		return p.help
	}
}
