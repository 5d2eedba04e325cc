package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/session"
)

type theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Dim     lipgloss.Color
}

var defaultTheme = theme{
	Primary: lipgloss.Color("#f2b134"),
	Success: lipgloss.Color("#00ff9f"),
	Warning: lipgloss.Color("#ffcc00"),
	Error:   lipgloss.Color("#ff5f56"),
	Dim:     lipgloss.Color("#6e7681"),
}

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(t theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		label: lipgloss.NewStyle().Bold(true),
		ok:    lipgloss.NewStyle().Foreground(t.Success),
		warn:  lipgloss.NewStyle().Foreground(t.Warning),
		fail:  lipgloss.NewStyle().Foreground(t.Error),
		dim:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// status renders a controller status line in the colour of its kind.
func (s styles) status(st session.Status) string {
	switch st.Kind {
	case session.StatusSuccess:
		return s.ok.Bold(true).Render(st.Text)
	case session.StatusWarning:
		return s.warn.Render(st.Text)
	case session.StatusError:
		return s.fail.Render(st.Text)
	default:
		return st.Text
	}
}

// swatch renders a block filled with the hex color.
func swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render(strings.Repeat(" ", 6))
}

// row pads label to width and appends the value.
func (s styles) row(label string, width int, value string) string {
	pad := max(0, width-lipgloss.Width(label))
	return "  " + s.label.Render(label) + strings.Repeat(" ", pad) + "  " + value
}
