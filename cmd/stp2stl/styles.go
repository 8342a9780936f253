package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"stp2stl/internal/convert"
)

// palette holds the ANSI-256 color values used for command output.
var (
	clrGreen  = lipgloss.Color("114")
	clrRed    = lipgloss.Color("203")
	clrYellow = lipgloss.Color("220")
	clrDim    = lipgloss.Color("245")
	clrWhite  = lipgloss.Color("255")
)

// styles wraps lipgloss renderers that respect TTY detection. When output
// is piped or redirected, all styling is disabled and raw text is emitted.
type styles struct {
	enabled bool

	Green  lipgloss.Style
	Red    lipgloss.Style
	Yellow lipgloss.Style
	Dim    lipgloss.Style
	Bold   lipgloss.Style
	Key    lipgloss.Style
	Value  lipgloss.Style
}

// newStyles creates a styles instance. Colors are enabled only when w
// points to a terminal file descriptor.
func newStyles(w io.Writer) styles {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = term.IsTerminal(int(f.Fd()))
	}

	s := styles{enabled: enabled}
	if !enabled {
		noop := lipgloss.NewStyle()
		s.Green = noop
		s.Red = noop
		s.Yellow = noop
		s.Dim = noop
		s.Bold = noop
		s.Key = noop
		s.Value = noop
		return s
	}

	s.Green = lipgloss.NewStyle().Foreground(clrGreen)
	s.Red = lipgloss.NewStyle().Foreground(clrRed)
	s.Yellow = lipgloss.NewStyle().Foreground(clrYellow)
	s.Dim = lipgloss.NewStyle().Foreground(clrDim)
	s.Bold = lipgloss.NewStyle().Bold(true)
	s.Key = lipgloss.NewStyle().Foreground(clrDim)
	s.Value = lipgloss.NewStyle().Foreground(clrWhite)
	return s
}

// status renders a fixed-width, colored status label for per-file lines.
func (s styles) status(st convert.Status) string {
	label := fmt.Sprintf("%-9s", st.String())
	if !s.enabled {
		return label
	}
	switch st {
	case convert.StatusConverted:
		return s.Green.Render(label)
	case convert.StatusFailed:
		return s.Red.Render(label)
	case convert.StatusSkipped:
		return s.Yellow.Render(label)
	default:
		return s.Dim.Render(label)
	}
}

// kv formats a key-value pair like "  Key:  value".
func (s styles) kv(key, value string) string {
	if !s.enabled {
		return fmt.Sprintf("  %-14s %s", key+":", value)
	}
	return fmt.Sprintf("  %s %s",
		s.Key.Render(fmt.Sprintf("%-14s", key+":")),
		s.Value.Render(value),
	)
}

// header formats a section header.
func (s styles) header(title string) string {
	if !s.enabled {
		return title
	}
	return s.Bold.Render(title)
}

// dim wraps text in muted styling.
func (s styles) dim(text string) string {
	if !s.enabled {
		return text
	}
	return s.Dim.Render(text)
}
