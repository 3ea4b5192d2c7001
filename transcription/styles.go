package transcription

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	progress lipgloss.Style
	label    lipgloss.Style
}

// newStyles binds the styles to out, so color is dropped when out is not a
// terminal.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)

	return styles{
		progress: r.NewStyle().Foreground(lipgloss.Color("245")),
		label:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	}
}
