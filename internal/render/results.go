package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danitzn/sb-frontend/internal/models"
)

// StatusColor returns the palette colour for a probe status
func (p Palette) StatusColor(s models.Status) lipgloss.Color {
	switch s {
	case models.StatusSuccess:
		return p.Success
	case models.StatusWarning:
		return p.Warning
	case models.StatusError:
		return p.Error
	case models.StatusLoading:
		return p.Loading
	default:
		return p.TextDim
	}
}

// ProbeResult formats one report entry. Details are indented under the
// headline and omitted when verbose is false.
func ProbeResult(r models.ProbeResult, p Palette, verbose bool) string {
	status := lipgloss.NewStyle().Foreground(p.StatusColor(r.Status)).Bold(true)
	name := lipgloss.NewStyle().Foreground(p.Text).Bold(true)
	dim := lipgloss.NewStyle().Foreground(p.TextDim)

	var sb strings.Builder
	sb.WriteString(status.Render(r.Status.Icon()))
	sb.WriteString(" ")
	sb.WriteString(name.Render(r.Name))
	if r.ElapsedMs != nil {
		sb.WriteString(dim.Render(fmt.Sprintf(" (%dms)", *r.ElapsedMs)))
	}
	sb.WriteString("\n  ")
	sb.WriteString(r.Message)

	if verbose && r.Details != "" {
		for _, line := range strings.Split(r.Details, "\n") {
			sb.WriteString("\n    ")
			sb.WriteString(dim.Render(line))
		}
	}
	return sb.String()
}

// Results formats a whole report, one entry per block
func Results(results []models.ProbeResult, p Palette, verbose bool) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = ProbeResult(r, p, verbose)
	}
	return strings.Join(blocks, "\n\n")
}
