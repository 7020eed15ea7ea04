// Package tui provides the terminal user interfaces for sbchat.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/danitzn/sb-frontend/internal/errors"
	"github.com/danitzn/sb-frontend/internal/render"
)

// palette is the active colour scheme
var palette render.Palette

// Style variables (rebuilt when theme changes)
var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	hintStyle     lipgloss.Style

	messagesAreaStyle lipgloss.Style

	userBubbleStyle     lipgloss.Style
	userLabelStyle      lipgloss.Style
	botBubbleStyle      lipgloss.Style
	botLabelStyle       lipgloss.Style
	botErrorBubbleStyle lipgloss.Style

	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style
	loadingStyle    lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style
	feedbackStyle   lipgloss.Style

	errorStyle lipgloss.Style

	welcomeStyle      lipgloss.Style
	welcomeTitleStyle lipgloss.Style

	resultCardStyle   lipgloss.Style
	resultNameStyle   lipgloss.Style
	resultDetailStyle lipgloss.Style
)

func init() {
	UpdateTheme(render.DefaultPalette)
}

// UpdateTheme switches to the named palette and rebuilds every style.
// Unknown names fall back to the default palette and return false.
func UpdateTheme(name string) bool {
	p, ok := render.PaletteByName(name)
	palette = p
	rebuildStyles()
	return ok
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Border).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
		Foreground(palette.Primary).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(palette.TextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(palette.TextDim).
		Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Border).
		Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Success).
		Padding(0, 1).
		MarginLeft(4)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(palette.Success).
		Bold(true).
		MarginLeft(4)

	botBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Primary).
		Foreground(palette.Text).
		Padding(0, 1).
		MarginRight(4)

	botErrorBubbleStyle = botBubbleStyle.
		BorderForeground(palette.Error)

	botLabelStyle = lipgloss.NewStyle().
		Foreground(palette.Primary).
		Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(palette.Border).
		Padding(0, 1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(palette.Primary).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(palette.Accent).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(palette.TextDim)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(palette.Text).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(palette.TextDim)

	feedbackStyle = lipgloss.NewStyle().
		Foreground(palette.Accent).
		Italic(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(palette.Error).
		Bold(true)

	welcomeStyle = lipgloss.NewStyle().
		Foreground(palette.TextDim).
		Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
		Foreground(palette.Primary).
		Bold(true).
		Align(lipgloss.Center)

	resultCardStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)

	resultNameStyle = lipgloss.NewStyle().
		Foreground(palette.Text).
		Bold(true)

	resultDetailStyle = lipgloss.NewStyle().
		Foreground(palette.TextDim)
}

// FormatError returns a styled error message with a hint derived from the
// error kind.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	dimStyle := lipgloss.NewStyle().Foreground(palette.TextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if hint := Hint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}

	return sb.String()
}

// Hint suggests a next step for a classified error
func Hint(err error) string {
	switch apierrors.Classify(err) {
	case apierrors.KindTimeout:
		return "The API took too long. Try again or raise chat_timeout_ms"
	case apierrors.KindNetwork:
		return "Check your internet connection and that the Cloudflare tunnel is running"
	case apierrors.KindCrossSite:
		return "A 403 usually means CSRF or edge protection; run 'sbchat diagnose'"
	case apierrors.KindDecode:
		return "The API answered with something other than JSON, possibly a browser challenge page"
	case apierrors.KindHTTP:
		return "The API returned an error status; see the body above"
	default:
		return ""
	}
}
