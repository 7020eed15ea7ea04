package render

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the colour scheme shared by the TUI and the CLI report output
type Palette struct {
	Name string

	Surface lipgloss.Color
	Border  lipgloss.Color

	Primary lipgloss.Color
	Accent  lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Loading lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// DefaultPalette is used when the configured theme is unknown
const DefaultPalette = "tokyonight"

var palettes = map[string]Palette{
	"tokyonight": {
		Name:    "tokyonight",
		Surface: "#24283b", Border: "#414868",
		Primary: "#7aa2f7", Accent: "#bb9af7",
		Success: "#9ece6a", Warning: "#e0af68", Error: "#f7768e", Loading: "#7dcfff",
		Text: "#c0caf5", TextDim: "#565f89",
	},
	"catppuccin": {
		Name:    "catppuccin",
		Surface: "#313244", Border: "#45475a",
		Primary: "#89b4fa", Accent: "#cba6f7",
		Success: "#a6e3a1", Warning: "#f9e2af", Error: "#f38ba8", Loading: "#89dceb",
		Text: "#cdd6f4", TextDim: "#6c7086",
	},
	"nord": {
		Name:    "nord",
		Surface: "#3b4252", Border: "#4c566a",
		Primary: "#88c0d0", Accent: "#b48ead",
		Success: "#a3be8c", Warning: "#ebcb8b", Error: "#bf616a", Loading: "#81a1c1",
		Text: "#eceff4", TextDim: "#7b88a1",
	},
	"dracula": {
		Name:    "dracula",
		Surface: "#44475a", Border: "#6272a4",
		Primary: "#8be9fd", Accent: "#ff79c6",
		Success: "#50fa7b", Warning: "#f1fa8c", Error: "#ff5555", Loading: "#bd93f9",
		Text: "#f8f8f2", TextDim: "#6272a4",
	},
}

// PaletteByName looks up a palette. Unknown names return the default and
// false.
func PaletteByName(name string) (Palette, bool) {
	p, ok := palettes[name]
	if !ok {
		return palettes[DefaultPalette], false
	}
	return p, true
}

// PaletteNames lists the available palettes
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
