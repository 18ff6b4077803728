package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

// Palette is the set of colours of one theme.
type Palette struct {
	Background      string
	Text            string
	Muted           string
	Accent          string
	UserBubble      string
	UserText        string
	AssistantBorder string
}

var (
	lightPalette = Palette{
		Background:      "#FFFFFF",
		Text:            "#111827",
		Muted:           "#6B7280",
		Accent:          "#2563EB",
		UserBubble:      "#2563EB",
		UserText:        "#FFFFFF",
		AssistantBorder: "#D1D5DB",
	}

	darkPalette = Palette{
		Background:      "#0B0F19",
		Text:            "#E5E7EB",
		Muted:           "#9CA3AF",
		Accent:          "#60A5FA",
		UserBubble:      "#1D4ED8",
		UserText:        "#F9FAFB",
		AssistantBorder: "#374151",
	}
)

// Style holds the lipgloss styles of the chat view.
type Style struct {
	Header          lipgloss.Style
	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	Timestamp       lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	Typing          lipgloss.Style
	Input           lipgloss.Style
}

// PaletteFor returns the colours of theme.
func PaletteFor(theme chat.Theme) Palette {
	if theme == chat.ThemeDark {
		return darkPalette
	}
	return lightPalette
}

// NewStyle builds the styles of theme.
func NewStyle(theme chat.Theme) *Style {
	p := PaletteFor(theme)

	return &Style{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.Accent)).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.Accent)),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.Text)),
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),
		UserBubble: lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color(p.UserBubble)).
			Foreground(lipgloss.Color(p.UserText)),
		AssistantBubble: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.AssistantBorder)).
			Foreground(lipgloss.Color(p.Text)).
			Padding(0, 1),
		Typing: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)).
			Padding(0, 1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(p.AssistantBorder)),
	}
}
