package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/quire/internal/api"
)

// Theme defines the palette for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Panels
	SurfaceAlt string // Header and footer bars

	SelectionBg   string // Cursor row background
	SelectionText string // Cursor row text

	Border      string // Unfocused pane border
	BorderFocus string // Focused pane border

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Sidebar icon colors per library item type
	KindColors map[api.LibraryItemType]string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
	Pane     lipgloss.Style
	Focused  lipgloss.Style

	kindColors map[api.LibraryItemType]string
	muted      string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Border)).
		Foreground(lipgloss.Color(t.Text))

	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SurfaceAlt)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SurfaceAlt)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SurfaceAlt)).
			Foreground(lipgloss.Color(t.Accent)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
		Pane:    pane,
		Focused: pane.BorderForeground(lipgloss.Color(t.BorderFocus)),

		kindColors: t.KindColors,
		muted:      t.Muted,
	}
}

// KindStyle returns the style for a sidebar icon of the given item type.
func (s Styles) KindStyle(kind api.LibraryItemType) lipgloss.Style {
	color := s.kindColors[kind]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Theme definitions

var themes = map[string]Theme{
	"Nord":    nordTheme(),
	"Dracula": draculaTheme(),
	"Slate":   slateTheme(),
}

var themeOrder = []string{"Nord", "Dracula", "Slate"}

// GetTheme returns a theme by name, falling back to Nord.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nordTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func nordTheme() Theme {
	// Nord palette: https://www.nordtheme.com/docs/colors-and-palettes
	return Theme{
		Name: "Nord",

		Background: "#2E3440", // nord0
		Surface:    "#3B4252", // nord1
		SurfaceAlt: "#434C5E", // nord2

		SelectionBg:   "#5E81AC", // nord10
		SelectionText: "#ECEFF4", // nord6

		Border:      "#4C566A", // nord3
		BorderFocus: "#88C0D0", // nord8

		Text:    "#E5E9F0", // nord5
		Muted:   "#D8DEE9", // nord4
		Faint:   "#4C566A", // nord3
		Accent:  "#88C0D0", // nord8
		Success: "#A3BE8C", // nord14
		Warning: "#EBCB8B", // nord13
		Danger:  "#BF616A", // nord11
		Info:    "#81A1C1", // nord9

		KindColors: map[api.LibraryItemType]string{
			api.LibraryFolder:     "#EBCB8B",
			api.LibraryFeed:       "#A3BE8C",
			api.LibraryCollection: "#B48EAD", // nord15
		},
	}
}

func draculaTheme() Theme {
	// Dracula palette.
	return Theme{
		Name: "Dracula",

		Background: "#191A21",
		Surface:    "#282A36",
		SurfaceAlt: "#21222C",

		SelectionBg:   "#44475A",
		SelectionText: "#F8F8F2",

		Border:      "#44475A",
		BorderFocus: "#BD93F9",

		Text:    "#F8F8F2",
		Muted:   "#6272A4",
		Faint:   "#44475A",
		Accent:  "#BD93F9",
		Success: "#50FA7B",
		Warning: "#FFB86C",
		Danger:  "#FF5555",
		Info:    "#8BE9FD",

		KindColors: map[api.LibraryItemType]string{
			api.LibraryFolder:     "#FFB86C",
			api.LibraryFeed:       "#50FA7B",
			api.LibraryCollection: "#FF79C6",
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border:      "#334155", // slate-700
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		KindColors: map[api.LibraryItemType]string{
			api.LibraryFolder:     "#f59e0b",
			api.LibraryFeed:       "#22c55e",
			api.LibraryCollection: "#a78bfa", // violet-400
		},
	}
}
