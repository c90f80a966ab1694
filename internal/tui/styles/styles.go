package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Amber      = lipgloss.Color("#E5A00D")
	SlateDark  = lipgloss.Color("#111827")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Paper      = lipgloss.Color("#FFFDF7")
	Ink        = lipgloss.Color("#111111")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Blue       = lipgloss.Color("#2563EB")
)

// Theme is a complete set of stage styles. Switching dark mode swaps the whole theme.
type Theme struct {
	Name string

	Background lipgloss.Color
	Foreground lipgloss.Color

	Base    lipgloss.Style
	Title   lipgloss.Style
	Meta    lipgloss.Style
	Chord   lipgloss.Style
	Lyric   lipgloss.Style
	Section lipgloss.Style
	Cue     lipgloss.Style
	Dim     lipgloss.Style

	Counter      lipgloss.Style
	OnlineBadge  lipgloss.Style
	OfflineBadge lipgloss.Style
	CachedBadge  lipgloss.Style
	EncoreBadge  lipgloss.Style
	Beat         lipgloss.Style
	Error        lipgloss.Style
	Notice       lipgloss.Style
}

func newTheme(name string, bg, fg, chord, dim, accent lipgloss.Color) Theme {
	base := lipgloss.NewStyle().Background(bg).Foreground(fg)
	badge := lipgloss.NewStyle().Padding(0, 1).Bold(true)

	return Theme{
		Name:       name,
		Background: bg,
		Foreground: fg,

		Base:    base,
		Title:   base.Bold(true),
		Meta:    base.Foreground(dim),
		Chord:   base.Foreground(chord).Bold(true),
		Lyric:   base,
		Section: base.Foreground(accent).Bold(true).Underline(true),
		Cue:     base.Foreground(accent).Italic(true),
		Dim:     base.Foreground(dim),

		Counter:      base.Foreground(accent).Bold(true),
		OnlineBadge:  badge.Foreground(White).Background(Green),
		OfflineBadge: badge.Foreground(White).Background(Red),
		CachedBadge:  badge.Foreground(Ink).Background(Amber),
		EncoreBadge:  badge.Foreground(White).Background(Blue),
		Beat:         base.Foreground(accent).Bold(true),
		Error:        base.Foreground(Red).Bold(true),
		Notice: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2),
	}
}

// Dark is the default stage theme
var Dark = newTheme("dark", SlateDark, White, Amber, LightGray, Amber)

// Light is for daylight stages
var Light = newTheme("light", Paper, Ink, Blue, DimGray, Blue)

// ThemeFor returns the theme for the dark mode setting
func ThemeFor(dark bool) Theme {
	if dark {
		return Dark
	}
	return Light
}

// Scale is how a font size renders in a terminal: terminals have one glyph size,
// so larger sizes trade density for air around each line.
type Scale struct {
	LineGap     int // Blank lines after each lyric line
	Margin      int // Left/right margin in columns
	BoldLyrics  bool
	UpperTitles bool
}

// Scales indexed by stage.FontSize (small, medium, large, xlarge)
var Scales = [4]Scale{
	{LineGap: 0, Margin: 1},
	{LineGap: 0, Margin: 4},
	{LineGap: 1, Margin: 6, BoldLyrics: true},
	{LineGap: 2, Margin: 10, BoldLyrics: true, UpperTitles: true},
}

// ScaleFor returns the scale for a font size index, clamped to the table
func ScaleFor(size int) Scale {
	if size < 0 {
		size = 0
	}
	if size >= len(Scales) {
		size = len(Scales) - 1
	}
	return Scales[size]
}

// Picker styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight).
				Padding(0, 1)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)

	MatchHighlightStyle = lipgloss.NewStyle().
				Foreground(Amber).
				Bold(true)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber).
			Padding(1, 2)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(Amber)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Amber)
)

// SpinnerFrames animates plain-terminal output outside the TUI
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Raw offline status characters (unstyled)
const (
	CachedChar   = "●"
	UncachedChar = "○"
	LockedChar   = "🔒"
)

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 1 {
		return "…"
	}
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// Pad pads a string with spaces to the given display width
func Pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// RenderProgressBar renders a download progress bar for loaded of total
func RenderProgressBar(loaded, total, width int) string {
	if width < 3 || total <= 0 {
		return ""
	}
	filled := width * loaded / total
	if filled > width {
		filled = width
	}
	return AccentStyle.Render(strings.Repeat("█", filled)) +
		DimStyle.Render(strings.Repeat("░", width-filled))
}
