package tui

import "github.com/charmbracelet/bubbles/key"

// StageKeyMap defines the key bindings active while stage mode is mounted
type StageKeyMap struct {
	// Navigation
	Previous key.Binding
	Next     key.Binding
	Exit     key.Binding
	Jump     key.Binding

	// Scrolling within a song
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding

	// Display
	ZoomIn        key.Binding
	ZoomOut       key.Binding
	DarkMode      key.Binding
	Chords        key.Binding
	Lyrics        key.Binding
	TransposeUp   key.Binding
	TransposeDown key.Binding
	AutoScroll    key.Binding
	Metronome     key.Binding

	Quit key.Binding
}

// DefaultStageKeyMap returns the default stage bindings
func DefaultStageKeyMap() StageKeyMap {
	return StageKeyMap{
		Previous: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", " "),
			key.WithHelp("→/space", "next"),
		),
		Exit: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "exit"),
		),
		Jump: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "jump to song"),
		),

		ScrollUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),

		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "bigger"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "smaller"),
		),
		DarkMode: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dark/light"),
		),
		Chords: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "chords"),
		),
		Lyrics: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "lyrics"),
		),
		TransposeUp: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "transpose up"),
		),
		TransposeDown: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "transpose down"),
		),
		AutoScroll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto-scroll"),
		),
		Metronome: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "metronome"),
		),

		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// PickerKeyMap defines the setlist picker bindings
type PickerKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Download key.Binding
	Lock     key.Binding
	Filter   key.Binding
	Refresh  key.Binding
	Escape   key.Binding
	Quit     key.Binding
}

// DefaultPickerKeyMap returns the default picker bindings
func DefaultPickerKeyMap() PickerKeyMap {
	return PickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "stage mode"),
		),
		Download: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "download for offline"),
		),
		Lock: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "lock/unlock"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear/dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// StageKeys and PickerKeys are the global key binding instances
var (
	StageKeys  = DefaultStageKeyMap()
	PickerKeys = DefaultPickerKeyMap()
)
