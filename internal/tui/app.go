package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/encore/internal/stage"
)

// Screen is the active top-level view
type Screen int

const (
	ScreenPicker Screen = iota
	ScreenStage
)

// Deps are the services the TUI drives
type Deps struct {
	Catalog  Catalog
	Loader   *stage.Loader
	Conn     ConnectivitySource
	Settings stage.Settings
	Logger   *slog.Logger
}

// Model is the root Bubble Tea model
type Model struct {
	deps   Deps
	screen Screen

	picker *PickerModel
	stage  *StageModel

	// Launched straight into stage mode; leaving it quits
	direct bool

	width  int
	height int
}

// NewModel starts on the setlist picker
func NewModel(deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	picker := NewPickerModel(deps.Catalog, deps.Conn, deps.Logger)
	return Model{
		deps:   deps,
		screen: ScreenPicker,
		picker: &picker,
	}
}

// NewStageOnlyModel starts directly in stage mode for one setlist
func NewStageOnlyModel(deps Deps, setlistID string) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	st := NewStageModel(setlistID, deps.Settings, deps.Loader, deps.Conn, deps.Logger)
	return Model{
		deps:   deps,
		screen: ScreenStage,
		stage:  &st,
		direct: true,
	}
}

// Screen returns the active screen
func (m Model) Screen() Screen { return m.screen }

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if m.screen == ScreenStage {
		return m.stage.Init()
	}
	return m.picker.Init()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case OpenStageMsg:
		m.deps.Logger.Info("entering stage mode", "setlistID", msg.SetlistID)
		st := NewStageModel(msg.SetlistID, m.deps.Settings, m.deps.Loader, m.deps.Conn, m.deps.Logger)
		st, _ = st.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.stage = &st
		m.screen = ScreenStage
		return m, st.Init()

	case ExitStageMsg:
		m.deps.Logger.Info("left stage mode", "setlistID", msg.SetlistID)
		m.stage = nil
		if m.direct || m.picker == nil {
			return m, tea.Quit
		}
		m.screen = ScreenPicker
		return m, m.picker.reload()

	case tea.KeyMsg:
		// Keys go to the active screen only
		return m.updateActive(msg)
	}

	// Everything else may belong to either screen; each ignores what is not its own
	var cmds []tea.Cmd
	if m.picker != nil {
		p, cmd := m.picker.Update(msg)
		m.picker = &p
		cmds = append(cmds, cmd)
	}
	if m.stage != nil {
		s, cmd := m.stage.Update(msg)
		m.stage = &s
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenStage:
		if m.stage == nil {
			return m, nil
		}
		s, c := m.stage.Update(msg)
		m.stage = &s
		cmd = c
	default:
		if m.picker == nil {
			return m, nil
		}
		p, c := m.picker.Update(msg)
		m.picker = &p
		cmd = c
	}
	return m, cmd
}

// View implements tea.Model
func (m Model) View() string {
	if m.screen == ScreenStage && m.stage != nil {
		return m.stage.View()
	}
	if m.picker != nil {
		return m.picker.View()
	}
	return ""
}
