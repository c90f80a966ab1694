package tui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/encore/internal/search"
	"github.com/mmcdole/encore/internal/stage"
	"github.com/mmcdole/encore/internal/tui/styles"
)

// Chrome heights
const (
	stageHeaderHeight = 3
	stageFooterHeight = 2
)

// StageModel is the full-screen performer view
type StageModel struct {
	ctrl    *stage.Controller
	loader  *stage.Loader
	watcher *ConnectivityWatcher
	online  bool
	logger  *slog.Logger

	viewport viewport.Model
	spinner  spinner.Model

	jumpInput   textinput.Model
	jumping     bool
	jumpMatches []int

	scrollGen int
	beatGen   int
	beatOn    bool

	width  int
	height int
	exited bool
}

// NewStageModel mounts stage mode for a setlist.
// Connectivity subscriptions are taken here and released on exit.
func NewStageModel(setlistID string, settings stage.Settings, loader *stage.Loader, conn ConnectivitySource, logger *slog.Logger) StageModel {
	if logger == nil {
		logger = slog.Default()
	}

	vp := viewport.New(0, 0)
	// Space belongs to navigation, never to scrolling
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown", "f"))
	vp.MouseWheelEnabled = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "song title..."
	ti.CharLimit = 60
	ti.Prompt = "jump: "

	online := false
	if conn != nil {
		online = conn.IsOnline()
	}

	return StageModel{
		ctrl:      stage.NewController(setlistID, settings),
		loader:    loader,
		watcher:   WatchConnectivity(conn),
		online:    online,
		logger:    logger,
		viewport:  vp,
		spinner:   sp,
		jumpInput: ti,
	}
}

// Controller exposes the session state
func (m StageModel) Controller() *stage.Controller { return m.ctrl }

// Exited reports whether the user left stage mode
func (m StageModel) Exited() bool { return m.exited }

// Init starts loading
func (m StageModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		LoadShowCmd(m.loader, m.ctrl),
		m.watcher.Wait(),
	)
}

// Update handles messages
func (m StageModel) Update(msg tea.Msg) (StageModel, tea.Cmd) {
	if m.exited {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case ShowLoadedMsg:
		if msg.Session != m.ctrl {
			return m, nil
		}
		m.ctrl.Finish(msg.Show, msg.Err)
		if msg.Err != nil {
			m.logger.Error("stage load failed", "error", msg.Err, "setlistID", m.ctrl.SetlistID())
		}
		m.refreshContent(true)
		return m, m.startTimers()

	case spinner.TickMsg:
		if m.ctrl.Phase() != stage.PhaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ConnectivityMsg:
		if msg.Watcher != m.watcher {
			return m, nil
		}
		m.online = msg.Online
		return m, m.watcher.Wait()

	case autoScrollTickMsg:
		if msg.session != m.ctrl || msg.gen != m.scrollGen || !m.ctrl.Settings().AutoScroll {
			return m, nil
		}
		m.viewport.LineDown(1)
		return m, autoScrollCmd(m.ctrl, m.scrollGen, m.ctrl.Settings().ScrollSpeed)

	case beatMsg:
		if msg.session != m.ctrl || msg.gen != m.beatGen || !m.ctrl.Settings().Metronome {
			return m, nil
		}
		m.beatOn = true
		return m, tea.Batch(
			beatOffCmd(m.ctrl, m.beatGen),
			beatCmd(m.ctrl, m.beatGen, m.ctrl.CurrentBPM()),
		)

	case beatOffMsg:
		if msg.session == m.ctrl && msg.gen == m.beatGen {
			m.beatOn = false
		}
		return m, nil

	case tea.KeyMsg:
		if m.jumping {
			return m.handleJumpKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey maps keys to controller actions
func (m StageModel) handleKey(msg tea.KeyMsg) (StageModel, tea.Cmd) {
	keys := StageKeys

	switch {
	case key.Matches(msg, keys.Quit):
		m.exit()
		return m, tea.Quit

	case key.Matches(msg, keys.Exit):
		m.exit()
		id := m.ctrl.SetlistID()
		return m, func() tea.Msg { return ExitStageMsg{SetlistID: id} }
	}

	if m.ctrl.Phase() != stage.PhaseReady {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Previous):
		if m.ctrl.Previous() {
			m.refreshContent(true)
			return m, m.restartBeat()
		}
		return m, nil

	case key.Matches(msg, keys.Next):
		if m.ctrl.Next() {
			m.refreshContent(true)
			return m, m.restartBeat()
		}
		return m, nil

	case key.Matches(msg, keys.Jump):
		m.jumping = true
		m.jumpInput.SetValue("")
		m.jumpMatches = nil
		return m, m.jumpInput.Focus()

	case key.Matches(msg, keys.ZoomIn):
		if m.ctrl.ZoomIn() {
			m.refreshContent(false)
		}
		return m, nil

	case key.Matches(msg, keys.ZoomOut):
		if m.ctrl.ZoomOut() {
			m.refreshContent(false)
		}
		return m, nil

	case key.Matches(msg, keys.DarkMode):
		m.ctrl.ToggleDarkMode()
		m.refreshContent(false)
		return m, nil

	case key.Matches(msg, keys.Chords):
		m.ctrl.ToggleChords()
		m.refreshContent(false)
		return m, nil

	case key.Matches(msg, keys.Lyrics):
		m.ctrl.ToggleLyrics()
		m.refreshContent(false)
		return m, nil

	case key.Matches(msg, keys.TransposeUp):
		if m.ctrl.TransposeUp() {
			m.refreshContent(false)
		}
		return m, nil

	case key.Matches(msg, keys.TransposeDown):
		if m.ctrl.TransposeDown() {
			m.refreshContent(false)
		}
		return m, nil

	case key.Matches(msg, keys.AutoScroll):
		m.ctrl.ToggleAutoScroll()
		m.scrollGen++
		if m.ctrl.Settings().AutoScroll {
			return m, autoScrollCmd(m.ctrl, m.scrollGen, m.ctrl.Settings().ScrollSpeed)
		}
		return m, nil

	case key.Matches(msg, keys.Metronome):
		m.ctrl.ToggleMetronome()
		if !m.ctrl.Settings().Metronome {
			m.beatGen++
			m.beatOn = false
			return m, nil
		}
		return m, m.restartBeat()

	case key.Matches(msg, keys.ScrollUp, keys.ScrollDown, keys.PageUp, keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleJumpKey drives the jump-to-song prompt
func (m StageModel) handleJumpKey(msg tea.KeyMsg) (StageModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.jumping = false
		m.jumpInput.Blur()
		return m, nil

	case tea.KeyEnter:
		m.jumping = false
		m.jumpInput.Blur()
		if len(m.jumpMatches) > 0 && m.ctrl.JumpTo(m.jumpMatches[0]) {
			m.refreshContent(true)
			return m, m.restartBeat()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	m.jumpMatches = search.Rank(m.jumpInput.Value(), m.titles())
	return m, cmd
}

// titles lists the running order's song titles, blank for missing songs
func (m StageModel) titles() []string {
	titles := make([]string, m.ctrl.Len())
	for i := range titles {
		if _, song, ok := m.ctrl.At(i); ok && song != nil {
			titles[i] = song.Title
		}
	}
	return titles
}

// exit releases everything the mount acquired
func (m *StageModel) exit() {
	m.exited = true
	m.scrollGen++
	m.beatGen++
	m.watcher.Close()
}

// startTimers resumes auto-scroll and metronome if they were configured on
func (m StageModel) startTimers() tea.Cmd {
	if m.ctrl.Phase() != stage.PhaseReady {
		return nil
	}
	s := m.ctrl.Settings()
	var cmds []tea.Cmd
	if s.AutoScroll {
		cmds = append(cmds, autoScrollCmd(m.ctrl, m.scrollGen, s.ScrollSpeed))
	}
	if s.Metronome {
		cmds = append(cmds, beatCmd(m.ctrl, m.beatGen, m.ctrl.CurrentBPM()))
	}
	return tea.Batch(cmds...)
}

func (m *StageModel) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-stageHeaderHeight-stageFooterHeight)
	m.refreshContent(false)
}

// refreshContent re-renders the current song into the viewport
func (m *StageModel) refreshContent(top bool) {
	item, song, ok := m.ctrl.Current()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(RenderSong(item, song, m.ctrl.Settings(), m.width))
	if top {
		m.viewport.GotoTop()
	}
}

// View renders the stage
func (m StageModel) View() string {
	s := m.ctrl.Settings()
	theme := styles.ThemeFor(s.DarkMode)

	var body string
	switch m.ctrl.Phase() {
	case stage.PhaseLoading:
		body = m.spinner.View() + " " + theme.Meta.Render("Loading setlist...")
	case stage.PhaseError:
		body = theme.Error.Render("Could not load setlist") + "\n\n" +
			theme.Meta.Render(m.ctrl.Err().Error()) + "\n\n" +
			theme.Dim.Render("esc to go back")
	default:
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(theme),
			m.viewport.View(),
			m.renderFooter(theme),
		)
	}

	page := theme.Base
	if m.width > 0 && m.height > 0 {
		page = page.Width(m.width).Height(m.height)
	}
	return page.Render(body)
}

// renderHeader draws the counter, badges and song heading
func (m StageModel) renderHeader(theme styles.Theme) string {
	s := m.ctrl.Settings()
	item, song, ok := m.ctrl.Current()

	counter := theme.Counter.Render(fmt.Sprintf("%d / %d", m.ctrl.Index()+1, m.ctrl.Len()))
	if !ok {
		counter = theme.Counter.Render(fmt.Sprintf("0 / %d", m.ctrl.Len()))
	}

	badges := []string{counter}
	if m.online {
		badges = append(badges, theme.OnlineBadge.Render("ONLINE"))
	} else {
		badges = append(badges, theme.OfflineBadge.Render("OFFLINE"))
	}
	if m.ctrl.IsCached() {
		badges = append(badges, theme.CachedBadge.Render("CACHED"))
	}
	if ok && item.IsEncore {
		badges = append(badges, theme.EncoreBadge.Render("ENCORE"))
	}
	if s.Metronome {
		beat := "♩"
		if m.beatOn {
			beat = "●"
		}
		badges = append(badges, theme.Beat.Render(fmt.Sprintf("%s %d", beat, m.ctrl.CurrentBPM())))
	}
	if show := m.ctrl.Show(); show != nil && show.Setlist != nil && show.Setlist.Title != "" {
		badges = append(badges, theme.Meta.Render(show.Setlist.Title))
	}
	top := strings.Join(badges, " ")

	if !ok {
		return top + "\n" + theme.Title.Render("This setlist has no songs") + "\n"
	}

	title, meta := SongHeading(item, song, s)
	if m.jumping {
		meta = m.jumpInput.View() + m.jumpPreview()
	}
	return top + "\n" + theme.Title.Render(title) + "\n" + theme.Meta.Render(meta)
}

func (m StageModel) jumpPreview() string {
	if len(m.jumpMatches) == 0 {
		return ""
	}
	i := m.jumpMatches[0]
	_, song, _ := m.ctrl.At(i)
	if song == nil {
		return ""
	}
	return fmt.Sprintf("  → %d. %s", i+1, song.Title)
}

// renderFooter draws prev/next hints and the active settings
func (m StageModel) renderFooter(theme styles.Theme) string {
	s := m.ctrl.Settings()

	prev := ""
	if m.ctrl.Index() > 0 {
		prev = "← " + m.titleAt(m.ctrl.Index()-1)
	}
	next := ""
	if m.ctrl.Index() < m.ctrl.Len()-1 {
		next = m.titleAt(m.ctrl.Index()+1) + " →"
		if item, _, ok := m.ctrl.Current(); ok && item.SegueToNext {
			next = "segue ⇢ " + next
		}
	}

	gap := max(1, m.width-lipgloss.Width(prev)-lipgloss.Width(next))
	nav := theme.Dim.Render(prev) + strings.Repeat(" ", gap) + theme.Dim.Render(next)

	var flags []string
	flags = append(flags, s.FontSize.String())
	if s.Transpose != 0 {
		flags = append(flags, fmt.Sprintf("transpose %+d", s.Transpose))
	}
	if !s.ShowChords {
		flags = append(flags, "chords off")
	}
	if !s.ShowLyrics {
		flags = append(flags, "lyrics off")
	}
	if s.AutoScroll {
		flags = append(flags, fmt.Sprintf("scroll %.1fx", s.ScrollSpeed))
	}
	return nav + "\n" + theme.Dim.Render(strings.Join(flags, " · "))
}

func (m StageModel) titleAt(i int) string {
	_, song, ok := m.ctrl.At(i)
	if !ok || song == nil {
		return "(unavailable)"
	}
	return styles.Truncate(song.Title, 30)
}

// restartBeat re-times the metronome for the current song. The old chain is
// orphaned by the generation bump and a song without a tempo schedules nothing.
func (m *StageModel) restartBeat() tea.Cmd {
	if !m.ctrl.Settings().Metronome {
		return nil
	}
	m.beatGen++
	m.beatOn = false
	return beatCmd(m.ctrl, m.beatGen, m.ctrl.CurrentBPM())
}
