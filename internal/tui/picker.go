package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/preload"
	"github.com/mmcdole/encore/internal/search"
	"github.com/mmcdole/encore/internal/tui/styles"
)

// notice is a blocking message box; any dismiss key closes it
type notice struct {
	title   string
	body    string
	isError bool
}

// download tracks an in-flight download-for-offline
type download struct {
	setlistID string
	loaded    int
	total     int
	observer  *ProgressObserver
}

// PickerModel lists setlists and starts stage mode or downloads
type PickerModel struct {
	catalog Catalog
	watcher *ConnectivityWatcher
	online  bool
	logger  *slog.Logger

	entries   []preload.Entry
	fromCache bool
	index     *search.Index
	matches   []search.Match
	cursor    int

	filter    textinput.Model
	filtering bool

	loading  bool
	spinner  spinner.Model
	notice   *notice
	download *download
	locking  string

	width  int
	height int
}

// NewPickerModel creates the picker
func NewPickerModel(catalog Catalog, conn ConnectivitySource, logger *slog.Logger) PickerModel {
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Placeholder = "filter setlists..."
	ti.CharLimit = 50
	ti.Prompt = "/ "
	ti.PromptStyle = styles.AccentStyle
	ti.PlaceholderStyle = styles.DimStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	online := false
	if conn != nil {
		online = conn.IsOnline()
	}

	return PickerModel{
		catalog: catalog,
		watcher: WatchConnectivity(conn),
		online:  online,
		logger:  logger,
		index:   search.NewIndex(nil),
		filter:  ti,
		spinner: sp,
		loading: true,
	}
}

// Init loads the setlists
func (m PickerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.reload(), m.watcher.Wait())
}

func (m PickerModel) reload() tea.Cmd {
	return LoadSetlistsCmd(m.catalog, m.online)
}

// Selected returns the highlighted entry
func (m PickerModel) Selected() (preload.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.matches) {
		return preload.Entry{}, false
	}
	return m.entries[m.matches[m.cursor].Index], true
}

// Close releases the connectivity subscriptions
func (m PickerModel) Close() {
	m.watcher.Close()
}

// Update handles messages
func (m PickerModel) Update(msg tea.Msg) (PickerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = max(10, msg.Width-6)
		return m, nil

	case spinner.TickMsg:
		if !m.loading && m.download == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SetlistsLoadedMsg:
		m.loading = false
		m.setEntries(msg.Entries)
		m.fromCache = msg.FromCache
		return m, nil

	case ErrMsg:
		m.loading = false
		m.notice = &notice{title: "Error", body: msg.Error(), isError: true}
		return m, nil

	case ConnectivityMsg:
		if msg.Watcher != m.watcher {
			return m, nil
		}
		changed := m.online != msg.Online
		m.online = msg.Online
		if changed && m.download == nil {
			return m, tea.Batch(m.watcher.Wait(), m.reload())
		}
		return m, m.watcher.Wait()

	case PreloadProgressMsg:
		if m.download == nil || m.download.setlistID != msg.SetlistID {
			return m, nil
		}
		m.download.loaded = msg.Loaded
		m.download.total = msg.Total
		return m, m.download.observer.Wait()

	case PreloadDoneMsg:
		if m.download == nil || m.download.setlistID != msg.SetlistID {
			return m, nil
		}
		m.download = nil
		m.notice = preloadNotice(msg)
		return m, m.reload()

	case LockChangedMsg:
		m.locking = ""
		if msg.Err != nil {
			verb := "lock"
			if !msg.Locked {
				verb = "unlock"
			}
			m.notice = &notice{title: "Could not " + verb + " setlist", body: msg.Err.Error(), isError: true}
			return m, nil
		}
		return m, m.reload()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func preloadNotice(msg PreloadDoneMsg) *notice {
	r := msg.Report
	switch {
	case msg.Err == nil:
		return &notice{
			title: "Downloaded for offline",
			body:  fmt.Sprintf("%d of %d songs are available offline.", r.Cached, r.Songs),
		}
	case errors.Is(msg.Err, domain.ErrPartialPreload):
		return &notice{
			title:   "Download incomplete",
			body:    fmt.Sprintf("%d of %d songs downloaded; %d failed and will be missing offline.", r.Cached, r.Songs, len(r.Failed)),
			isError: true,
		}
	default:
		return &notice{title: "Download failed", body: msg.Err.Error(), isError: true}
	}
}

// handleKey handles keyboard input
func (m PickerModel) handleKey(msg tea.KeyMsg) (PickerModel, tea.Cmd) {
	keys := PickerKeys

	// A notice blocks everything until dismissed
	if m.notice != nil {
		if key.Matches(msg, keys.Escape, keys.Open) || msg.Type == tea.KeySpace {
			m.notice = nil
		}
		return m, nil
	}

	if m.filtering {
		switch {
		case key.Matches(msg, keys.Escape):
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.applyFilter()
			return m, nil
		case key.Matches(msg, keys.Open):
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, keys.Escape):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.matches)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.reload())

	case key.Matches(msg, keys.Open):
		e, ok := m.Selected()
		if !ok {
			return m, nil
		}
		id := e.Setlist.ID
		return m, func() tea.Msg { return OpenStageMsg{SetlistID: id} }

	case key.Matches(msg, keys.Download):
		e, ok := m.Selected()
		if !ok || m.download != nil {
			return m, nil
		}
		if !m.online {
			m.notice = &notice{
				title:   "Offline",
				body:    "Downloading needs a connection to the backend.",
				isError: true,
			}
			return m, nil
		}
		obs := NewProgressObserver(e.Setlist.ID)
		m.download = &download{setlistID: e.Setlist.ID, observer: obs}
		return m, tea.Batch(m.spinner.Tick, PreloadCmd(m.catalog, e.Setlist.ID, obs), obs.Wait())

	case key.Matches(msg, keys.Lock):
		e, ok := m.Selected()
		if !ok || m.locking != "" {
			return m, nil
		}
		if !m.online {
			m.notice = &notice{title: "Offline", body: "Locking needs a connection to the backend.", isError: true}
			return m, nil
		}
		m.locking = e.Setlist.ID
		return m, SetLockedCmd(m.catalog, e.Setlist.ID, !e.Setlist.Locked)
	}

	return m, nil
}

// setEntries replaces the list, keeping the cursor on the same setlist when possible
func (m *PickerModel) setEntries(entries []preload.Entry) {
	selectedID := ""
	if e, ok := m.Selected(); ok {
		selectedID = e.Setlist.ID
	}

	m.entries = entries
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Setlist.Title + " " + e.Setlist.GetDescription()
	}
	m.index = search.NewIndex(titles)
	m.applyFilter()

	for i, match := range m.matches {
		if m.entries[match.Index].Setlist.ID == selectedID {
			m.cursor = i
			break
		}
	}
}

func (m *PickerModel) applyFilter() {
	m.matches = m.index.Filter(m.filter.Value())
	if m.cursor >= len(m.matches) {
		m.cursor = max(0, len(m.matches)-1)
	}
}

// View renders the picker
func (m PickerModel) View() string {
	var b strings.Builder

	status := styles.SuccessStyle.Render("● online")
	if !m.online {
		status = styles.ErrorStyle.Render("● offline")
	}
	b.WriteString(styles.TitleStyle.Render("encore") + "  " + status)
	if m.fromCache {
		b.WriteString(styles.DimStyle.Render("  showing downloaded setlists"))
	}
	b.WriteString("\n\n")

	if m.notice != nil {
		return b.String() + m.renderNotice()
	}

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n\n")
	}

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading setlists...")
	case len(m.entries) == 0 && m.fromCache:
		b.WriteString(styles.DimStyle.Render("Nothing downloaded yet. Connect and press D on a setlist to keep it offline."))
	case len(m.matches) == 0:
		b.WriteString(styles.DimStyle.Render("No setlists"))
	default:
		b.WriteString(m.renderList())
	}

	if m.download != nil {
		b.WriteString("\n\n" + m.spinner.View() + " Downloading ")
		b.WriteString(styles.RenderProgressBar(m.download.loaded, m.download.total, 30))
		b.WriteString(fmt.Sprintf(" %d/%d", m.download.loaded, m.download.total))
	}

	b.WriteString("\n\n" + m.renderHelp())
	return b.String()
}

func (m PickerModel) renderList() string {
	visible := len(m.matches)
	if m.height > 8 {
		visible = min(visible, m.height-8)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}

	width := max(20, m.width-4)
	var rows []string
	for i := start; i < start+visible && i < len(m.matches); i++ {
		match := m.matches[i]
		e := m.entries[match.Index]

		mark := styles.DimStyle.Render(styles.UncachedChar)
		if e.Cached {
			mark = styles.AccentStyle.Render(styles.CachedChar)
		}
		title := e.Setlist.Title
		if title == "" {
			title = e.Setlist.ID
		}
		if e.Setlist.Locked {
			title += " " + styles.LockedChar
		}
		line := mark + " " + styles.Pad(styles.Truncate(title, width/2), width/2) +
			styles.DimStyle.Render(e.Setlist.GetDescription())

		if i == m.cursor {
			rows = append(rows, styles.SelectedItemStyle.Render(line))
		} else {
			rows = append(rows, styles.NormalItemStyle.Render(line))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m PickerModel) renderNotice() string {
	title := styles.TitleStyle.Render(m.notice.title)
	if m.notice.isError {
		title = styles.ErrorStyle.Bold(true).Render(m.notice.title)
	}
	box := styles.ModalStyle.Render(title + "\n\n" + m.notice.body + "\n\n" + styles.DimStyle.Render("enter to dismiss"))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func (m PickerModel) renderHelp() string {
	keys := PickerKeys
	bindings := []key.Binding{keys.Open, keys.Download, keys.Lock, keys.Filter, keys.Refresh, keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, styles.HelpKeyStyle.Render(h.Key)+" "+styles.HelpDescStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
