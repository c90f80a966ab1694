package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/encore/internal/adapter"
	"github.com/mmcdole/encore/internal/connectivity"
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/stage"
	"github.com/mmcdole/encore/internal/store"
	"github.com/stretchr/testify/require"
)

type stubRemote struct {
	items map[string][]json.RawMessage
	songs map[string]json.RawMessage
	err   error
}

func newStubRemote() *stubRemote {
	return &stubRemote{items: map[string][]json.RawMessage{}, songs: map[string]json.RawMessage{}}
}

func (r *stubRemote) item(setlistID, songID string) {
	pos := len(r.items[setlistID]) + 1
	r.items[setlistID] = append(r.items[setlistID],
		json.RawMessage(fmt.Sprintf(`{"song_id":%q,"position":%d}`, songID, pos)))
}

func (r *stubRemote) song(id, title, lyrics string) {
	payload, _ := json.Marshal(domain.Song{ID: id, Title: title, Lyrics: lyrics, BPM: 100, OriginalKey: "G"})
	r.songs[id] = payload
}

func (r *stubRemote) FetchSetlist(ctx context.Context, id string) (json.RawMessage, error) {
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(fmt.Sprintf(`{"id":%q,"title":"Friday Late Show"}`, id)), nil
}

func (r *stubRemote) FetchSetlistItems(ctx context.Context, id string) ([]json.RawMessage, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.items[id], nil
}

func (r *stubRemote) FetchSong(ctx context.Context, id string) (json.RawMessage, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.songs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func longLyrics(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d of the song", i+1)
	}
	return strings.Join(lines, "\n")
}

// mountStage creates a stage model sized to the terminal and runs its load synchronously
func mountStage(t *testing.T, remote *stubRemote, mon *connectivity.Monitor) StageModel {
	t.Helper()
	cache := store.NewCacheStore("", "")
	require.NoError(t, cache.Initialize())
	loader := stage.NewLoader(remote, cache, mon, adapter.NullLogger())

	m := NewStageModel("set-1", stage.DefaultSettings(), loader, mon, adapter.NullLogger())
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})

	msg := LoadShowCmd(loader, m.Controller())()
	m, _ = m.Update(msg)
	return m
}

func threeSongRemote() *stubRemote {
	r := newStubRemote()
	r.item("set-1", "a")
	r.item("set-1", "b")
	r.item("set-1", "c")
	r.song("a", "Harbor Lights", longLyrics(40))
	r.song("b", "Northern Road", "verse one")
	r.song("c", "Last Call", longLyrics(40))
	return r
}

func press(m StageModel, k tea.KeyMsg) (StageModel, tea.Cmd) {
	return m.Update(k)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStage_LoadsIntoReady(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	require.Equal(t, stage.PhaseReady, m.Controller().Phase())
	view := m.View()
	require.Contains(t, view, "1 / 3")
	require.Contains(t, view, "Harbor Lights")
	require.Contains(t, view, "ONLINE")
}

func TestStage_ArrowAndSpaceNavigation(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, 0, m.Controller().Index())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 1, m.Controller().Index())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace})
	require.Equal(t, 2, m.Controller().Index())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace})
	require.Equal(t, 2, m.Controller().Index())
	require.Contains(t, m.View(), "3 / 3")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, 1, m.Controller().Index())
}

func TestStage_SpaceNeverScrollsTheSong(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 2, m.Controller().Index())

	// On the last song space has nothing to advance to, and still must not page down
	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace})
	require.Equal(t, 0, m.viewport.YOffset)

	// Arrow down does scroll
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.viewport.YOffset)
}

func TestStage_EscExitsAndReleasesSubscriptions(t *testing.T) {
	mon := connectivity.NewMonitor(true, adapter.NullLogger())
	m := mountStage(t, threeSongRemote(), mon)

	on, off := mon.Listeners()
	require.Equal(t, 1, on)
	require.Equal(t, 1, off)

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, m.Exited())
	require.NotNil(t, cmd)
	require.Equal(t, ExitStageMsg{SetlistID: "set-1"}, cmd())

	on, off = mon.Listeners()
	require.Zero(t, on)
	require.Zero(t, off)

	// Keys after unmount do nothing
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 0, m.Controller().Index())
}

func TestStage_MissingSongRendersChrome(t *testing.T) {
	r := newStubRemote()
	r.item("set-1", "a")
	r.item("set-1", "ghost")
	r.song("a", "Harbor Lights", "hello")

	m := mountStage(t, r, connectivity.NewMonitor(true, adapter.NullLogger()))
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRight})

	_, song, ok := m.Controller().Current()
	require.True(t, ok)
	require.Nil(t, song)

	view := m.View()
	require.Contains(t, view, "2 / 2")
	require.Contains(t, view, "Song unavailable")
	require.Contains(t, view, "← Harbor Lights")
}

func TestStage_EmptySetlist(t *testing.T) {
	m := mountStage(t, newStubRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	require.Equal(t, stage.PhaseReady, m.Controller().Phase())
	require.Contains(t, m.View(), "no songs")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeySpace})
	require.Equal(t, 0, m.Controller().Index())
}

func TestStage_LoadFailureShowsError(t *testing.T) {
	r := newStubRemote()
	r.err = fmt.Errorf("%w: connection refused", domain.ErrNetwork)

	m := mountStage(t, r, connectivity.NewMonitor(true, adapter.NullLogger()))

	require.Equal(t, stage.PhaseError, m.Controller().Phase())
	view := m.View()
	require.Contains(t, view, "Could not load setlist")
	require.Contains(t, view, "connection refused")

	// Esc still leaves
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.IsType(t, ExitStageMsg{}, cmd())
}

func TestStage_DisplayKeys(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	m, _ = press(m, runes("+"))
	require.Equal(t, stage.FontXLarge, m.Controller().Settings().FontSize)
	m, _ = press(m, runes("+"))
	require.Equal(t, stage.FontXLarge, m.Controller().Settings().FontSize)

	m, _ = press(m, runes("-"))
	require.Equal(t, stage.FontLarge, m.Controller().Settings().FontSize)

	m, _ = press(m, runes("d"))
	require.False(t, m.Controller().Settings().DarkMode)

	m, _ = press(m, runes("c"))
	require.False(t, m.Controller().Settings().ShowChords)

	m, _ = press(m, runes("l"))
	require.False(t, m.Controller().Settings().ShowLyrics)

	m, _ = press(m, runes("t"))
	m, _ = press(m, runes("t"))
	m, _ = press(m, runes("T"))
	require.Equal(t, 1, m.Controller().Settings().Transpose)
	require.Contains(t, m.View(), "Key G → G# (+1)")
}

func TestStage_AutoScrollTicks(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	m, cmd := press(m, runes("a"))
	require.True(t, m.Controller().Settings().AutoScroll)
	require.NotNil(t, cmd)

	m, _ = m.Update(autoScrollTickMsg{session: m.Controller(), gen: m.scrollGen})
	require.Equal(t, 1, m.viewport.YOffset)

	// Ticks from before a toggle are stale
	stale := m.scrollGen
	m, _ = press(m, runes("a"))
	m, _ = m.Update(autoScrollTickMsg{session: m.Controller(), gen: stale})
	require.Equal(t, 1, m.viewport.YOffset)
}

func TestStage_MetronomeFlashes(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	m, cmd := press(m, runes("m"))
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "♩ 100")

	m, _ = m.Update(beatMsg{session: m.Controller(), gen: m.beatGen})
	require.Contains(t, m.View(), "● 100")

	m, _ = m.Update(beatOffMsg{session: m.Controller(), gen: m.beatGen})
	require.Contains(t, m.View(), "♩ 100")
}

func TestStage_MetronomeResumesAfterSongWithoutTempo(t *testing.T) {
	r := newStubRemote()
	r.item("set-1", "a")
	r.item("set-1", "b")
	r.songs["a"] = json.RawMessage(`{"id":"a","title":"Count In"}`)
	r.song("b", "Northern Road", "verse one")
	m := mountStage(t, r, connectivity.NewMonitor(true, adapter.NullLogger()))

	// No tempo on the first song, so nothing is scheduled yet
	m, cmd := press(m, runes("m"))
	require.Nil(t, cmd)
	require.True(t, m.Controller().Settings().Metronome)

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 1, m.Controller().Index())
	require.NotNil(t, cmd)

	beat, ok := cmd().(beatMsg)
	require.True(t, ok)
	m, _ = m.Update(beat)
	require.Contains(t, m.View(), "● 100")
}

func TestStage_ConnectivityBadge(t *testing.T) {
	mon := connectivity.NewMonitor(true, adapter.NullLogger())
	m := mountStage(t, threeSongRemote(), mon)

	mon.Set(false)
	msg := m.watcher.Wait()()
	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "OFFLINE")

	// The session keeps what it loaded
	require.Equal(t, stage.PhaseReady, m.Controller().Phase())
	require.Equal(t, 3, m.Controller().Len())
}

func TestStage_JumpToSong(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	m, _ = press(m, runes("/"))
	require.True(t, m.jumping)

	for _, r := range "last" {
		m, _ = press(m, runes(string(r)))
	}
	require.Equal(t, []int{2}, m.jumpMatches)

	// Navigation keys type into the prompt while it is open
	require.Equal(t, 0, m.Controller().Index())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.jumping)
	require.Equal(t, 2, m.Controller().Index())
}

func TestStage_StaleLoadIgnored(t *testing.T) {
	m := mountStage(t, threeSongRemote(), connectivity.NewMonitor(true, adapter.NullLogger()))

	other := stage.NewController("set-1", stage.DefaultSettings())
	m, _ = m.Update(ShowLoadedMsg{Session: other, Err: fmt.Errorf("late")})
	require.Equal(t, stage.PhaseReady, m.Controller().Phase())
}
