package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/encore/internal/adapter"
	"github.com/mmcdole/encore/internal/connectivity"
	"github.com/mmcdole/encore/internal/stage"
	"github.com/mmcdole/encore/internal/store"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T, mon *connectivity.Monitor) Deps {
	t.Helper()
	cache := store.NewCacheStore("", "")
	require.NoError(t, cache.Initialize())
	return Deps{
		Catalog:  &fakeCatalog{entries: sampleEntries()},
		Loader:   stage.NewLoader(threeSongRemote(), cache, mon, adapter.NullLogger()),
		Conn:     mon,
		Settings: stage.DefaultSettings(),
		Logger:   adapter.NullLogger(),
	}
}

func send(t *testing.T, m tea.Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestApp_OpenAndExitStage(t *testing.T) {
	mon := connectivity.NewMonitor(true, adapter.NullLogger())
	m := NewModel(testDeps(t, mon))
	require.Equal(t, ScreenPicker, m.Screen())

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})
	m, cmd := send(t, m, OpenStageMsg{SetlistID: "set-1"})
	require.Equal(t, ScreenStage, m.Screen())
	require.NotNil(t, cmd)

	// Keys reach the stage, not the picker
	m, _ = send(t, m, LoadShowCmd(m.deps.Loader, m.stage.Controller())())
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.Equal(t, 1, m.stage.Controller().Index())
	require.Equal(t, 0, m.picker.cursor)

	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, cmd = send(t, m, cmd())
	require.Equal(t, ScreenPicker, m.Screen())
	require.Nil(t, m.stage)
	require.NotNil(t, cmd, "returning to the picker reloads it")
}

func TestApp_RepeatedMountsDoNotLeakListeners(t *testing.T) {
	mon := connectivity.NewMonitor(true, adapter.NullLogger())
	m := NewModel(testDeps(t, mon))

	for i := 0; i < 5; i++ {
		m, _ = send(t, m, OpenStageMsg{SetlistID: "set-1"})
		on, off := mon.Listeners()
		require.Equal(t, 2, on)
		require.Equal(t, 2, off)

		var cmd tea.Cmd
		m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		m, _ = send(t, m, cmd())
	}

	// Only the picker's subscriptions remain
	on, off := mon.Listeners()
	require.Equal(t, 1, on)
	require.Equal(t, 1, off)
}

func TestApp_DirectStageQuitsOnExit(t *testing.T) {
	mon := connectivity.NewMonitor(false, adapter.NullLogger())
	m := NewStageOnlyModel(testDeps(t, mon), "set-1")
	require.Equal(t, ScreenStage, m.Screen())

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd = send(t, m, cmd())
	require.IsType(t, tea.QuitMsg{}, cmd())

	on, off := mon.Listeners()
	require.Zero(t, on)
	require.Zero(t, off)
}

func TestApp_ConnectivityReachesBothScreens(t *testing.T) {
	mon := connectivity.NewMonitor(true, adapter.NullLogger())
	m := NewModel(testDeps(t, mon))
	m, _ = send(t, m, OpenStageMsg{SetlistID: "set-1"})

	mon.Set(false)
	m, _ = send(t, m, m.picker.watcher.Wait()())
	m, _ = send(t, m, m.stage.watcher.Wait()())

	require.False(t, m.picker.online)
	require.False(t, m.stage.online)
}
