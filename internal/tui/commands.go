package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/preload"
	"github.com/mmcdole/encore/internal/stage"
)

// Catalog is the picker's view of the preload service
type Catalog interface {
	Setlists(ctx context.Context, online bool) ([]preload.Entry, bool, error)
	PreloadForOffline(ctx context.Context, setlistID string, onProgress domain.ProgressFunc) (domain.PreloadReport, error)
	SetLocked(ctx context.Context, setlistID string, locked bool) error
}

// Command factories for async operations

// LoadShowCmd resolves a setlist for a stage session
func LoadShowCmd(loader *stage.Loader, session *stage.Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		show, err := loader.Load(ctx, session.SetlistID())
		return ShowLoadedMsg{Session: session, Show: show, Err: err}
	}
}

// LoadSetlistsCmd loads the picker list
func LoadSetlistsCmd(catalog Catalog, online bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		entries, fromCache, err := catalog.Setlists(ctx, online)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading setlists"}
		}
		return SetlistsLoadedMsg{Entries: entries, FromCache: fromCache}
	}
}

// PreloadCmd downloads a setlist for offline use, reporting progress to observer
func PreloadCmd(catalog Catalog, setlistID string, observer *ProgressObserver) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		defer observer.finish()

		report, err := catalog.PreloadForOffline(ctx, setlistID, observer.OnProgress)
		return PreloadDoneMsg{SetlistID: setlistID, Report: report, Err: err}
	}
}

// SetLockedCmd locks or unlocks a setlist
func SetLockedCmd(catalog Catalog, setlistID string, locked bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := catalog.SetLocked(ctx, setlistID, locked)
		return LockChangedMsg{SetlistID: setlistID, Locked: locked, Err: err}
	}
}

// autoScrollCmd schedules the next auto-scroll step; speed is lines per second
func autoScrollCmd(session *stage.Controller, gen int, speed float64) tea.Cmd {
	if speed <= 0 {
		speed = 1
	}
	interval := time.Duration(float64(time.Second) / speed)
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return autoScrollTickMsg{session: session, gen: gen}
	})
}

// beatCmd schedules the next metronome beat
func beatCmd(session *stage.Controller, gen, bpm int) tea.Cmd {
	if bpm <= 0 {
		return nil
	}
	return tea.Tick(time.Minute/time.Duration(bpm), func(time.Time) tea.Msg {
		return beatMsg{session: session, gen: gen}
	})
}

// beatOffCmd ends the flash a short while after the beat
func beatOffCmd(session *stage.Controller, gen int) tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return beatOffMsg{session: session, gen: gen}
	})
}
