package tui

import (
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/preload"
	"github.com/mmcdole/encore/internal/stage"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// ShowLoadedMsg carries the result of a stage load.
// Session identifies which stage mount asked for it.
type ShowLoadedMsg struct {
	Session *stage.Controller
	Show    *stage.Show
	Err     error
}

// OpenStageMsg asks the app to mount stage mode for a setlist
type OpenStageMsg struct {
	SetlistID string
}

// ExitStageMsg signals that stage mode was left
type ExitStageMsg struct {
	SetlistID string
}

// ConnectivityMsg reports a connectivity transition to one watcher
type ConnectivityMsg struct {
	Watcher *ConnectivityWatcher
	Online  bool
}

// SetlistsLoadedMsg signals that the picker list is ready
type SetlistsLoadedMsg struct {
	Entries   []preload.Entry
	FromCache bool
}

// PreloadProgressMsg reports songs downloaded so far
type PreloadProgressMsg struct {
	SetlistID string
	Loaded    int
	Total     int
}

// PreloadDoneMsg signals that download-for-offline finished
type PreloadDoneMsg struct {
	SetlistID string
	Report    domain.PreloadReport
	Err       error
}

// LockChangedMsg signals that a lock/unlock request finished
type LockChangedMsg struct {
	SetlistID string
	Locked    bool
	Err       error
}

// autoScrollTickMsg advances the lyrics viewport
type autoScrollTickMsg struct {
	session *stage.Controller
	gen     int
}

// beatMsg is one metronome beat
type beatMsg struct {
	session *stage.Controller
	gen     int
}

// beatOffMsg ends the visual flash of a beat
type beatOffMsg struct {
	session *stage.Controller
	gen     int
}
