// Package stage holds the performer-facing playback state machine.
// It knows nothing about rendering; the tui package drives it.
package stage

import (
	"context"
	"fmt"

	"github.com/mmcdole/encore/internal/domain"
)

// Phase is the lifecycle of one stage session
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Controller is the state of one stage session.
// It is not safe for concurrent use; the UI loop owns it.
type Controller struct {
	setlistID string
	phase     Phase
	err       error

	show     *Show
	index    int
	settings Settings
}

// NewController creates a controller in the Loading phase
func NewController(setlistID string, settings Settings) *Controller {
	return &Controller{
		setlistID: setlistID,
		phase:     PhaseLoading,
		settings:  settings,
	}
}

// SetlistID returns the setlist this session plays
func (c *Controller) SetlistID() string { return c.setlistID }

// Load runs the loader and applies its result
func (c *Controller) Load(ctx context.Context, loader *Loader) error {
	show, err := loader.Load(ctx, c.setlistID)
	c.Finish(show, err)
	return err
}

// Finish moves out of Loading: to Error when err is set, otherwise to Ready
func (c *Controller) Finish(show *Show, err error) {
	if c.phase != PhaseLoading {
		return
	}
	if err == nil && show == nil {
		err = fmt.Errorf("setlist %s: %w", c.setlistID, domain.ErrNotFound)
	}
	if err != nil {
		c.phase = PhaseError
		c.err = err
		return
	}
	c.show = show
	c.index = 0
	c.phase = PhaseReady
}

// Phase returns the current phase
func (c *Controller) Phase() Phase { return c.phase }

// Err returns why loading failed, nil unless in PhaseError
func (c *Controller) Err() error { return c.err }

// Show returns the loaded show, nil until Ready
func (c *Controller) Show() *Show { return c.show }

// Len returns the number of items in the running order
func (c *Controller) Len() int {
	if c.show == nil {
		return 0
	}
	return len(c.show.Items)
}

// Index returns the 0-based position of the current item
func (c *Controller) Index() int { return c.index }

// IsCached reports whether the session is served from the offline cache
func (c *Controller) IsCached() bool { return c.show != nil && c.show.IsCached }

// IsOnline reports connectivity as seen when the session loaded
func (c *Controller) IsOnline() bool { return c.show != nil && c.show.IsOnline }

// Settings returns a copy of the display settings
func (c *Controller) Settings() Settings { return c.settings }

// Current resolves the current item and its song.
// song is nil when the item references a song that could not be loaded.
func (c *Controller) Current() (item domain.SetlistItem, song *domain.Song, ok bool) {
	return c.At(c.index)
}

// At resolves the item at index i
func (c *Controller) At(i int) (item domain.SetlistItem, song *domain.Song, ok bool) {
	if i < 0 || i >= c.Len() {
		return domain.SetlistItem{}, nil, false
	}
	item = c.show.Items[i]
	return item, c.show.Songs[item.SongID], true
}

// === Navigation ===

// Next advances one item, stopping at the last
func (c *Controller) Next() bool {
	if c.index >= c.Len()-1 {
		return false
	}
	c.index++
	return true
}

// Previous goes back one item, stopping at the first
func (c *Controller) Previous() bool {
	if c.index <= 0 {
		return false
	}
	c.index--
	return true
}

// JumpTo moves to item i; out-of-range indexes are ignored
func (c *Controller) JumpTo(i int) bool {
	if i < 0 || i >= c.Len() || i == c.index {
		return false
	}
	c.index = i
	return true
}

// === Display settings ===

// ZoomIn steps the font size up, stopping at xlarge
func (c *Controller) ZoomIn() bool {
	if c.settings.FontSize >= FontXLarge {
		return false
	}
	c.settings.FontSize++
	return true
}

// ZoomOut steps the font size down, stopping at small
func (c *Controller) ZoomOut() bool {
	if c.settings.FontSize <= FontSmall {
		return false
	}
	c.settings.FontSize--
	return true
}

func (c *Controller) ToggleDarkMode()   { c.settings.DarkMode = !c.settings.DarkMode }
func (c *Controller) ToggleChords()     { c.settings.ShowChords = !c.settings.ShowChords }
func (c *Controller) ToggleLyrics()     { c.settings.ShowLyrics = !c.settings.ShowLyrics }
func (c *Controller) ToggleAutoScroll() { c.settings.AutoScroll = !c.settings.AutoScroll }
func (c *Controller) ToggleMetronome()  { c.settings.Metronome = !c.settings.Metronome }

// TransposeUp raises chords by a semitone, up to MaxTranspose
func (c *Controller) TransposeUp() bool {
	if c.settings.Transpose >= MaxTranspose {
		return false
	}
	c.settings.Transpose++
	return true
}

// TransposeDown lowers chords by a semitone, down to -MaxTranspose
func (c *Controller) TransposeDown() bool {
	if c.settings.Transpose <= -MaxTranspose {
		return false
	}
	c.settings.Transpose--
	return true
}

// CurrentBPM returns the metronome tempo for the current item.
// An explicit Settings.BPM wins over the item override and the song's own tempo.
func (c *Controller) CurrentBPM() int {
	if c.settings.BPM > 0 {
		return c.settings.BPM
	}
	item, song, ok := c.Current()
	if !ok {
		return 0
	}
	return item.Tempo(song)
}
