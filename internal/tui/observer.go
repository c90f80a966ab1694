package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/encore/internal/connectivity"
)

// ConnectivitySource is what the TUI needs from the connectivity monitor
type ConnectivitySource interface {
	IsOnline() bool
	OnOnline(fn func()) *connectivity.Subscription
	OnOffline(fn func()) *connectivity.Subscription
}

// ConnectivityWatcher adapts connectivity callbacks to a channel for Bubble Tea.
// Each mounted screen owns one and closes it on unmount, which releases its
// subscriptions.
type ConnectivityWatcher struct {
	ch   chan bool
	done chan struct{}
	subs []*connectivity.Subscription
	once sync.Once
}

// WatchConnectivity subscribes to transitions of src.
// A nil src yields a watcher that never reports anything.
func WatchConnectivity(src ConnectivitySource) *ConnectivityWatcher {
	w := &ConnectivityWatcher{
		ch:   make(chan bool, 1),
		done: make(chan struct{}),
	}
	if src == nil {
		return w
	}
	w.subs = []*connectivity.Subscription{
		src.OnOnline(func() { w.send(true) }),
		src.OnOffline(func() { w.send(false) }),
	}
	return w
}

// send keeps only the latest state when the UI is slow to read
func (w *ConnectivityWatcher) send(online bool) {
	for {
		select {
		case w.ch <- online:
			return
		case <-w.done:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

// Wait returns a command that delivers the next transition
func (w *ConnectivityWatcher) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case online := <-w.ch:
			return ConnectivityMsg{Watcher: w, Online: online}
		case <-w.done:
			return nil
		}
	}
}

// Close unsubscribes and unblocks any pending Wait
func (w *ConnectivityWatcher) Close() {
	w.once.Do(func() {
		for _, s := range w.subs {
			s.Close()
		}
		close(w.done)
	})
}

// ProgressObserver adapts preload progress callbacks to a channel for Bubble Tea
type ProgressObserver struct {
	setlistID string
	ch        chan PreloadProgressMsg
}

// NewProgressObserver creates a progress observer for one download
func NewProgressObserver(setlistID string) *ProgressObserver {
	return &ProgressObserver{
		setlistID: setlistID,
		ch:        make(chan PreloadProgressMsg, 16),
	}
}

// OnProgress sends progress to the channel (non-blocking if full)
func (o *ProgressObserver) OnProgress(loaded, total int) {
	select {
	case o.ch <- PreloadProgressMsg{SetlistID: o.setlistID, Loaded: loaded, Total: total}:
	default: // Non-blocking if channel full
	}
}

// Wait returns a command that delivers the next progress report.
// It returns nil once the download is finished and the channel closed.
func (o *ProgressObserver) Wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-o.ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (o *ProgressObserver) finish() {
	close(o.ch)
}
