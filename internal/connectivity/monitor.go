// Package connectivity tracks whether the backend is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultProbeInterval is how often Run checks reachability
const DefaultProbeInterval = 15 * time.Second

// Prober checks reachability once (implemented by the backend client)
type Prober interface {
	Ping(ctx context.Context) error
}

type listener struct {
	id int
	fn func()
}

// Monitor holds the current online/offline state
type Monitor struct {
	logger *slog.Logger

	mu        sync.Mutex
	online    bool
	pinned    bool // Forced offline; reports are ignored
	nextID    int
	onOnline  []listener
	onOffline []listener
}

// NewMonitor creates a monitor with an initial state
func NewMonitor(online bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{online: online, logger: logger}
}

// NewForcedOffline creates a monitor that always reports offline
func NewForcedOffline(logger *slog.Logger) *Monitor {
	m := NewMonitor(false, logger)
	m.pinned = true
	return m
}

// IsOnline returns a snapshot of the current state
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnOnline registers fn to run on each transition into the online state
func (m *Monitor) OnOnline(fn func()) *Subscription {
	return m.subscribe(&m.onOnline, fn)
}

// OnOffline registers fn to run on each transition into the offline state
func (m *Monitor) OnOffline(fn func()) *Subscription {
	return m.subscribe(&m.onOffline, fn)
}

func (m *Monitor) subscribe(list *[]listener, fn func()) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	*list = append(*list, listener{id: id, fn: fn})

	return &Subscription{release: func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range *list {
			if l.id == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	}}
}

// Listeners returns how many callbacks are registered (online, offline)
func (m *Monitor) Listeners() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.onOnline), len(m.onOffline)
}

// Set reports the observed state. Callbacks fire only when the state changes,
// and run outside the lock so they may call back into the monitor.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.pinned || m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	var targets []listener
	if online {
		targets = append(targets, m.onOnline...)
	} else {
		targets = append(targets, m.onOffline...)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", "online", online)

	for _, l := range targets {
		l.fn()
	}
}

// Run probes reachability every interval until ctx is done.
// The first probe runs immediately.
func (m *Monitor) Run(ctx context.Context, prober Prober, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	m.probe(ctx, prober, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx, prober, interval)
		}
	}
}

func (m *Monitor) probe(ctx context.Context, prober Prober, timeout time.Duration) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := prober.Ping(pctx)
	if err != nil && ctx.Err() != nil {
		return // Shutting down, not a connectivity signal
	}
	if err != nil {
		m.logger.Debug("reachability probe failed", "error", err)
	}
	m.Set(err == nil)
}

// Subscription is the handle returned by OnOnline and OnOffline
type Subscription struct {
	once    sync.Once
	release func()
}

// Close unregisters the callback. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}
