package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitor_InitialState(t *testing.T) {
	require.True(t, NewMonitor(true, nil).IsOnline())
	require.False(t, NewMonitor(false, nil).IsOnline())
}

func TestMonitor_CallbacksFireOnTransitionOnly(t *testing.T) {
	m := NewMonitor(true, nil)

	var online, offline int
	m.OnOnline(func() { online++ })
	m.OnOffline(func() { offline++ })

	m.Set(true) // no change
	require.Equal(t, 0, online)

	m.Set(false)
	m.Set(false)
	require.Equal(t, 1, offline)
	require.False(t, m.IsOnline())

	m.Set(true)
	require.Equal(t, 1, online)
	require.True(t, m.IsOnline())
}

func TestMonitor_SubscriptionCloseUnregisters(t *testing.T) {
	m := NewMonitor(true, nil)

	var calls int
	sub := m.OnOffline(func() { calls++ })
	keep := m.OnOffline(func() {})

	on, off := m.Listeners()
	require.Equal(t, 0, on)
	require.Equal(t, 2, off)

	sub.Close()
	sub.Close() // idempotent

	_, off = m.Listeners()
	require.Equal(t, 1, off)

	m.Set(false)
	require.Equal(t, 0, calls)

	keep.Close()
	_, off = m.Listeners()
	require.Equal(t, 0, off)
}

func TestMonitor_RepeatedMountDoesNotLeak(t *testing.T) {
	m := NewMonitor(true, nil)

	for i := 0; i < 50; i++ {
		a := m.OnOnline(func() {})
		b := m.OnOffline(func() {})
		a.Close()
		b.Close()
	}

	on, off := m.Listeners()
	require.Zero(t, on)
	require.Zero(t, off)
}

func TestMonitor_CallbackMayReenter(t *testing.T) {
	m := NewMonitor(true, nil)

	var seen bool
	var sub *Subscription
	sub = m.OnOffline(func() {
		seen = !m.IsOnline()
		sub.Close()
	})

	m.Set(false)
	require.True(t, seen)

	_, off := m.Listeners()
	require.Zero(t, off)
}

func TestMonitor_ForcedOfflineIgnoresReports(t *testing.T) {
	m := NewForcedOffline(nil)

	var online int
	m.OnOnline(func() { online++ })
	m.Set(true)

	require.False(t, m.IsOnline())
	require.Zero(t, online)
}

type fakeProber struct {
	mu  sync.Mutex
	err error
	n   atomic.Int32
}

func (p *fakeProber) Ping(ctx context.Context) error {
	p.n.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func TestMonitor_RunProbes(t *testing.T) {
	m := NewMonitor(true, nil)
	prober := &fakeProber{}
	prober.fail(errors.New("dial tcp: no route to host"))

	wentOffline := make(chan struct{}, 1)
	m.OnOffline(func() { wentOffline <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, prober, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-wentOffline:
	case <-time.After(time.Second):
		t.Fatal("monitor never went offline")
	}

	prober.fail(nil)
	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.GreaterOrEqual(t, prober.n.Load(), int32(2))
}
