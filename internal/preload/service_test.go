package preload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mmcdole/encore/internal/adapter"
	"github.com/mmcdole/encore/internal/domain"
	"github.com/mmcdole/encore/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu         sync.Mutex
	setlists   map[string]json.RawMessage
	items      map[string][]json.RawMessage
	songs      map[string]json.RawMessage
	songErr    map[string]error
	setlistErr error
	songCalls  map[string]int
	patches    []map[string]any
	updateErr  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		setlists:  map[string]json.RawMessage{},
		items:     map[string][]json.RawMessage{},
		songs:     map[string]json.RawMessage{},
		songErr:   map[string]error{},
		songCalls: map[string]int{},
	}
}

func (f *fakeRemote) addSetlist(id string, songIDs ...string) {
	f.setlists[id] = json.RawMessage(fmt.Sprintf(`{"id":%q,"title":"Set %s"}`, id, id))
	for i, songID := range songIDs {
		f.items[id] = append(f.items[id], json.RawMessage(fmt.Sprintf(`{"song_id":%q,"position":%d}`, songID, i+1)))
		f.songs[songID] = json.RawMessage(fmt.Sprintf(`{"id":%q,"title":"Song %s"}`, songID, songID))
	}
}

func (f *fakeRemote) FetchSetlist(ctx context.Context, id string) (json.RawMessage, error) {
	if f.setlistErr != nil {
		return nil, f.setlistErr
	}
	p, ok := f.setlists[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRemote) FetchSetlistItems(ctx context.Context, id string) ([]json.RawMessage, error) {
	if f.setlistErr != nil {
		return nil, f.setlistErr
	}
	return f.items[id], nil
}

func (f *fakeRemote) FetchSong(ctx context.Context, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.songCalls[id]++
	if err := f.songErr[id]; err != nil {
		return nil, err
	}
	return f.songs[id], nil
}

func (f *fakeRemote) FetchSetlists(ctx context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for _, p := range f.setlists {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRemote) UpdateSetlist(ctx context.Context, id string, patch map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches = append(f.patches, patch)
	f.setlists[id] = json.RawMessage(fmt.Sprintf(`{"id":%q,"title":"Set %s","locked":%t}`, id, id, patch["locked"]))
	return nil
}

// orderedStore records the sequence of writes
type orderedStore struct {
	*store.CacheStore
	mu     sync.Mutex
	writes []string
}

func (s *orderedStore) PutSong(id string, payload json.RawMessage, version int) error {
	s.mu.Lock()
	s.writes = append(s.writes, "song:"+id)
	s.mu.Unlock()
	return s.CacheStore.PutSong(id, payload, version)
}

func (s *orderedStore) PreloadSetlist(id string, payload json.RawMessage, items []json.RawMessage) error {
	s.mu.Lock()
	s.writes = append(s.writes, "setlist:"+id)
	s.mu.Unlock()
	return s.CacheStore.PreloadSetlist(id, payload, items)
}

func newStore(t *testing.T) *orderedStore {
	t.Helper()
	cs := store.NewCacheStore("", "")
	require.NoError(t, cs.Initialize())
	return &orderedStore{CacheStore: cs}
}

func TestPreloadForOffline_CachesSetlistAndSongs(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a", "b", "a", "c")
	st := newStore(t)

	var progress [][2]int
	var mu sync.Mutex
	svc := NewService(remote, remote, st, 2, adapter.NullLogger())

	report, err := svc.PreloadForOffline(context.Background(), "set-1", func(loaded, total int) {
		mu.Lock()
		progress = append(progress, [2]int{loaded, total})
		mu.Unlock()
	})
	require.NoError(t, err)
	require.True(t, report.Complete())
	require.Equal(t, 3, report.Songs)
	require.NotEmpty(t, report.RunID)

	// Repeated song fetched once
	require.Equal(t, 1, remote.songCalls["a"])

	entry, ok, err := st.GetSetlist("set-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entry.Items, 4)

	for _, id := range []string{"a", "b", "c"} {
		_, ok, err := st.GetSong(id)
		require.NoError(t, err)
		require.True(t, ok, "song %s cached", id)
	}

	require.Len(t, progress, 3)
	require.ElementsMatch(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestPreloadForOffline_ProgressArrivesInOrder(t *testing.T) {
	ids := make([]string, 24)
	for i := range ids {
		ids[i] = fmt.Sprintf("song-%02d", i)
	}
	remote := newFakeRemote()
	remote.addSetlist("set-1", ids...)

	// The callback is not synchronized: reports must already be serialized
	var progress [][2]int
	svc := NewService(remote, remote, newStore(t), 8, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", func(loaded, total int) {
		progress = append(progress, [2]int{loaded, total})
	})
	require.NoError(t, err)

	require.Len(t, progress, len(ids))
	for i, p := range progress {
		require.Equal(t, [2]int{i + 1, len(ids)}, p)
	}
}

func TestPreloadForOffline_PartialFailureKeepsSuccesses(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a", "b", "c")
	remote.songErr["b"] = fmt.Errorf("%w: status 502", domain.ErrNetwork)
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	report, err := svc.PreloadForOffline(context.Background(), "set-1", nil)

	require.ErrorIs(t, err, domain.ErrPartialPreload)
	require.ErrorIs(t, err, domain.ErrNetwork)
	require.False(t, report.Complete())
	require.Equal(t, 2, report.Cached)
	require.Contains(t, report.Failed, "b")

	_, ok, _ := st.GetSetlist("set-1")
	require.True(t, ok)
	_, ok, _ = st.GetSong("a")
	require.True(t, ok)
	_, ok, _ = st.GetSong("b")
	require.False(t, ok)
	_, ok, _ = st.GetSong("c")
	require.True(t, ok)
}

func TestPreloadForOffline_SetlistWrittenBeforeSongs(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a", "b", "c", "d")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", nil)
	require.NoError(t, err)

	require.Len(t, st.writes, 5)
	require.Equal(t, "setlist:set-1", st.writes[0])
}

func TestPreloadForOffline_SetlistFetchFailureWritesNothing(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a")
	remote.setlistErr = fmt.Errorf("%w: connection refused", domain.ErrNetwork)
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", nil)

	require.ErrorIs(t, err, domain.ErrNetwork)
	require.NotErrorIs(t, err, domain.ErrPartialPreload)
	require.Empty(t, st.writes)
	require.Zero(t, remote.songCalls["a"])
}

func TestPreloadForOffline_EmptySetlist(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	report, err := svc.PreloadForOffline(context.Background(), "set-1", nil)
	require.NoError(t, err)
	require.True(t, report.Complete())

	entry, ok, err := st.GetSetlist("set-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, entry.Items)
}

func TestRefreshCached_ReloadsEverySetlist(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a")
	remote.addSetlist("set-2", "b")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", nil)
	require.NoError(t, err)
	_, err = svc.PreloadForOffline(context.Background(), "set-2", nil)
	require.NoError(t, err)

	remote.songErr["b"] = fmt.Errorf("%w: timeout", domain.ErrNetwork)
	reports, err := svc.RefreshCached(context.Background())

	require.Len(t, reports, 2)
	require.ErrorIs(t, err, domain.ErrPartialPreload)
	require.Equal(t, 2, remote.songCalls["a"])
}

func TestSetLocked_UpdatesBackendThenCache(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", nil)
	require.NoError(t, err)

	require.NoError(t, svc.SetLocked(context.Background(), "set-1", true))
	require.Equal(t, []map[string]any{{"locked": true}}, remote.patches)

	entry, ok, err := st.GetSetlist("set-1")
	require.NoError(t, err)
	require.True(t, ok)
	setlist, err := domain.DecodeSetlist(entry.Payload)
	require.NoError(t, err)
	require.True(t, setlist.Locked)
	require.Len(t, entry.Items, 1)
}

func TestSetLocked_BackendFailureLeavesCache(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", nil)
	require.NoError(t, err)

	remote.updateErr = errors.New("permission denied")
	require.Error(t, svc.SetLocked(context.Background(), "set-1", true))

	entry, _, err := st.GetSetlist("set-1")
	require.NoError(t, err)
	setlist, err := domain.DecodeSetlist(entry.Payload)
	require.NoError(t, err)
	require.False(t, setlist.Locked)
}

func TestSetLocked_WithoutDirectory(t *testing.T) {
	svc := NewService(newFakeRemote(), nil, newStore(t), 4, adapter.NullLogger())
	require.Error(t, svc.SetLocked(context.Background(), "set-1", true))
}

func TestSetlists_OnlineFlagsCachedEntries(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a")
	remote.addSetlist("set-2", "b")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-2", nil)
	require.NoError(t, err)

	entries, fromCache, err := svc.Setlists(context.Background(), true)
	require.NoError(t, err)
	require.False(t, fromCache)
	require.Len(t, entries, 2)

	cached := map[string]bool{}
	for _, e := range entries {
		cached[e.Setlist.ID] = e.Cached
	}
	require.Equal(t, map[string]bool{"set-1": false, "set-2": true}, cached)
}

func TestSetlists_OfflineListsCacheOnly(t *testing.T) {
	remote := newFakeRemote()
	remote.addSetlist("set-1", "a")
	remote.addSetlist("set-2", "b")
	st := newStore(t)

	svc := NewService(remote, remote, st, 4, adapter.NullLogger())
	_, err := svc.PreloadForOffline(context.Background(), "set-1", nil)
	require.NoError(t, err)

	entries, fromCache, err := svc.Setlists(context.Background(), false)
	require.NoError(t, err)
	require.True(t, fromCache)
	require.Len(t, entries, 1)
	require.Equal(t, "set-1", entries[0].Setlist.ID)
	require.Equal(t, "Set set-1", entries[0].Setlist.Title)
	require.False(t, entries[0].CachedAt.IsZero())
}
