package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/encore/internal/domain"
	"golang.org/x/sync/errgroup"
)

const defaultFetchConcurrency = 6

// Show is everything a stage session needs, resolved once at load time
type Show struct {
	SetlistID string
	Setlist   *domain.Setlist // nil when the header could not be read
	Items     []domain.SetlistItem
	Songs     map[string]*domain.Song
	IsCached  bool // Served from the offline cache
	IsOnline  bool // Connectivity at load time
}

// Loader decides between the network and the offline cache for a setlist
type Loader struct {
	remote      domain.Remote
	store       domain.Store
	conn        domain.Connectivity
	concurrency int
	logger      *slog.Logger
}

// NewLoader creates a Loader
func NewLoader(remote domain.Remote, store domain.Store, conn domain.Connectivity, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		remote:      remote,
		store:       store,
		conn:        conn,
		concurrency: defaultFetchConcurrency,
		logger:      logger,
	}
}

// Load resolves a setlist for stage mode.
//
// A cached copy is used when the backend is unreachable; nothing is fetched
// in that case. Otherwise items and songs come from the network and every
// song received is written to the cache. The decision is made once.
func (l *Loader) Load(ctx context.Context, setlistID string) (*Show, error) {
	entry, cached, err := l.store.GetSetlist(setlistID)
	if err != nil {
		return nil, fmt.Errorf("read cached setlist: %w", err)
	}

	online := l.conn.IsOnline()
	if cached && !online {
		return l.fromCache(setlistID, entry, online)
	}

	show, err := l.fromRemote(ctx, setlistID, online)
	if err != nil && cached && errors.Is(err, domain.ErrNetwork) {
		l.logger.Warn("backend unreachable, using offline copy", "error", err, "setlistID", setlistID)
		return l.fromCache(setlistID, entry, online)
	}
	return show, err
}

func (l *Loader) fromCache(setlistID string, entry *domain.SetlistEntry, online bool) (*Show, error) {
	items, err := domain.DecodeItems(entry.Items)
	if err != nil {
		return nil, err
	}

	show := &Show{
		SetlistID: setlistID,
		Items:     items,
		Songs:     make(map[string]*domain.Song, len(items)),
		IsCached:  true,
		IsOnline:  online,
	}
	if setlist, err := domain.DecodeSetlist(entry.Payload); err == nil {
		show.Setlist = setlist
	}

	for _, songID := range domain.DistinctSongIDs(items) {
		payload, ok, err := l.store.GetSong(songID)
		if err != nil {
			return nil, fmt.Errorf("read cached song %s: %w", songID, err)
		}
		if !ok {
			l.logger.Debug("song not cached", "songID", songID, "setlistID", setlistID)
			continue
		}
		song, err := domain.DecodeSong(payload)
		if err != nil {
			l.logger.Warn("skipping undecodable song", "error", err, "songID", songID)
			continue
		}
		show.Songs[songID] = song
	}

	l.logger.Info("loaded setlist from cache", "setlistID", setlistID, "items", len(items), "songs", len(show.Songs))
	return show, nil
}

func (l *Loader) fromRemote(ctx context.Context, setlistID string, online bool) (*Show, error) {
	rawItems, err := l.remote.FetchSetlistItems(ctx, setlistID)
	if err != nil {
		l.logger.Error("failed to fetch setlist items", "error", err, "setlistID", setlistID)
		return nil, err
	}
	items, err := domain.DecodeItems(rawItems)
	if err != nil {
		return nil, err
	}

	show := &Show{
		SetlistID: setlistID,
		Items:     items,
		Songs:     make(map[string]*domain.Song, len(items)),
		IsOnline:  online,
	}

	// The header only feeds the title bar
	if payload, err := l.remote.FetchSetlist(ctx, setlistID); err == nil {
		show.Setlist, _ = domain.DecodeSetlist(payload)
	} else {
		l.logger.Warn("failed to fetch setlist header", "error", err, "setlistID", setlistID)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(l.concurrency)

	for _, songID := range domain.DistinctSongIDs(items) {
		g.Go(func() error {
			payload, err := l.remote.FetchSong(ctx, songID)
			if err != nil {
				l.logger.Warn("failed to fetch song", "error", err, "songID", songID)
				return nil
			}
			if err := l.store.PutSong(songID, payload, 1); err != nil {
				l.logger.Warn("failed to cache song", "error", err, "songID", songID)
			}
			song, err := domain.DecodeSong(payload)
			if err != nil {
				l.logger.Warn("skipping undecodable song", "error", err, "songID", songID)
				return nil
			}
			mu.Lock()
			show.Songs[songID] = song
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	l.logger.Info("loaded setlist from backend", "setlistID", setlistID, "items", len(items), "songs", len(show.Songs))
	return show, nil
}
