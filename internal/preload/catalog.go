package preload

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/mmcdole/encore/internal/domain"
)

// Entry is one row of the setlist picker
type Entry struct {
	Setlist  *domain.Setlist
	Cached   bool      // Available offline
	CachedAt time.Time // Zero unless Cached
}

// Setlists lists setlists for the picker.
// Online it asks the backend and flags which ones are available offline;
// offline, or when the backend is unreachable, it lists the cache alone.
func (s *Service) Setlists(ctx context.Context, online bool) ([]Entry, bool, error) {
	cached, err := s.cachedSetlists()
	if err != nil {
		return nil, false, err
	}

	if !online || s.directory == nil {
		return cachedEntries(cached), true, nil
	}

	rows, err := s.directory.FetchSetlists(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNetwork) {
			s.logger.Warn("listing cached setlists, backend unreachable", "error", err)
			return cachedEntries(cached), true, nil
		}
		return nil, false, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		setlist, err := domain.DecodeSetlist(row)
		if err != nil {
			s.logger.Warn("skipping undecodable setlist", "error", err)
			continue
		}
		e := Entry{Setlist: setlist}
		if rec, ok := cached[setlist.ID]; ok {
			e.Cached = true
			e.CachedAt = rec.CachedAt
		}
		entries = append(entries, e)
	}
	return entries, false, nil
}

func (s *Service) cachedSetlists() (map[string]*domain.CachedSetlist, error) {
	recs, err := s.store.ListSetlists()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.CachedSetlist, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	return byID, nil
}

func cachedEntries(cached map[string]*domain.CachedSetlist) []Entry {
	entries := make([]Entry, 0, len(cached))
	for id, rec := range cached {
		setlist, err := domain.DecodeSetlist(rec.Payload)
		if err != nil {
			setlist = &domain.Setlist{ID: id}
		}
		if setlist.ID == "" {
			setlist.ID = id
		}
		entries = append(entries, Entry{Setlist: setlist, Cached: true, CachedAt: rec.CachedAt})
	}
	sortEntries(entries)
	return entries
}

// sortEntries orders by show date, then title
func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Setlist.ShowDate, b.Setlist.ShowDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Setlist.Title, b.Setlist.Title)
	})
}
