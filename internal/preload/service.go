package preload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/encore/internal/domain"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Service downloads setlists into the offline cache.
type Service struct {
	remote      domain.Remote
	directory   domain.SetlistDirectory
	store       domain.Store
	concurrency int
	logger      *slog.Logger
}

// NewService creates a new preload service.
// directory may be nil when setlist editing is not needed.
func NewService(remote domain.Remote, directory domain.SetlistDirectory, store domain.Store, concurrency int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		remote:      remote,
		directory:   directory,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
	}
}

// PreloadForOffline fetches a setlist and every song it references into the cache.
//
// The setlist is written before any song. Songs are fetched concurrently and
// independently: one failure does not stop the others and successful writes
// are kept. When any song fails the returned error wraps domain.ErrPartialPreload
// and the report lists the failures.
func (s *Service) PreloadForOffline(ctx context.Context, setlistID string, onProgress domain.ProgressFunc) (domain.PreloadReport, error) {
	report := domain.PreloadReport{
		RunID:     uuid.NewString(),
		SetlistID: setlistID,
		Failed:    make(map[string]error),
	}
	logger := s.logger.With("runID", report.RunID, "setlistID", setlistID)

	payload, err := s.remote.FetchSetlist(ctx, setlistID)
	if err != nil {
		logger.Error("failed to fetch setlist", "error", err)
		return report, fmt.Errorf("fetch setlist %s: %w", setlistID, err)
	}
	rawItems, err := s.remote.FetchSetlistItems(ctx, setlistID)
	if err != nil {
		logger.Error("failed to fetch setlist items", "error", err)
		return report, fmt.Errorf("fetch setlist items %s: %w", setlistID, err)
	}
	items, err := domain.DecodeItems(rawItems)
	if err != nil {
		return report, err
	}

	if err := s.store.PreloadSetlist(setlistID, payload, rawItems); err != nil {
		logger.Error("failed to save setlist", "error", err)
		return report, fmt.Errorf("save setlist %s: %w", setlistID, err)
	}

	songIDs := domain.DistinctSongIDs(items)
	report.Songs = len(songIDs)

	var (
		mu     sync.Mutex
		loaded int
	)
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, songID := range songIDs {
		g.Go(func() error {
			err := s.cacheSong(ctx, songID)

			if err != nil {
				logger.Warn("failed to preload song", "error", err, "songID", songID)
			}

			// Progress is reported under the lock so counts arrive in order
			mu.Lock()
			defer mu.Unlock()
			loaded++
			if err != nil {
				report.Failed[songID] = err
			} else {
				report.Cached++
			}
			if onProgress != nil {
				onProgress(loaded, len(songIDs))
			}
			return nil // Best effort: never cancel sibling downloads
		})
	}
	g.Wait()

	logger.Info("preloaded setlist", "songs", report.Songs, "cached", report.Cached, "failed", len(report.Failed))

	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d songs failed: %w",
			domain.ErrPartialPreload, len(report.Failed), report.Songs, firstFailure(report.Failed))
	}
	return report, nil
}

// cacheSong fetches one song and writes it to the cache
func (s *Service) cacheSong(ctx context.Context, songID string) error {
	payload, err := s.remote.FetchSong(ctx, songID)
	if err != nil {
		return err
	}
	return s.store.PutSong(songID, payload, 1)
}

// RefreshCached re-downloads every setlist already in the cache.
// Failures are logged per setlist; the joined error reports all of them.
func (s *Service) RefreshCached(ctx context.Context) ([]domain.PreloadReport, error) {
	cached, err := s.store.ListSetlists()
	if err != nil {
		return nil, err
	}

	var (
		reports []domain.PreloadReport
		errs    []error
	)
	for _, c := range cached {
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		report, err := s.PreloadForOffline(ctx, c.ID, nil)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("refreshed cached setlists", "count", len(cached), "failed", len(errs))
	return reports, errors.Join(errs...)
}

// SetLocked locks or unlocks a setlist on the backend.
// The cached copy is updated only after the backend accepted the change.
func (s *Service) SetLocked(ctx context.Context, setlistID string, locked bool) error {
	if s.directory == nil {
		return fmt.Errorf("setlist editing is not available")
	}

	if err := s.directory.UpdateSetlist(ctx, setlistID, map[string]any{"locked": locked}); err != nil {
		s.logger.Error("failed to update setlist lock", "error", err, "setlistID", setlistID, "locked", locked)
		return err
	}

	rec, ok, err := s.store.SetlistRecord(setlistID)
	if err != nil || !ok {
		s.logger.Info("updated setlist lock", "setlistID", setlistID, "locked", locked)
		return nil
	}
	payload, err := s.remote.FetchSetlist(ctx, setlistID)
	if err != nil {
		s.logger.Warn("lock changed but cached setlist not refreshed", "error", err, "setlistID", setlistID)
		return nil
	}
	if err := s.store.PutSetlist(setlistID, payload, rec.Items, rec.Version); err != nil {
		s.logger.Warn("failed to save setlist", "error", err, "setlistID", setlistID)
	}
	s.logger.Info("updated setlist lock", "setlistID", setlistID, "locked", locked)
	return nil
}

// firstFailure returns the failure of the lowest song id so errors are stable
func firstFailure(failed map[string]error) error {
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Errorf("song %s: %w", ids[0], failed[ids[0]])
}
