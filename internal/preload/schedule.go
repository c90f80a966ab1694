package preload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/encore/internal/domain"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 10 * time.Minute

// Scheduler refreshes every downloaded setlist on a cron schedule so the
// offline copies stay current between shows.
type Scheduler struct {
	svc    *Service
	conn   domain.Connectivity
	cron   *cron.Cron
	logger *slog.Logger

	// done receives one value per finished run; used by tests
	done chan struct{}
}

// NewScheduler creates a scheduler. Runs are skipped while conn reports offline.
func NewScheduler(svc *Service, conn domain.Connectivity, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		svc:  svc,
		conn: conn,
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

// Start registers the refresh job under spec ("@every 30m", "0 18 * * 5") and starts the clock
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.Info("sync scheduler started", "schedule", spec)
	return nil
}

// Stop stops the clock and waits for a running refresh to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.logger.Info("sync scheduler stopped")
}

func (s *Scheduler) refresh() {
	defer s.notify()

	if s.conn != nil && !s.conn.IsOnline() {
		s.logger.Info("skipping scheduled sync while offline")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	reports, err := s.svc.RefreshCached(ctx)
	if err != nil {
		s.logger.Warn("scheduled sync finished with errors", "error", err, "setlists", len(reports), "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled sync finished", "setlists", len(reports), "duration", time.Since(start))
}

func (s *Scheduler) notify() {
	if s.done == nil {
		return
	}
	select {
	case s.done <- struct{}{}:
	default:
	}
}
