package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/reservation"
)

// ReleasableLister finds bookings whose hold should be released.
type ReleasableLister interface {
	ListReleasable(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
}

// SweeperConfig contains configuration for the sweeper
type SweeperConfig struct {
	// Interval between scans
	Interval time.Duration
	// BatchSize is the number of bookings processed per scan
	BatchSize int
	// Clock defaults to time.Now
	Clock func() time.Time
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: time.Minute, BatchSize: 100}
}

// SweeperStats is a snapshot of sweeper activity.
type SweeperStats struct {
	Running        bool      `json:"running"`
	TotalReleased  int64     `json:"total_released"`
	TotalFailed    int64     `json:"total_failed"`
	LastScanTime   time.Time `json:"last_scan_time"`
	LastFoundCount int       `json:"last_found_count"`
}

// Sweeper periodically releases expired holds straight from the bookings
// table.  It covers holds whose delayed message was never published or
// delivered, and releases interrupted midway.
type Sweeper struct {
	lister   ReleasableLister
	releaser Releaser
	cfg      SweeperConfig
	log      *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	stats   SweeperStats
}

// NewSweeper creates a sweeper.  Zero config fields take their defaults.
func NewSweeper(lister ReleasableLister, releaser Releaser, cfg SweeperConfig, log *zap.Logger) *Sweeper {
	def := DefaultSweeperConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Sweeper{lister: lister, releaser: releaser, cfg: cfg, log: log.Named("sweeper")}
}

// Start runs a scan immediately and then every Interval until Stop or ctx
// cancellation.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("sweeper already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)
	s.log.Info("sweeper started", zap.Duration("interval", s.cfg.Interval), zap.Int("batch", s.cfg.BatchSize))
	return nil
}

// Stop stops the loop and waits for an in-flight scan to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one scan and returns how many holds it released.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	now := s.cfg.Clock()
	due, err := s.lister.ListReleasable(ctx, now, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("list releasable bookings failed", zap.Error(err))
		return 0
	}

	released, failed := 0, 0
	for _, b := range due {
		if ctx.Err() != nil {
			break
		}
		out, err := s.releaser.ReleaseExpired(ctx, b.ID)
		if err != nil {
			failed++
			s.log.Warn("release failed", zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		if out == reservation.Released {
			released++
		}
	}

	s.mu.Lock()
	s.stats.LastScanTime = now
	s.stats.LastFoundCount = len(due)
	s.stats.TotalReleased += int64(released)
	s.stats.TotalFailed += int64(failed)
	s.mu.Unlock()

	if len(due) > 0 {
		s.log.Info("sweep finished", zap.Int("found", len(due)), zap.Int("released", released), zap.Int("failed", failed))
	}
	return released
}

// Stats returns a snapshot of sweeper activity.
func (s *Sweeper) Stats() SweeperStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Running = s.running
	return st
}
