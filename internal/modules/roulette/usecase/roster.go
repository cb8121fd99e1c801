package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/registry"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// TaskRunner queues a task without blocking.
type TaskRunner interface {
	TrySubmit(task func()) bool
}

// RosterSnapshotter writes every player's balance to the roster store on a
// cron schedule and whenever Trigger is called. At most one write runs at a
// time; a trigger during a write is coalesced into it.
type RosterSnapshotter struct {
	registry *registry.Registry
	repo     domain.RosterRepository
	pool     TaskRunner
	timeout  time.Duration

	cron    *cron.Cron
	running atomic.Bool
	pending atomic.Bool
}

// NewRosterSnapshotter creates a snapshotter. schedule uses the
// six-field cron syntax with seconds, e.g. "*/30 * * * * *".
func NewRosterSnapshotter(reg *registry.Registry, repo domain.RosterRepository, pool TaskRunner, schedule string) (*RosterSnapshotter, error) {
	s := &RosterSnapshotter{
		registry: reg,
		repo:     repo,
		pool:     pool,
		timeout:  10 * time.Second,
		cron:     cron.New(cron.WithSeconds()),
	}
	if schedule != "" {
		if _, err := s.cron.AddFunc(schedule, s.Trigger); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// LoadRoster fills the registry from the store.
func LoadRoster(ctx context.Context, reg *registry.Registry, repo domain.RosterRepository) (int, error) {
	records, err := repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	n, err := reg.Load(records)
	if err != nil {
		return n, err
	}
	logger.Info(ctx).Int("players", n).Msg("roster loaded")
	return n, nil
}

// Start starts the schedule
func (s *RosterSnapshotter) Start() {
	s.cron.Start()
}

// Stop stops the schedule and writes a final snapshot synchronously.
func (s *RosterSnapshotter) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	return s.Save(ctx)
}

// Trigger schedules a snapshot on the worker pool.
// pending is raised before the running check so that a write finishing
// concurrently either sees it or has not yet started its save.
func (s *RosterSnapshotter) Trigger() {
	s.pending.Store(true)
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	if !s.pool.TrySubmit(s.run) {
		s.running.Store(false)
		logger.WarnGlobal().Msg("worker pool busy, roster snapshot skipped")
	}
}

func (s *RosterSnapshotter) run() {
	for {
		s.pending.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.Save(ctx); err != nil {
			logger.Error(ctx).Err(err).Msg("roster snapshot failed")
		}
		cancel()

		s.running.Store(false)
		if !s.pending.Load() || !s.running.CompareAndSwap(false, true) {
			return
		}
		// a trigger arrived while saving; this goroutine owns the next write
	}
}

// Save writes the current roster.
func (s *RosterSnapshotter) Save(ctx context.Context) error {
	records := s.registry.Records()
	start := time.Now()
	if err := s.repo.Save(ctx, records); err != nil {
		return err
	}
	logger.Debug(ctx).
		Int("players", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("roster snapshot saved")
	return nil
}
