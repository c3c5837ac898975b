package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// SchedulerConfig carries the timing knobs for game and round advancement.
type SchedulerConfig struct {
	MinPlayers    int
	StartDelay    time.Duration
	RoundDuration time.Duration
	PollInterval  time.Duration
	InitialDelay  time.Duration
}

// Scheduler advances games and rounds whose due time has passed. It holds no
// state of its own: all scheduling lives in the store's delayed transition
// queue, so any number of schedulers can poll concurrently and a restart
// never loses a transition.
type Scheduler struct {
	store SchedulerStore
	cfg   SchedulerConfig
	log   *logrus.Entry
}

func NewScheduler(store SchedulerStore, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		store: store,
		cfg:   cfg,
		log:   logrus.WithField("component", "scheduler"),
	}
}

// Run polls on a fixed interval until ctx is cancelled. There is no backoff:
// fixed-interval polling bounds worst-case event latency to one poll period.
func (s *Scheduler) Run(ctx context.Context) {
	select {
	case <-time.After(s.cfg.InitialDelay):
	case <-ctx.Done():
		return
	}
	s.log.WithField("interval", s.cfg.PollInterval).Info("scheduler started")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one poll pass. Round transitions are processed before new game
// starts so round numbers stay gapless under concurrent load. Errors are
// logged and never abort the loop; a missed tick delays a game's progression
// by at most one poll interval.
func (s *Scheduler) Tick(ctx context.Context) {
	if err := s.store.AdvancePendingRounds(ctx, s.cfg.StartDelay, s.cfg.RoundDuration); err != nil {
		s.log.WithError(err).Error("advance pending rounds")
	}
	if err := s.store.StartPendingGames(ctx, s.cfg.StartDelay, s.cfg.MinPlayers); err != nil {
		s.log.WithError(err).Error("start pending games")
	}
}
