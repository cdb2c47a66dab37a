package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/courtsight/shot-evolution/internal/models"
)

// Scheduler triggers periodic incremental refreshes so newly completed
// seasons show up without a manual refresh.
type Scheduler struct {
	fetcher  *FetchService
	logger   *logrus.Logger
	cron     *cron.Cron
	schedule string
	seasons  []string
	players  []string

	mu        sync.Mutex
	isRunning bool
}

func NewScheduler(fetcher *FetchService, schedule string, seasons, players []string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		fetcher:  fetcher,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
		seasons:  seasons,
		players:  players,
	}
}

// Start begins the scheduled refreshes.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.cron.AddFunc(s.schedule, s.refresh)
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("schedule", s.schedule).Info("Refresh scheduler started")
	return nil
}

// Stop halts the scheduled refreshes, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.logger.Info("Refresh scheduler stopped")
}

func (s *Scheduler) refresh() {
	s.logger.Info("Starting scheduled incremental refresh")
	status, err := s.fetcher.Start(FetchRequest{
		Kinds:   models.AllKinds,
		Seasons: s.seasons,
		Players: s.players,
	})
	if err != nil {
		if errors.Is(err, ErrFetchInProgress) {
			s.logger.Warn("Skipping scheduled refresh: a run is already active")
			return
		}
		s.logger.Errorf("Scheduled refresh failed to start: %v", err)
		return
	}
	s.logger.WithField("run_id", status.ID).Info("Scheduled refresh started")
}
