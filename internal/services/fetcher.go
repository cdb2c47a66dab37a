package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/stats"
)

// ErrFetchInProgress is returned when a refresh is requested while another
// run is still active.
var ErrFetchInProgress = errors.New("a fetch run is already in progress")

// FetchRequest describes one refresh run. Hard bypasses cache coverage and
// refetches every pair, then overwrites the tables.
type FetchRequest struct {
	Kinds   []models.RecordKind
	Seasons []string
	Players []string
	Hard    bool
}

// ProgressEvent is emitted after every processed (season, entity) pair.
type ProgressEvent struct {
	RunID     string `json:"run_id"`
	Kind      string `json:"kind"`
	Season    string `json:"season"`
	Entity    string `json:"entity"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Warning   string `json:"warning,omitempty"`
}

// RunStatus is a point-in-time snapshot of a fetch run.
type RunStatus struct {
	ID         string     `json:"id"`
	Hard       bool       `json:"hard"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Completed  int        `json:"completed"`
	Total      int        `json:"total"`
	Warnings   []string   `json:"warnings"`
	Done       bool       `json:"done"`
	Error      string     `json:"error,omitempty"`
}

type fetchRun struct {
	id        string
	hard      bool
	startedAt time.Time

	mu         sync.Mutex
	completed  int
	total      int
	warnings   []string
	done       bool
	err        string
	finishedAt time.Time
}

func (r *fetchRun) snapshot() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := RunStatus{
		ID:        r.id,
		Hard:      r.hard,
		StartedAt: r.startedAt,
		Completed: r.completed,
		Total:     r.total,
		Warnings:  append([]string(nil), r.warnings...),
		Done:      r.done,
		Error:     r.err,
	}
	if r.done {
		t := r.finishedAt
		status.FinishedAt = &t
	}
	return status
}

// fetchPair is one unit of work: a (season, entity) pair for a kind.
type fetchPair struct {
	kind   models.RecordKind
	season string
	entity string
}

// FetchService orchestrates refresh runs: it plans the (season, entity)
// pairs a request needs, walks them in fixed order through the pacer, and
// commits staged rows to the cache store. At most one run is active at a
// time; a failed pair is recorded and skipped, never fatal.
type FetchService struct {
	provider stats.Provider
	store    *CacheStore
	pacer    *Pacer
	logger   *logrus.Logger

	shotChartPlayers []string
	onProgress       func(ProgressEvent)

	mu     sync.Mutex
	active *fetchRun
	runs   map[string]*fetchRun
}

// NewFetchService creates a fetch orchestrator. shotChartPlayers limits
// the per-shot table to the players whose raw charts the dashboard renders.
func NewFetchService(provider stats.Provider, store *CacheStore, pacer *Pacer, logger *logrus.Logger, shotChartPlayers []string) *FetchService {
	return &FetchService{
		provider:         provider,
		store:            store,
		pacer:            pacer,
		logger:           logger,
		shotChartPlayers: shotChartPlayers,
		runs:             make(map[string]*fetchRun),
	}
}

// SetProgressFunc installs an observer for per-pair progress events.
func (s *FetchService) SetProgressFunc(fn func(ProgressEvent)) {
	s.onProgress = fn
}

// Start launches a refresh in the background and returns its initial
// status. It fails with ErrFetchInProgress when a run is already active.
func (s *FetchService) Start(req FetchRequest) (RunStatus, error) {
	run, err := s.begin(req)
	if err != nil {
		return RunStatus{}, err
	}
	go func() {
		defer s.finish(run)
		if err := s.execute(context.Background(), run, req); err != nil {
			run.mu.Lock()
			run.err = err.Error()
			run.mu.Unlock()
		}
	}()
	return run.snapshot(), nil
}

// Run executes a refresh synchronously and returns its final status.
func (s *FetchService) Run(ctx context.Context, req FetchRequest) (RunStatus, error) {
	run, err := s.begin(req)
	if err != nil {
		return RunStatus{}, err
	}
	execErr := s.execute(ctx, run, req)
	if execErr != nil {
		run.mu.Lock()
		run.err = execErr.Error()
		run.mu.Unlock()
	}
	s.finish(run)
	return run.snapshot(), execErr
}

// RunStatus returns the status of a run by ID.
func (s *FetchService) RunStatus(id string) (RunStatus, bool) {
	s.mu.Lock()
	run, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		return RunStatus{}, false
	}
	return run.snapshot(), true
}

// ActiveRun returns the currently running fetch, if any.
func (s *FetchService) ActiveRun() (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return RunStatus{}, false
	}
	return s.active.snapshot(), true
}

func (s *FetchService) begin(req FetchRequest) (*fetchRun, error) {
	if len(req.Kinds) == 0 || len(req.Seasons) == 0 {
		return nil, fmt.Errorf("refresh needs at least one kind and one season")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrFetchInProgress
	}
	run := &fetchRun{
		id:        uuid.New().String(),
		hard:      req.Hard,
		startedAt: time.Now().UTC(),
	}
	s.active = run
	s.runs[run.id] = run
	return run, nil
}

func (s *FetchService) finish(run *fetchRun) {
	run.mu.Lock()
	run.done = true
	run.finishedAt = time.Now().UTC()
	run.mu.Unlock()

	s.mu.Lock()
	if s.active == run {
		s.active = nil
	}
	s.mu.Unlock()
}

// execute plans and walks the run. Kinds commit independently: a commit
// happens only after every pair of that kind has been attempted, so an
// interrupted run never leaves a partially merged table behind.
func (s *FetchService) execute(ctx context.Context, run *fetchRun, req FetchRequest) error {
	plan, err := s.plan(req)
	if err != nil {
		return err
	}

	total := 0
	for _, pairs := range plan {
		total += len(pairs)
	}
	run.mu.Lock()
	run.total = total
	run.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"run_id": run.id,
		"pairs":  total,
		"hard":   req.Hard,
	}).Info("Starting fetch run")

	if total == 0 {
		return nil
	}

	// Player IDs are resolved lazily, once per run, and only when some
	// pair actually needs the network.
	playerIDs := make(map[string]stats.PlayerInfo)

	for _, kind := range req.Kinds {
		pairs := plan[kind]
		if len(pairs) == 0 {
			continue
		}

		var zoneStaging []models.ZoneRecord
		var shotStaging []models.ShotRecord

		for _, pair := range pairs {
			if err := ctx.Err(); err != nil {
				return err
			}

			warning := ""
			if kind == models.KindLeagueZones {
				if err := s.pacer.Wait(ctx); err != nil {
					return err
				}
				rows, err := s.provider.LeagueZones(ctx, pair.season)
				if err != nil {
					warning = fmt.Sprintf("league %s: %v", pair.season, err)
				} else {
					zoneStaging = append(zoneStaging, rows...)
				}
				s.advance(run, pair, warning)
				continue
			}

			player, err := s.resolve(ctx, playerIDs, pair.entity)
			if err != nil {
				s.advance(run, pair, fmt.Sprintf("%s: %v", pair.entity, err))
				continue
			}
			// Seasons before the player's debut have no data to fetch.
			if beforeDebut(pair.season, player) {
				s.advance(run, pair, "")
				continue
			}
			if err := s.pacer.Wait(ctx); err != nil {
				return err
			}
			if kind.IsZoneKind() {
				rows, err := s.provider.PlayerZones(ctx, pair.season, player)
				if err != nil {
					warning = fmt.Sprintf("%s %s: %v", pair.entity, pair.season, err)
				} else {
					zoneStaging = append(zoneStaging, rows...)
				}
			} else {
				rows, err := s.provider.PlayerShots(ctx, pair.season, player)
				if err != nil {
					warning = fmt.Sprintf("%s %s: %v", pair.entity, pair.season, err)
				} else {
					shotStaging = append(shotStaging, rows...)
				}
			}
			s.advance(run, pair, warning)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.commit(kind, req.Hard, zoneStaging, shotStaging); err != nil {
			return err
		}
	}

	return nil
}

// plan expands the request into per-kind (season, entity) pairs in fixed
// order: seasons ascending, entities in configured order. Without the hard
// flag, pairs the cache already covers are skipped.
func (s *FetchService) plan(req FetchRequest) (map[models.RecordKind][]fetchPair, error) {
	plan := make(map[models.RecordKind][]fetchPair, len(req.Kinds))

	for _, kind := range req.Kinds {
		var entities []string
		switch kind {
		case models.KindLeagueZones:
			entities = []string{models.EntityLeague}
		case models.KindPlayerZones:
			entities = req.Players
		case models.KindShotChart:
			entities = s.shotChartPlayers
		default:
			return nil, fmt.Errorf("unknown record kind %q", kind)
		}

		var covered CacheStatus
		if !req.Hard {
			status, err := s.store.Status(kind)
			if err != nil {
				return nil, fmt.Errorf("cache status %s: %w", kind, err)
			}
			covered = status
		}

		pairs := make([]fetchPair, 0, len(req.Seasons)*len(entities))
		for _, season := range req.Seasons {
			for _, entity := range entities {
				if !req.Hard && covered.Covers(season, entity) {
					continue
				}
				pairs = append(pairs, fetchPair{kind: kind, season: season, entity: entity})
			}
		}
		plan[kind] = pairs
	}

	return plan, nil
}

func beforeDebut(season string, player stats.PlayerInfo) bool {
	year, err := models.SeasonStartYear(season)
	return err == nil && player.FromYear > 0 && year < player.FromYear
}

func (s *FetchService) resolve(ctx context.Context, cache map[string]stats.PlayerInfo, name string) (stats.PlayerInfo, error) {
	if player, ok := cache[name]; ok {
		return player, nil
	}
	player, err := s.provider.ResolvePlayer(ctx, name)
	if err != nil {
		return stats.PlayerInfo{}, err
	}
	cache[name] = player
	return player, nil
}

func (s *FetchService) advance(run *fetchRun, pair fetchPair, warning string) {
	run.mu.Lock()
	run.completed++
	if warning != "" {
		run.warnings = append(run.warnings, warning)
	}
	completed, total := run.completed, run.total
	run.mu.Unlock()

	entry := s.logger.WithFields(logrus.Fields{
		"run_id":    run.id,
		"kind":      pair.kind,
		"season":    pair.season,
		"entity":    pair.entity,
		"completed": completed,
		"total":     total,
	})
	if warning != "" {
		entry.WithField("warning", warning).Warn("Fetch pair skipped")
	} else {
		entry.Debug("Fetch pair completed")
	}

	if s.onProgress != nil {
		s.onProgress(ProgressEvent{
			RunID:     run.id,
			Kind:      string(pair.kind),
			Season:    pair.season,
			Entity:    pair.entity,
			Completed: completed,
			Total:     total,
			Warning:   warning,
		})
	}
}

// commit persists one kind's staging table. A write failure is fatal for
// the refresh attempt; the previous table survives because writes are
// atomic.
func (s *FetchService) commit(kind models.RecordKind, hard bool, zones []models.ZoneRecord, shots []models.ShotRecord) error {
	var rows int
	var err error
	switch {
	case kind.IsZoneKind() && hard:
		rows, err = s.store.SaveZones(kind, zones)
	case kind.IsZoneKind():
		if len(zones) == 0 {
			return nil
		}
		rows, err = s.store.MergeAndSaveZones(kind, zones)
	case hard:
		rows, err = s.store.SaveShots(kind, shots)
	default:
		if len(shots) == 0 {
			return nil
		}
		rows, err = s.store.MergeAndSaveShots(kind, shots)
	}
	if err != nil {
		return fmt.Errorf("persist %s: %w", kind, err)
	}
	s.logger.WithFields(logrus.Fields{
		"kind": kind,
		"rows": rows,
	}).Info("Cache table updated")
	return nil
}
