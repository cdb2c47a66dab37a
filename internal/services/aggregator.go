package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/stats"
)

// ErrPlayerNotCached is returned when the cached table exists but holds no
// rows for the requested player.
var ErrPlayerNotCached = errors.New("player not in cache")

// Aggregator reshapes cached tables into the series the dashboard charts:
// per-season zone shares, shooting percentages, and 3-point trend lines.
type Aggregator struct {
	store  *CacheStore
	logger *logrus.Logger
}

func NewAggregator(store *CacheStore, logger *logrus.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// ZoneShare is one zone's slice of an entity's season: raw counts plus its
// share of the entity's total attempts that season.
type ZoneShare struct {
	Season    string  `json:"season"`
	Entity    string  `json:"entity"`
	Zone      string  `json:"zone"`
	Attempted int     `json:"attempted"`
	Made      int     `json:"made"`
	Share     float64 `json:"share"`
	FGPct     float64 `json:"fg_pct"`
}

// TrendPoint is one entity's 3-point attempt rate for a season.
type TrendPoint struct {
	Entity string  `json:"entity"`
	Season string  `json:"season"`
	Share  float64 `json:"share"`
}

// LeagueZoneShares returns the league-wide distribution table with
// per-season shares.
func (a *Aggregator) LeagueZoneShares() ([]ZoneShare, error) {
	records, err := a.store.LoadZones(models.KindLeagueZones)
	if err != nil {
		return nil, err
	}
	return zoneShares(records), nil
}

// PlayerZoneShares returns one player's distribution table with per-season
// shares. The name match is case-insensitive.
func (a *Aggregator) PlayerZoneShares(name string) ([]ZoneShare, error) {
	records, err := a.store.LoadZones(models.KindPlayerZones)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.ZoneRecord, 0, len(records))
	for _, rec := range records {
		if strings.EqualFold(rec.Entity, name) {
			filtered = append(filtered, rec)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no cached data for player %q: %w", name, ErrPlayerNotCached)
	}
	return zoneShares(filtered), nil
}

// TrackedPlayers lists the player entities present in the cached player
// zone table.
func (a *Aggregator) TrackedPlayers() ([]string, error) {
	status, err := a.store.Status(models.KindPlayerZones)
	if err != nil {
		return nil, err
	}
	return status.Entities, nil
}

// ThreePointTrend returns the 3-point attempt-rate series for the league
// plus the named players: the summed share of corner and above-the-break
// threes per season.
func (a *Aggregator) ThreePointTrend(players []string) ([]TrendPoint, error) {
	league, err := a.LeagueZoneShares()
	if err != nil {
		return nil, err
	}
	points := threePointSeries(league)

	if len(players) > 0 {
		records, err := a.store.LoadZones(models.KindPlayerZones)
		if err != nil {
			if !errors.Is(err, stats.ErrCacheMiss) {
				return nil, err
			}
			a.logger.Warn("Player zone table not cached, returning league trend only")
			return points, nil
		}
		for _, name := range players {
			filtered := make([]models.ZoneRecord, 0)
			for _, rec := range records {
				if strings.EqualFold(rec.Entity, name) {
					filtered = append(filtered, rec)
				}
			}
			if len(filtered) == 0 {
				a.logger.WithField("player", name).Warn("No cached data for trend series")
				continue
			}
			points = append(points, threePointSeries(zoneShares(filtered))...)
		}
	}
	return points, nil
}

// PlayerShots returns a player's cached shot-chart rows, optionally
// limited to one season.
func (a *Aggregator) PlayerShots(name, season string) ([]models.ShotRecord, error) {
	records, err := a.store.LoadShots(models.KindShotChart)
	if err != nil {
		return nil, err
	}
	shots := make([]models.ShotRecord, 0, len(records))
	for _, rec := range records {
		if !strings.EqualFold(rec.Entity, name) {
			continue
		}
		if season != "" && rec.Season != season {
			continue
		}
		shots = append(shots, rec)
	}
	if len(shots) == 0 {
		return nil, fmt.Errorf("no cached shots for player %q: %w", name, ErrPlayerNotCached)
	}
	return shots, nil
}

// zoneShares computes each row's share of its (season, entity) total
// attempts, plus shooting percentage, preserving season and zone order.
func zoneShares(records []models.ZoneRecord) []ZoneShare {
	totals := make(map[string]int)
	for _, rec := range records {
		totals[rec.Season+"|"+rec.Entity] += rec.Attempted
	}

	shares := make([]ZoneShare, 0, len(records))
	for _, rec := range records {
		share := ZoneShare{
			Season:    rec.Season,
			Entity:    rec.Entity,
			Zone:      rec.Zone,
			Attempted: rec.Attempted,
			Made:      rec.Made,
		}
		if total := totals[rec.Season+"|"+rec.Entity]; total > 0 {
			share.Share = float64(rec.Attempted) / float64(total)
		}
		if rec.Attempted > 0 {
			share.FGPct = float64(rec.Made) / float64(rec.Attempted)
		}
		shares = append(shares, share)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Season != shares[j].Season {
			return shares[i].Season < shares[j].Season
		}
		if shares[i].Entity != shares[j].Entity {
			return shares[i].Entity < shares[j].Entity
		}
		return zoneRank(shares[i].Zone) < zoneRank(shares[j].Zone)
	})
	return shares
}

func threePointSeries(shares []ZoneShare) []TrendPoint {
	sums := make(map[string]*TrendPoint)
	order := make([]string, 0)
	for _, share := range shares {
		if !isThreePointZone(share.Zone) {
			continue
		}
		key := share.Entity + "|" + share.Season
		point, ok := sums[key]
		if !ok {
			point = &TrendPoint{Entity: share.Entity, Season: share.Season}
			sums[key] = point
			order = append(order, key)
		}
		point.Share += share.Share
	}

	points := make([]TrendPoint, 0, len(order))
	for _, key := range order {
		points = append(points, *sums[key])
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Entity != points[j].Entity {
			return points[i].Entity < points[j].Entity
		}
		return points[i].Season < points[j].Season
	})
	return points
}

func isThreePointZone(zone string) bool {
	for _, z := range models.ThreePointZones {
		if z == zone {
			return true
		}
	}
	return false
}
