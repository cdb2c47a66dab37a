package services

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/stats"
)

func newTestAggregator(t *testing.T) (*Aggregator, *CacheStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store, err := NewCacheStore(t.TempDir(), logger)
	require.NoError(t, err)
	return NewAggregator(store, logger), store
}

func seedLeague(t *testing.T, store *CacheStore) {
	t.Helper()
	_, err := store.SaveZones(models.KindLeagueZones, []models.ZoneRecord{
		{Season: "2015-16", Entity: "league", Zone: models.ZoneRestrictedArea, Attempted: 400, Made: 240},
		{Season: "2015-16", Entity: "league", Zone: models.ZoneMidRange, Attempted: 300, Made: 120},
		{Season: "2015-16", Entity: "league", Zone: models.ZoneLeftCorner3, Attempted: 100, Made: 38},
		{Season: "2015-16", Entity: "league", Zone: models.ZoneAboveBreak3, Attempted: 200, Made: 70},
		{Season: "2016-17", Entity: "league", Zone: models.ZoneRestrictedArea, Attempted: 350, Made: 210},
		{Season: "2016-17", Entity: "league", Zone: models.ZoneAboveBreak3, Attempted: 350, Made: 126},
	})
	require.NoError(t, err)
}

func TestLeagueZoneSharesSumToOne(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedLeague(t, store)

	shares, err := aggregator.LeagueZoneShares()
	require.NoError(t, err)
	require.Len(t, shares, 6)

	totals := make(map[string]float64)
	for _, s := range shares {
		totals[s.Season] += s.Share
	}
	for season, total := range totals {
		assert.InDelta(t, 1.0, total, 1e-9, "season %s shares must sum to 1", season)
	}
}

func TestLeagueZoneSharesValues(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedLeague(t, store)

	shares, err := aggregator.LeagueZoneShares()
	require.NoError(t, err)

	// 2015-16 total attempts: 1000.
	first := shares[0]
	assert.Equal(t, "2015-16", first.Season)
	assert.Equal(t, models.ZoneRestrictedArea, first.Zone)
	assert.InDelta(t, 0.4, first.Share, 1e-9)
	assert.InDelta(t, 0.6, first.FGPct, 1e-9)
}

func TestLeagueZoneSharesMissingCache(t *testing.T) {
	aggregator, _ := newTestAggregator(t)

	_, err := aggregator.LeagueZoneShares()
	assert.ErrorIs(t, err, stats.ErrCacheMiss)
}

func TestPlayerZoneSharesFiltersByName(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	_, err := store.SaveZones(models.KindPlayerZones, []models.ZoneRecord{
		{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneAboveBreak3, Attempted: 60, Made: 27},
		{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneMidRange, Attempted: 40, Made: 18},
		{Season: "2015-16", Entity: "James Harden", Zone: models.ZoneRestrictedArea, Attempted: 50, Made: 30},
	})
	require.NoError(t, err)

	shares, err := aggregator.PlayerZoneShares("stephen curry")
	require.NoError(t, err)
	require.Len(t, shares, 2)
	for _, s := range shares {
		assert.Equal(t, "Stephen Curry", s.Entity)
	}
	assert.InDelta(t, 0.6, shareFor(shares, models.ZoneAboveBreak3), 1e-9)

	_, err = aggregator.PlayerZoneShares("Nobody Real")
	assert.ErrorIs(t, err, ErrPlayerNotCached)
}

func TestThreePointTrend(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedLeague(t, store)
	_, err := store.SaveZones(models.KindPlayerZones, []models.ZoneRecord{
		{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneAboveBreak3, Attempted: 75, Made: 34},
		{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneMidRange, Attempted: 25, Made: 11},
	})
	require.NoError(t, err)

	points, err := aggregator.ThreePointTrend([]string{"Stephen Curry"})
	require.NoError(t, err)
	require.Len(t, points, 3)

	// League 2015-16: (100+200)/1000. League 2016-17: 350/700. Curry: 75/100.
	assert.InDelta(t, 0.3, trendFor(points, "league", "2015-16"), 1e-9)
	assert.InDelta(t, 0.5, trendFor(points, "league", "2016-17"), 1e-9)
	assert.InDelta(t, 0.75, trendFor(points, "Stephen Curry", "2015-16"), 1e-9)
}

func TestThreePointTrendCorruptPlayerTable(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedLeague(t, store)

	bad := "SEASON,ENTITY,SHOT_ZONE_BASIC,FGA,FGM\n2015-16,Stephen Curry,Mid-Range,abc,def\n"
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, models.KindPlayerZones.FileName()), []byte(bad), 0o644))

	_, err := aggregator.ThreePointTrend([]string{"Stephen Curry"})
	assert.Error(t, err, "an unreadable player table must not pass as partial data")
}

func TestThreePointTrendMissingPlayerSkipped(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	seedLeague(t, store)

	points, err := aggregator.ThreePointTrend([]string{"Nobody Real"})
	require.NoError(t, err)
	assert.Len(t, points, 2, "league series only")
}

func TestTrackedPlayers(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	_, err := store.SaveZones(models.KindPlayerZones, []models.ZoneRecord{
		{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneAboveBreak3, Attempted: 60, Made: 27},
		{Season: "2015-16", Entity: "James Harden", Zone: models.ZoneRestrictedArea, Attempted: 50, Made: 30},
	})
	require.NoError(t, err)

	players, err := aggregator.TrackedPlayers()
	require.NoError(t, err)
	assert.Equal(t, []string{"James Harden", "Stephen Curry"}, players)
}

func TestPlayerShotsFilters(t *testing.T) {
	aggregator, store := newTestAggregator(t)
	_, err := store.SaveShots(models.KindShotChart, []models.ShotRecord{
		{Season: "2015-16", Entity: "Stephen Curry", GameDate: "20151027", ShotIndex: 0, LocX: 1, LocY: 2, Made: true, Zone: models.ZoneRestrictedArea},
		{Season: "2015-16", Entity: "Stephen Curry", GameDate: "20151027", ShotIndex: 1, LocX: -100, LocY: 250, Made: false, Zone: models.ZoneAboveBreak3},
		{Season: "2016-17", Entity: "Stephen Curry", GameDate: "20161025", ShotIndex: 0, LocX: 0, LocY: 0, Made: true, Zone: models.ZoneRestrictedArea},
	})
	require.NoError(t, err)

	shots, err := aggregator.PlayerShots("Stephen Curry", "")
	require.NoError(t, err)
	assert.Len(t, shots, 3)

	shots, err = aggregator.PlayerShots("stephen curry", "2016-17")
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, "2016-17", shots[0].Season)

	_, err = aggregator.PlayerShots("Stephen Curry", "2019-20")
	assert.Error(t, err)
}

func shareFor(shares []ZoneShare, zone string) float64 {
	for _, s := range shares {
		if s.Zone == zone {
			return s.Share
		}
	}
	return math.NaN()
}

func trendFor(points []TrendPoint, entity, season string) float64 {
	for _, p := range points {
		if p.Entity == entity && p.Season == season {
			return p.Share
		}
	}
	return math.NaN()
}
