package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/stats"
)

// mapCache is a minimal stats.CacheProvider for tests.
type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Set(key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *mapCache) Get(key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return stats.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func newTestClient(t *testing.T, handler http.Handler) (*NBAClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewNBAClient(server.URL, 5*time.Second, 3, newMapCache(), logger), server
}

func shotLocationsBody() string {
	payload := map[string]interface{}{
		"resource": "leaguedashteamshotlocations",
		"resultSets": map[string]interface{}{
			"name": "ShotLocations",
			"headers": []map[string]interface{}{
				{
					"name":          "SHOT_CATEGORY",
					"columnsToSkip": 2,
					"columnSpan":    3,
					"columnNames":   []string{"Restricted Area", "Mid-Range", "Above the Break 3"},
				},
				{
					"name":        "columns",
					"columnNames": []string{"TEAM_ID", "TEAM_NAME", "FGA", "FGM", "FG_PCT", "FGA", "FGM", "FG_PCT", "FGA", "FGM", "FG_PCT"},
				},
			},
			"rowSet": [][]interface{}{
				{1610612744, "Warriors", 100.0, 60.0, 0.6, 50.0, 20.0, 0.4, 80.0, 30.0, 0.375},
				{1610612745, "Rockets", 120.0, 66.0, 0.55, 30.0, 12.0, 0.4, 90.0, 32.0, 0.356},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func shotChartBody() string {
	payload := map[string]interface{}{
		"resource": "shotchartdetail",
		"resultSets": []map[string]interface{}{
			{
				"name":    "Shot_Chart_Detail",
				"headers": []string{"GRID_TYPE", "GAME_ID", "GAME_DATE", "LOC_X", "LOC_Y", "SHOT_MADE_FLAG", "SHOT_ZONE_BASIC"},
				"rowSet": [][]interface{}{
					{"Shot Chart Detail", "0021500001", "20151027", -12.0, 240.5, 1.0, "Above the Break 3"},
					{"Shot Chart Detail", "0021500001", "20151027", 3.0, 5.0, 0.0, "Restricted Area"},
					{"Shot Chart Detail", "0021500002", "20151028", 0.0, 800.0, 1.0, "Backcourt"},
					{"Shot Chart Detail", "0021500002", "20151028", 15.0, 90.0, 1.0, "Mid-Range"},
				},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func allPlayersBody() string {
	payload := map[string]interface{}{
		"resource": "commonallplayers",
		"resultSets": []map[string]interface{}{
			{
				"name":    "CommonAllPlayers",
				"headers": []string{"PERSON_ID", "DISPLAY_FIRST_LAST", "FROM_YEAR", "TO_YEAR"},
				"rowSet": [][]interface{}{
					{201939.0, "Stephen Curry", "2009", "2024"},
					{202691.0, "Klay Thompson", 2011.0, 2024.0},
					{2544.0, "LeBron James", "2003", "2024"},
				},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestLeagueZonesSumsTeams(t *testing.T) {
	var gotSeason, gotUA, gotReferer string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stats/leaguedashteamshotlocations", r.URL.Path)
		gotSeason = r.URL.Query().Get("Season")
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte(shotLocationsBody()))
	}))

	records, err := client.LeagueZones(context.Background(), "2015-16")
	require.NoError(t, err)

	assert.Equal(t, "2015-16", gotSeason)
	assert.Contains(t, gotUA, "Mozilla")
	assert.Equal(t, "https://www.nba.com/", gotReferer)

	require.Len(t, records, 3)
	assert.Equal(t, models.ZoneRecord{Season: "2015-16", Entity: "league", Zone: models.ZoneRestrictedArea, Attempted: 220, Made: 126}, records[0])
	assert.Equal(t, models.ZoneRecord{Season: "2015-16", Entity: "league", Zone: models.ZoneMidRange, Attempted: 80, Made: 32}, records[1])
	assert.Equal(t, models.ZoneRecord{Season: "2015-16", Entity: "league", Zone: models.ZoneAboveBreak3, Attempted: 170, Made: 62}, records[2])
}

func TestLeagueZonesMalformed(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resource":"leaguedashteamshotlocations","resultSets":{"name":"ShotLocations","headers":[],"rowSet":[]}}`))
	}))

	_, err := client.LeagueZones(context.Background(), "2015-16")
	assert.ErrorIs(t, err, stats.ErrMalformedResponse)
}

func TestLeagueZonesBadJSON(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>blocked</html>`))
	}))

	_, err := client.LeagueZones(context.Background(), "2015-16")
	assert.ErrorIs(t, err, stats.ErrMalformedResponse)
}

func TestPlayerShotsNormalizesRows(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stats/shotchartdetail", r.URL.Path)
		assert.Equal(t, "201939", r.URL.Query().Get("PlayerID"))
		assert.Equal(t, "2015-16", r.URL.Query().Get("SeasonNullable"))
		w.Write([]byte(shotChartBody()))
	}))

	player := stats.PlayerInfo{ID: 201939, Name: "Stephen Curry"}
	shots, err := client.PlayerShots(context.Background(), "2015-16", player)
	require.NoError(t, err)

	// The row at LOC_Y 800 is outside the half-court bounds and dropped;
	// shot indices keep their source ordinals.
	require.Len(t, shots, 3)
	assert.Equal(t, 0, shots[0].ShotIndex)
	assert.Equal(t, 1, shots[1].ShotIndex)
	assert.Equal(t, 3, shots[2].ShotIndex)

	assert.Equal(t, models.ShotRecord{
		Season: "2015-16", Entity: "Stephen Curry", GameDate: "20151027",
		ShotIndex: 0, LocX: -12, LocY: 240.5, Made: true, Zone: models.ZoneAboveBreak3,
	}, shots[0])
	assert.False(t, shots[1].Made)
}

func TestPlayerZonesAggregates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(shotChartBody()))
	}))

	player := stats.PlayerInfo{ID: 201939, Name: "Stephen Curry"}
	records, err := client.PlayerZones(context.Background(), "2015-16", player)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, models.ZoneRecord{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneRestrictedArea, Attempted: 1, Made: 0}, records[0])
	assert.Equal(t, models.ZoneRecord{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneMidRange, Attempted: 1, Made: 1}, records[1])
	assert.Equal(t, models.ZoneRecord{Season: "2015-16", Entity: "Stephen Curry", Zone: models.ZoneAboveBreak3, Attempted: 1, Made: 1}, records[2])
}

func TestHotCacheAvoidsRepeatRequests(t *testing.T) {
	var hits int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(shotChartBody()))
	}))

	player := stats.PlayerInfo{ID: 201939, Name: "Stephen Curry"}
	_, err := client.PlayerShots(context.Background(), "2015-16", player)
	require.NoError(t, err)
	_, err = client.PlayerZones(context.Background(), "2015-16", player)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits, "identical queries are served from the hot cache")
}

func TestResolvePlayer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stats/commonallplayers", r.URL.Path)
		w.Write([]byte(allPlayersBody()))
	}))

	player, err := client.ResolvePlayer(context.Background(), "stephen curry")
	require.NoError(t, err)
	assert.Equal(t, 201939, player.ID)
	assert.Equal(t, "Stephen Curry", player.Name)
	assert.Equal(t, 2009, player.FromYear)
	assert.Equal(t, 2024, player.ToYear)

	// Partial matches resolve to the alphabetically first candidate.
	player, err = client.ResolvePlayer(context.Background(), "thompson")
	require.NoError(t, err)
	assert.Equal(t, "Klay Thompson", player.Name)

	_, err = client.ResolvePlayer(context.Background(), "Nobody Real")
	assert.Error(t, err)
}

func TestUpstreamErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))

	_, err := client.LeagueZones(context.Background(), "2015-16")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
