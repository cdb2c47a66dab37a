package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/stats"
)

// NBAClient implements the stats.Provider interface against stats.nba.com.
// Outbound calls go through a token-bucket rate floor and a circuit
// breaker; identical queries within a process lifetime are served from the
// hot cache.
type NBAClient struct {
	httpClient  *http.Client
	baseURL     string
	cache       stats.CacheProvider
	logger      *logrus.Logger
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

// NewNBAClient creates a stats.nba.com client.
func NewNBAClient(baseURL string, timeout time.Duration, breakerThreshold int, cache stats.CacheProvider, logger *logrus.Logger) *NBAClient {
	settings := gobreaker.Settings{
		Name:        "stats-nba",
		MaxRequests: uint32(breakerThreshold),
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &NBAClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		cache:       cache,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Every(600*time.Millisecond), 1),
		breaker:     gobreaker.NewCircuitBreaker(settings),
	}
}

// LeagueZones fetches the league-wide per-zone shot distribution for a
// season, summed across all teams.
func (c *NBAClient) LeagueZones(ctx context.Context, season string) ([]models.ZoneRecord, error) {
	params := url.Values{}
	params.Set("Season", season)
	params.Set("SeasonType", "Regular Season")
	params.Set("DistanceRange", "By Zone")
	params.Set("MeasureType", "Base")
	params.Set("PerMode", "Totals")
	params.Set("LeagueID", "00")

	var resp shotLocationsResponse
	if err := c.get(ctx, "/stats/leaguedashteamshotlocations", params, &resp); err != nil {
		return nil, err
	}

	rs := resp.ResultSets
	if len(rs.Headers) < 2 || len(rs.RowSet) == 0 {
		return nil, fmt.Errorf("leaguedashteamshotlocations %s: %w", season, stats.ErrMalformedResponse)
	}

	// Header level 0 names the zones; level 1 holds the leading team
	// columns followed by an (FGA, FGM, FG_PCT) triplet per zone.
	zones := rs.Headers[0].ColumnNames
	lead := rs.Headers[0].ColumnsToSkip
	if lead == 0 {
		lead = 2 // TEAM_ID, TEAM_NAME
	}

	totals := make(map[string]*models.ZoneRecord, len(zones))
	for _, row := range rs.RowSet {
		for i, zone := range zones {
			if !models.IsValidZone(zone) {
				continue
			}
			fga, okA := cellFloat(row, lead+i*3)
			fgm, okM := cellFloat(row, lead+i*3+1)
			if !okA || fga < 0 {
				continue
			}
			rec, ok := totals[zone]
			if !ok {
				rec = &models.ZoneRecord{Season: season, Entity: models.EntityLeague, Zone: zone}
				totals[zone] = rec
			}
			rec.Attempted += int(fga)
			if okM && fgm >= 0 {
				rec.Made += int(fgm)
			}
		}
	}

	records := make([]models.ZoneRecord, 0, len(totals))
	for _, zone := range models.ZoneOrder {
		if rec, ok := totals[zone]; ok {
			records = append(records, *rec)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("leaguedashteamshotlocations %s: no zone columns: %w", season, stats.ErrMalformedResponse)
	}
	return records, nil
}

// PlayerShots fetches every shot attempt for a player in a season.
func (c *NBAClient) PlayerShots(ctx context.Context, season string, player stats.PlayerInfo) ([]models.ShotRecord, error) {
	params := url.Values{}
	params.Set("PlayerID", fmt.Sprintf("%d", player.ID))
	params.Set("TeamID", "0")
	params.Set("SeasonNullable", season)
	params.Set("SeasonType", "Regular Season")
	params.Set("ContextMeasure", "FGA")
	params.Set("LeagueID", "00")

	var resp statsResponse
	if err := c.get(ctx, "/stats/shotchartdetail", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.ResultSets) == 0 {
		return nil, fmt.Errorf("shotchartdetail %s %s: %w", player.Name, season, stats.ErrMalformedResponse)
	}

	rs := resp.ResultSets[0]
	iDate := rs.columnIndex("GAME_DATE")
	iX := rs.columnIndex("LOC_X")
	iY := rs.columnIndex("LOC_Y")
	iMade := rs.columnIndex("SHOT_MADE_FLAG")
	iZone := rs.columnIndex("SHOT_ZONE_BASIC")
	if iX < 0 || iY < 0 || iMade < 0 || iZone < 0 {
		return nil, fmt.Errorf("shotchartdetail %s %s: missing columns: %w", player.Name, season, stats.ErrMalformedResponse)
	}

	records := make([]models.ShotRecord, 0, len(rs.RowSet))
	for i, row := range rs.RowSet {
		x, okX := cellFloat(row, iX)
		y, okY := cellFloat(row, iY)
		made, okM := cellInt(row, iMade)
		zone := cellString(row, iZone)
		if !okX || !okY || !okM || !models.IsValidZone(zone) {
			c.logger.WithFields(logrus.Fields{
				"player": player.Name,
				"season": season,
				"row":    i,
			}).Debug("Skipping unparseable shot row")
			continue
		}
		if !models.InCourtBounds(x, y) {
			continue
		}
		records = append(records, models.ShotRecord{
			Season:    season,
			Entity:    player.Name,
			GameDate:  cellString(row, iDate),
			ShotIndex: i,
			LocX:      x,
			LocY:      y,
			Made:      made == 1,
			Zone:      zone,
		})
	}
	return records, nil
}

// PlayerZones fetches a player's per-zone shooting splits for a season,
// aggregated from the shot chart. Repeated calls for the same pair hit the
// hot cache rather than the network.
func (c *NBAClient) PlayerZones(ctx context.Context, season string, player stats.PlayerInfo) ([]models.ZoneRecord, error) {
	shots, err := c.PlayerShots(ctx, season, player)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*models.ZoneRecord)
	for _, shot := range shots {
		rec, ok := totals[shot.Zone]
		if !ok {
			rec = &models.ZoneRecord{Season: season, Entity: player.Name, Zone: shot.Zone}
			totals[shot.Zone] = rec
		}
		rec.Attempted++
		if shot.Made {
			rec.Made++
		}
	}

	records := make([]models.ZoneRecord, 0, len(totals))
	for _, zone := range models.ZoneOrder {
		if rec, ok := totals[zone]; ok {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// ResolvePlayer looks a player up in the static directory by full or
// partial name, case-insensitively. The directory is fetched once and
// served from the hot cache afterwards.
func (c *NBAClient) ResolvePlayer(ctx context.Context, name string) (stats.PlayerInfo, error) {
	players, err := c.allPlayers(ctx)
	if err != nil {
		return stats.PlayerInfo{}, err
	}

	needle := strings.ToLower(name)
	matches := make([]stats.PlayerInfo, 0, 1)
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return stats.PlayerInfo{}, fmt.Errorf("player %q not found", name)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return matches[0], nil
}

func (c *NBAClient) allPlayers(ctx context.Context) ([]stats.PlayerInfo, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("Season", models.SeasonString(time.Now().Year()-1))
	params.Set("IsOnlyCurrentSeason", "0")

	var resp statsResponse
	if err := c.get(ctx, "/stats/commonallplayers", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.ResultSets) == 0 {
		return nil, fmt.Errorf("commonallplayers: %w", stats.ErrMalformedResponse)
	}

	rs := resp.ResultSets[0]
	iID := rs.columnIndex("PERSON_ID")
	iName := rs.columnIndex("DISPLAY_FIRST_LAST")
	iFrom := rs.columnIndex("FROM_YEAR")
	iTo := rs.columnIndex("TO_YEAR")
	if iID < 0 || iName < 0 {
		return nil, fmt.Errorf("commonallplayers: missing columns: %w", stats.ErrMalformedResponse)
	}

	players := make([]stats.PlayerInfo, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		id, ok := cellInt(row, iID)
		if !ok {
			continue
		}
		p := stats.PlayerInfo{ID: id, Name: cellString(row, iName)}
		p.FromYear = cellYear(row, iFrom)
		p.ToYear = cellYear(row, iTo)
		players = append(players, p)
	}
	return players, nil
}

// get performs a rate-limited, breaker-guarded GET against a stats
// endpoint, decoding the JSON body into target. Responses are cached by
// full URL.
func (c *NBAClient) get(ctx context.Context, path string, params url.Values, target interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	cacheKey := "nba:" + u
	var body []byte
	if err := c.cache.Get(cacheKey, &body); err == nil {
		return c.decode(path, body, target)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, u)
	})
	if err != nil {
		return fmt.Errorf("stats request %s: %w", path, err)
	}
	body = result.([]byte)

	if err := c.decode(path, body, target); err != nil {
		return err
	}
	if err := c.cache.Set(cacheKey, body, 6*time.Hour); err != nil {
		c.logger.Warnf("Failed to cache stats response for %s: %v", path, err)
	}
	return nil
}

func (c *NBAClient) doRequest(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// stats.nba.com rejects requests without browser-shaped headers.
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func (c *NBAClient) decode(path string, body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode %s: %v: %w", path, err, stats.ErrMalformedResponse)
	}
	return nil
}

// cellYear reads a year that the directory endpoint reports as either a
// string or a number.
func cellYear(row []interface{}, idx int) int {
	if y, ok := cellInt(row, idx); ok {
		return y
	}
	year, err := strconv.Atoi(cellString(row, idx))
	if err != nil {
		return 0
	}
	return year
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
