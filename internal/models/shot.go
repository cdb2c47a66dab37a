package models

import "fmt"

// EntityLeague is the entity identifier for league-wide aggregate rows.
const EntityLeague = "league"

// Shot zones as reported by stats.nba.com (SHOT_ZONE_BASIC).
const (
	ZoneRestrictedArea = "Restricted Area"
	ZonePaintNonRA     = "In The Paint (Non-RA)"
	ZoneMidRange       = "Mid-Range"
	ZoneLeftCorner3    = "Left Corner 3"
	ZoneRightCorner3   = "Right Corner 3"
	ZoneAboveBreak3    = "Above the Break 3"
	ZoneBackcourt      = "Backcourt"
)

// ZoneOrder is the canonical display order for shot zones.
var ZoneOrder = []string{
	ZoneRestrictedArea,
	ZonePaintNonRA,
	ZoneMidRange,
	ZoneLeftCorner3,
	ZoneRightCorner3,
	ZoneAboveBreak3,
	ZoneBackcourt,
}

// ThreePointZones are the zones that count toward 3-point attempt rate.
var ThreePointZones = []string{ZoneLeftCorner3, ZoneRightCorner3, ZoneAboveBreak3}

// IsValidZone reports whether z is one of the known shot zones.
func IsValidZone(z string) bool {
	for _, zone := range ZoneOrder {
		if zone == z {
			return true
		}
	}
	return false
}

// Half-court bounds in tenths of a foot, matching stats.nba.com LOC_X/LOC_Y.
// X spans the court width, Y runs from behind the baseline to half court.
const (
	CourtXMin = -250.0
	CourtXMax = 250.0
	CourtYMin = -52.5
	CourtYMax = 417.5
)

// InCourtBounds reports whether a shot location falls inside the half-court
// rendering bounds.
func InCourtBounds(x, y float64) bool {
	return x >= CourtXMin && x <= CourtXMax && y >= CourtYMin && y <= CourtYMax
}

// ZoneRecord is one row of a shot-distribution table: attempts and makes
// for a (season, entity, zone) triple. Entity is either EntityLeague or a
// player name.
type ZoneRecord struct {
	Season    string `json:"season"`
	Entity    string `json:"entity"`
	Zone      string `json:"zone"`
	Attempted int    `json:"attempted"`
	Made      int    `json:"made"`
}

// Key returns the natural key of the record within a cache table.
func (r ZoneRecord) Key() string {
	return r.Season + "|" + r.Entity + "|" + r.Zone
}

// ShotRecord is one individual shot attempt for a tracked player.
// ShotIndex is the ordinal of the shot within the entity's season as
// returned by the stats API, which is stable across refetches.
type ShotRecord struct {
	Season    string  `json:"season"`
	Entity    string  `json:"entity"`
	GameDate  string  `json:"game_date"`
	ShotIndex int     `json:"shot_index"`
	LocX      float64 `json:"loc_x"`
	LocY      float64 `json:"loc_y"`
	Made      bool    `json:"made"`
	Zone      string  `json:"zone"`
}

// Key returns the natural key of the record within a cache table.
func (r ShotRecord) Key() string {
	return fmt.Sprintf("%s|%s|%d", r.Season, r.Entity, r.ShotIndex)
}
