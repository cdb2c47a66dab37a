package models

import "fmt"

// RecordKind identifies one cached table.
type RecordKind string

const (
	KindLeagueZones RecordKind = "league_zones"
	KindPlayerZones RecordKind = "player_zones"
	KindShotChart   RecordKind = "shotchart"
)

// AllKinds lists every cached record kind.
var AllKinds = []RecordKind{KindLeagueZones, KindPlayerZones, KindShotChart}

// ParseRecordKind validates a kind received from the API or CLI.
func ParseRecordKind(s string) (RecordKind, error) {
	switch RecordKind(s) {
	case KindLeagueZones, KindPlayerZones, KindShotChart:
		return RecordKind(s), nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// IsZoneKind reports whether the kind holds ZoneRecord rows rather than
// ShotRecord rows.
func (k RecordKind) IsZoneKind() bool {
	return k == KindLeagueZones || k == KindPlayerZones
}

// FileName returns the cache file name for the kind.
func (k RecordKind) FileName() string {
	switch k {
	case KindLeagueZones:
		return "league_shot_zones.csv"
	case KindPlayerZones:
		return "player_shot_zones.csv"
	case KindShotChart:
		return "shotchart.csv"
	}
	return string(k) + ".csv"
}
