package stats

import (
	"context"
	"errors"
	"time"

	"github.com/courtsight/shot-evolution/internal/models"
)

// ErrCacheMiss is returned when a cached table or entry does not exist yet.
// Callers interpret it as "must fetch".
var ErrCacheMiss = errors.New("cache miss")

// ErrMalformedResponse is returned when the stats API answers with a body
// that cannot be decoded into the expected result sets. It is skippable at
// the (season, entity) pair level.
var ErrMalformedResponse = errors.New("malformed stats response")

// PlayerInfo identifies a player in the stats API's static directory.
type PlayerInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FromYear int    `json:"from_year"`
	ToYear   int    `json:"to_year"`
}

// Provider is the remote stats client boundary. Implementations return
// rows already normalized into the record schema; any failure is treated
// by the orchestrator as a skippable per-pair failure.
type Provider interface {
	LeagueZones(ctx context.Context, season string) ([]models.ZoneRecord, error)
	PlayerZones(ctx context.Context, season string, player PlayerInfo) ([]models.ZoneRecord, error)
	PlayerShots(ctx context.Context, season string, player PlayerInfo) ([]models.ShotRecord, error)
	ResolvePlayer(ctx context.Context, name string) (PlayerInfo, error)
}

// CacheProvider is a read-through hot cache for provider responses.
// Get returns ErrCacheMiss when the key is absent or expired.
type CacheProvider interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
}
