package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/courtsight/shot-evolution/internal/services"
	"github.com/courtsight/shot-evolution/internal/stats"
	"github.com/courtsight/shot-evolution/pkg/utils"
)

// ShotsHandler serves the aggregate tables the dashboard charts read.
type ShotsHandler struct {
	aggregator *services.Aggregator
}

func NewShotsHandler(aggregator *services.Aggregator) *ShotsHandler {
	return &ShotsHandler{aggregator: aggregator}
}

// GetLeagueZones returns the league-wide zone-share table.
func (h *ShotsHandler) GetLeagueZones(c *gin.Context) {
	shares, err := h.aggregator.LeagueZoneShares()
	if err != nil {
		if errors.Is(err, stats.ErrCacheMiss) {
			utils.SendNotFound(c, "league data not cached yet, trigger a refresh")
			return
		}
		utils.SendInternalError(c, err.Error())
		return
	}
	utils.SendSuccess(c, shares)
}

// ListPlayers returns the players present in the cached player table.
func (h *ShotsHandler) ListPlayers(c *gin.Context) {
	players, err := h.aggregator.TrackedPlayers()
	if err != nil {
		utils.SendInternalError(c, err.Error())
		return
	}
	utils.SendSuccess(c, players)
}

// GetPlayerZones returns one player's zone-share table.
func (h *ShotsHandler) GetPlayerZones(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		utils.SendValidationError(c, "player name is required", "")
		return
	}
	shares, err := h.aggregator.PlayerZoneShares(name)
	if err != nil {
		if errors.Is(err, stats.ErrCacheMiss) {
			utils.SendNotFound(c, "player data not cached yet, trigger a refresh")
			return
		}
		if errors.Is(err, services.ErrPlayerNotCached) {
			utils.SendNotFound(c, err.Error())
			return
		}
		utils.SendInternalError(c, err.Error())
		return
	}
	utils.SendSuccess(c, shares)
}

// GetPlayerShots returns a player's raw shot-chart rows, optionally
// filtered by the season query parameter.
func (h *ShotsHandler) GetPlayerShots(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		utils.SendValidationError(c, "player name is required", "")
		return
	}
	season := c.Query("season")
	shots, err := h.aggregator.PlayerShots(name, season)
	if err != nil {
		if errors.Is(err, stats.ErrCacheMiss) {
			utils.SendNotFound(c, "shot chart not cached yet, trigger a refresh")
			return
		}
		if errors.Is(err, services.ErrPlayerNotCached) {
			utils.SendNotFound(c, err.Error())
			return
		}
		utils.SendInternalError(c, err.Error())
		return
	}
	utils.SendSuccess(c, shots)
}

// GetThreePointTrend returns the 3PT attempt-rate series for the league
// and any players named in the comma-separated players query parameter.
func (h *ShotsHandler) GetThreePointTrend(c *gin.Context) {
	var players []string
	if raw := c.Query("players"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				players = append(players, name)
			}
		}
	}
	points, err := h.aggregator.ThreePointTrend(players)
	if err != nil {
		if errors.Is(err, stats.ErrCacheMiss) {
			utils.SendNotFound(c, "league data not cached yet, trigger a refresh")
			return
		}
		utils.SendInternalError(c, err.Error())
		return
	}
	utils.SendSuccess(c, points)
}
