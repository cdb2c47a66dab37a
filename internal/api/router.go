package api

import (
	"github.com/gin-gonic/gin"

	"github.com/courtsight/shot-evolution/internal/api/handlers"
	"github.com/courtsight/shot-evolution/internal/services"
	"github.com/courtsight/shot-evolution/pkg/config"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, store *services.CacheStore, aggregator *services.Aggregator, fetcher *services.FetchService, cfg *config.Config) {
	shotsHandler := handlers.NewShotsHandler(aggregator)
	refreshHandler := handlers.NewRefreshHandler(fetcher, store, cfg)

	// Chart data endpoints
	group.GET("/league/zones", shotsHandler.GetLeagueZones)
	group.GET("/players", shotsHandler.ListPlayers)
	group.GET("/players/:name/zones", shotsHandler.GetPlayerZones)
	group.GET("/players/:name/shots", shotsHandler.GetPlayerShots)
	group.GET("/trends/three", shotsHandler.GetThreePointTrend)

	// Cache management endpoints
	group.GET("/cache/status", refreshHandler.GetCacheStatus)
	group.POST("/refresh", refreshHandler.TriggerRefresh)
	group.GET("/refresh/:id", refreshHandler.GetRun)
}
