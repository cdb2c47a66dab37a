package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/courtsight/shot-evolution/internal/models"
	"github.com/courtsight/shot-evolution/internal/services"
	"github.com/courtsight/shot-evolution/pkg/config"
	"github.com/courtsight/shot-evolution/pkg/utils"
)

// RefreshHandler exposes cache status and the refresh trigger.
type RefreshHandler struct {
	fetcher *services.FetchService
	store   *services.CacheStore
	cfg     *config.Config
}

func NewRefreshHandler(fetcher *services.FetchService, store *services.CacheStore, cfg *config.Config) *RefreshHandler {
	return &RefreshHandler{fetcher: fetcher, store: store, cfg: cfg}
}

type refreshRequest struct {
	Kinds   []string `json:"kinds"`
	Seasons []string `json:"seasons"`
	Hard    bool     `json:"hard"`
}

// TriggerRefresh launches a background fetch run. Without a body it
// refreshes every kind over the configured season range incrementally.
func (h *RefreshHandler) TriggerRefresh(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "invalid refresh request", err.Error())
			return
		}
	}

	kinds := models.AllKinds
	if len(req.Kinds) > 0 {
		kinds = make([]models.RecordKind, 0, len(req.Kinds))
		for _, raw := range req.Kinds {
			kind, err := models.ParseRecordKind(raw)
			if err != nil {
				utils.SendValidationError(c, "invalid record kind", err.Error())
				return
			}
			kinds = append(kinds, kind)
		}
	}

	seasons := req.Seasons
	if len(seasons) == 0 {
		seasons = models.SeasonRange(h.cfg.SeasonStart, h.cfg.SeasonEnd)
	}

	status, err := h.fetcher.Start(services.FetchRequest{
		Kinds:   kinds,
		Seasons: seasons,
		Players: h.cfg.TrackedPlayers,
		Hard:    req.Hard,
	})
	if err != nil {
		if errors.Is(err, services.ErrFetchInProgress) {
			utils.SendConflict(c, err.Error())
			return
		}
		utils.SendValidationError(c, "could not start refresh", err.Error())
		return
	}
	utils.SendAccepted(c, status)
}

// GetRun reports the progress of a fetch run by ID.
func (h *RefreshHandler) GetRun(c *gin.Context) {
	status, ok := h.fetcher.RunStatus(c.Param("id"))
	if !ok {
		utils.SendNotFound(c, "unknown fetch run")
		return
	}
	utils.SendSuccess(c, status)
}

// GetCacheStatus reports what every cache table currently covers.
func (h *RefreshHandler) GetCacheStatus(c *gin.Context) {
	statuses := make([]services.CacheStatus, 0, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		status, err := h.store.Status(kind)
		if err != nil {
			utils.SendInternalError(c, err.Error())
			return
		}
		statuses = append(statuses, status)
	}
	utils.SendSuccess(c, statuses)
}
