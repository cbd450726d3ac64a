package api

import (
	"net/http"

	"questmart/internal/model"
	"questmart/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultLeaderboardLimit = 100

type leaderboardRoutes struct {
	ranker *service.LeaderboardRanker
}

func NewLeaderboardRoutes(handler *gin.RouterGroup, ranker *service.LeaderboardRanker) {
	r := &leaderboardRoutes{ranker: ranker}
	handler.GET("/leaderboard", r.GetLeaderboard)
}

func (r *leaderboardRoutes) GetLeaderboard(c *gin.Context) {
	metric, err := model.ParseMetric(c.DefaultQuery("metric", string(model.MetricQuestCoins)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	direction, err := model.ParseDirection(c.DefaultQuery("direction", string(model.Desc)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := parseLimit(c, defaultLeaderboardLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := r.ranker.Top(c.Request.Context(), metric, direction, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metric":    metric,
		"direction": direction,
		"entries":   entries,
	})
}
