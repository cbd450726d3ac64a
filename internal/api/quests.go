package api

import (
	"errors"
	"net/http"
	"strconv"

	"questmart/internal/middleware"
	"questmart/internal/model"
	"questmart/internal/service"
	"questmart/pkg/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const featuredQuests = 3

type questRoutes struct {
	qs      service.QuestServiceI
	catalog *service.QuestCatalog
	proj    *service.Projector
}

func NewQuestRoutes(
	handler *gin.RouterGroup,
	qs service.QuestServiceI,
	catalog *service.QuestCatalog,
	proj *service.Projector,
	a *auth.TelegramAuth,
) {
	r := &questRoutes{qs: qs, catalog: catalog, proj: proj}
	self := middleware.NewAuthorization("user_id")

	quests := handler.Group("/quests")
	{
		quests.GET("", r.ListQuests)
		quests.GET("/featured", r.FeaturedQuests)
		quests.GET("/:quest_id", r.GetQuest)
	}

	user := handler.Group("/users/:user_id/quests")
	user.Use(a.TelegramAuthMiddleware())
	{
		user.GET("", r.ListUserQuests)
		user.GET("/completed", r.CompletedQuests)

		mutating := user.Group("/:quest_id")
		mutating.Use(self.RequireSelf())
		{
			mutating.POST("/start", r.StartQuest)
			mutating.PATCH("/progress", r.AdvanceQuest)
			mutating.POST("/complete", r.CompleteQuest)
		}
	}
}

// parseListQuery reads type, difficulty, search, sort and order.
func parseListQuery(c *gin.Context) (model.QuestFilter, model.QuestSort, error) {
	var (
		filter model.QuestFilter
		sort   model.QuestSort
	)

	if v := c.Query("type"); v != "" && v != "all" {
		t, err := model.ParseQuestType(v)
		if err != nil {
			return filter, sort, err
		}
		filter.Type = &t
	}
	if v := c.Query("difficulty"); v != "" {
		d, err := model.ParseDifficulty(v)
		if err != nil {
			return filter, sort, err
		}
		filter.Difficulty = &d
	}
	filter.Search = c.Query("search")

	field, err := model.ParseQuestSortField(c.Query("sort"))
	if err != nil {
		return filter, sort, err
	}
	sort.Field = field
	sort.Direction = model.Asc
	if v := c.Query("order"); v != "" {
		d, err := model.ParseDirection(v)
		if err != nil {
			return filter, sort, err
		}
		sort.Direction = d
	}

	return filter, sort, nil
}

func (r *questRoutes) ListQuests(c *gin.Context) {
	filter, sort, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, r.catalog.List(filter, sort))
}

func (r *questRoutes) FeaturedQuests(c *gin.Context) {
	c.JSON(http.StatusOK, r.catalog.Featured(featuredQuests))
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	quest, err := r.catalog.Get(c.Param("quest_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, quest)
}

func (r *questRoutes) ListUserQuests(c *gin.Context) {
	userID := c.Param("user_id")

	filter, sort, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quests, err := r.proj.UserQuests(c.Request.Context(), userID, filter, sort)
	if err != nil {
		writeError(c, err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, quests)
}

func (r *questRoutes) CompletedQuests(c *gin.Context) {
	userID := c.Param("user_id")

	quests, err := r.proj.CompletedQuests(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, quests)
}

func (r *questRoutes) StartQuest(c *gin.Context) {
	userID := c.Param("user_id")
	questID := c.Param("quest_id")

	progress, err := r.qs.StartQuest(c.Request.Context(), userID, questID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyStarted) && progress != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":    err.Error(),
				"progress": progress,
			})
			return
		}
		writeError(c, err, zap.String("user_id", userID), zap.String("quest_id", questID))
		return
	}

	c.JSON(http.StatusCreated, progress)
}

type AdvanceQuestRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

func (r *questRoutes) AdvanceQuest(c *gin.Context) {
	userID := c.Param("user_id")
	questID := c.Param("quest_id")

	var req AdvanceQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	progress, err := r.qs.AdvanceQuest(c.Request.Context(), userID, questID, *req.Progress)
	if err != nil {
		writeError(c, err, zap.String("user_id", userID), zap.String("quest_id", questID))
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (r *questRoutes) CompleteQuest(c *gin.Context) {
	userID := c.Param("user_id")
	questID := c.Param("quest_id")

	res, err := r.qs.CompleteQuest(c.Request.Context(), userID, questID)
	if err != nil {
		writeError(c, err, zap.String("user_id", userID), zap.String("quest_id", questID))
		return
	}

	c.JSON(http.StatusOK, res)
}

func parseLimit(c *gin.Context, def int) (int, error) {
	v := c.Query("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}
