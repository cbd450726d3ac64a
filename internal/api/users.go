package api

import (
	"net/http"

	"questmart/internal/middleware"
	"questmart/internal/model"
	"questmart/internal/service"
	"questmart/pkg/auth"
	"questmart/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us service.UserServiceI
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth) {
	r := &userRoutes{us: us}
	self := middleware.NewAuthorization("user_id")

	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("", r.RegisterUser)
		h.GET("/:user_id", r.GetProfile)
		h.GET("/:user_id/wallet", self.RequireSelf(), r.GetWallet)
	}
}

type RegisterUserRequest struct {
	Name      string   `json:"name" binding:"required"`
	Avatar    string   `json:"avatar"`
	Interests []string `json:"interests"`
}

func (r *userRoutes) RegisterUser(c *gin.Context) {
	log := logger.Logger()

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	telegramUser, ok := auth.CurrentUser(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	user, err := r.us.CreateUser(c.Request.Context(), model.NewUser{
		ID:        telegramUser.UserID(),
		Name:      req.Name,
		Avatar:    req.Avatar,
		Interests: req.Interests,
	})
	if err != nil {
		writeError(c, err, zap.String("user_id", telegramUser.UserID()))
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (r *userRoutes) GetProfile(c *gin.Context) {
	userID := c.Param("user_id")

	profile, err := r.us.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (r *userRoutes) GetWallet(c *gin.Context) {
	userID := c.Param("user_id")

	user, err := r.us.GetUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quest_coins":     user.QuestCoins,
		"lifetime_earned": user.LifetimeEarned,
		"level":           user.Level,
	})
}
