package middleware

import (
	"net/http"

	"questmart/pkg/auth"
	"questmart/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Authorization struct {
	param string
}

// NewAuthorization guards routes whose path parameter param names a user.
func NewAuthorization(param string) *Authorization {
	return &Authorization{param: param}
}

// RequireSelf lets a request through only when the authenticated user is the
// user named in the path.
func (a *Authorization) RequireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser, ok := auth.CurrentUser(c)
		if !ok {
			log.Error("telegram user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		target := c.Param(a.param)
		if target != telegramUser.UserID() {
			log.Info("access to another user's record denied",
				zap.String("caller_id", telegramUser.UserID()),
				zap.String("user_id", target))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access to another user is not allowed"})
			return
		}

		c.Next()
	}
}
