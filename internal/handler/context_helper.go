package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/unipath/unipath-api/internal/middleware"
	"github.com/unipath/unipath-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// targetUserID resolves which user a request acts on: the :userId route
// param when present (counselor/admin acting on a student), the caller's own
// ID otherwise.
func targetUserID(c *gin.Context) string {
	if id := c.Param("userId"); id != "" {
		return id
	}
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
