package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/unipath/unipath-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) { c.Set(ContextUserKey, claims) })
	}
	r.GET("/users/:userId/profile", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func getStatus(r *gin.Engine, target string) int {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Code
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "counselor-1", Role: models.RoleCounselor}
	r := rbacRouter(claims, string(models.RoleAdmin), string(models.RoleCounselor), "SELF")
	assert.Equal(t, http.StatusOK, getStatus(r, "/users/student-9/profile"))
}

func TestRBACAllowsSelf(t *testing.T) {
	claims := &models.JWTClaims{UserID: "student-9", Role: models.RoleStudent}
	r := rbacRouter(claims, string(models.RoleAdmin), "SELF")
	assert.Equal(t, http.StatusOK, getStatus(r, "/users/student-9/profile"))
}

func TestRBACBlocksOtherUser(t *testing.T) {
	claims := &models.JWTClaims{UserID: "student-9", Role: models.RoleStudent}
	r := rbacRouter(claims, string(models.RoleAdmin), "SELF")
	assert.Equal(t, http.StatusForbidden, getStatus(r, "/users/student-2/profile"))
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	r := rbacRouter(nil, string(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, getStatus(r, "/users/student-9/profile"))
}

func TestRequireRolesBlocksStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "student-9", Role: models.RoleStudent})
	})
	r.POST("/universities", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/universities", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
