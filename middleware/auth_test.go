package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleettrack/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *utils.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := utils.NewJWTService("test-secret")
	auth := NewAuthMiddleware(jwtService)

	router := gin.New()
	router.GET("/protected", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"reporterId": c.GetString("reporterID")})
	})
	router.GET("/admin", auth.RequireAuth(), auth.RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, jwtService
}

func TestRequireAuthValidToken(t *testing.T) {
	router, jwtService := newAuthRouter(t)
	reporterID := primitive.NewObjectID().Hex()

	token, err := jwtService.GenerateToken(reporterID, "device", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), reporterID)
}

func TestRequireAuthTokenInQuery(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	token, err := jwtService.GenerateToken(primitive.NewObjectID().Hex(), "device", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected?token="+token, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthMissingToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthBadToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthWrongSecret(t *testing.T) {
	router, _ := newAuthRouter(t)

	other := utils.NewJWTService("other-secret")
	token, err := other.GenerateToken(primitive.NewObjectID().Hex(), "device", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	router, jwtService := newAuthRouter(t)

	deviceToken, err := jwtService.GenerateToken(primitive.NewObjectID().Hex(), "device", time.Minute)
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateToken(primitive.NewObjectID().Hex(), "admin", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+deviceToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
