package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAndRoles(t *testing.T) {
	router := gin.New()
	admin := router.Group("/api/admin", AuthMiddleware(), RequireRole(models.RoleStaff))
	admin.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, "%d", CurrentUserID(c))
	})
	admin.GET("/users", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/me", "", "Authorization", "Bearer nope").Code)

	staff, err := utils.GenerateToken(3, models.RoleStaff, time.Hour)
	require.NoError(t, err)
	w := serve(router, http.MethodGet, "/api/admin/me", "", "Authorization", "Bearer "+staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Body.String())
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/admin/users", "", "Authorization", "Bearer "+staff).Code)

	owner, err := utils.GenerateToken(1, models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodGet, "/api/admin/users", "", "Authorization", "Bearer "+owner).Code)

	anonymous, err := utils.GenerateToken(0, models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/me", "", "Authorization", "Bearer "+anonymous).Code)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.True(t, rl.allow("10.0.0.1", now))
	assert.True(t, rl.allow("10.0.0.1", now.Add(time.Second)))
	assert.False(t, rl.allow("10.0.0.1", now.Add(2*time.Second)))
	assert.True(t, rl.allow("10.0.0.2", now.Add(2*time.Second)))
	assert.True(t, rl.allow("10.0.0.1", now.Add(61*time.Second)))
}

func TestStrictRateLimiter(t *testing.T) {
	router := gin.New()
	router.POST("/api/login", NewStrictRateLimiter(time.Hour, 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/login", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/login", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, http.MethodPost, "/api/login", "").Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		rl.allow(fmt.Sprintf("10.0.1.%d", i), now)
	}
	require.Len(t, rl.ips, 100)

	assert.True(t, rl.allow("10.0.0.9", now.Add(2*time.Minute)))
	assert.Len(t, rl.ips, 1)
}

func TestStrictLimiterForgetsIdleClients(t *testing.T) {
	sl := newStrictLimiter(time.Minute, 2)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.True(t, sl.allow("10.0.0.1", now))
	assert.True(t, sl.allow("10.0.0.1", now))
	assert.False(t, sl.allow("10.0.0.1", now))
	assert.True(t, sl.allow("10.0.0.2", now.Add(time.Minute)))
	assert.Len(t, sl.visitors, 2)

	later := now.Add(3 * time.Minute)
	assert.True(t, sl.allow("10.0.0.3", later))
	assert.Len(t, sl.visitors, 1)
	assert.True(t, sl.allow("10.0.0.1", later))
}

type tokenResolver map[string]string

func (r tokenResolver) Resolve(_ context.Context, accessToken string) (*models.LineProfile, *services.LineUser, error) {
	userID, ok := r[accessToken]
	if !ok {
		return nil, nil, utils.NewAuthError("invalid or expired LIFF access token")
	}
	return &models.LineProfile{LineUserID: userID}, &services.LineUser{UserID: userID}, nil
}

func TestLiffAuthTokenSources(t *testing.T) {
	router := gin.New()
	router.POST("/api/liff/register", LiffAuth(tokenResolver{"good": "U100"}), func(c *gin.Context) {
		profile, _ := LineProfileFrom(c)
		var body struct {
			Phone string `json:"phone"`
		}
		_ = c.ShouldBindJSON(&body)
		c.String(http.StatusOK, profile.LineUserID+":"+body.Phone)
	})

	w := serve(router, http.MethodPost, "/api/liff/register", `{"phone":"0812345678"}`, "Authorization", "Bearer good")
	assert.Equal(t, "U100:0812345678", w.Body.String())

	w = serve(router, http.MethodPost, "/api/liff/register?access_token=good", `{"phone":"0812345678"}`)
	assert.Equal(t, "U100:0812345678", w.Body.String())

	w = serve(router, http.MethodPost, "/api/liff/register", `{"access_token":"good","phone":"0812345678"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "U100:0812345678", w.Body.String())

	w = serve(router, http.MethodPost, "/api/liff/register", `{"access_token":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"authentication"`)
}

func TestSingleFlightPerOrder(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	router := gin.New()
	router.POST("/sales-orders/:name/quick-pay", SingleFlightPerOrder(), func(c *gin.Context) {
		if c.Param("name") == "SO-2026-00001" {
			entered <- struct{}{}
			<-release
		}
		c.Status(http.StatusOK)
	})

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = serve(router, http.MethodPost, "/sales-orders/SO-2026-00001/quick-pay", "")
	}()
	<-entered

	w := serve(router, http.MethodPost, "/sales-orders/SO-2026-00001/quick-pay", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already in progress")
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/sales-orders/SO-2026-00002/quick-pay", "").Code)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, first.Code)

	go func() { <-entered }()
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/sales-orders/SO-2026-00001/quick-pay", "").Code)
}

func TestWebSocketAuthTakesQueryToken(t *testing.T) {
	router := gin.New()
	router.GET("/api/admin/ws", WebSocketAuthMiddleware(), RequireRole(models.RoleStaff), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", CurrentUserID(c))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/ws", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/ws?token=junk", "").Code)

	token, err := utils.GenerateToken(9, models.RoleStaff, time.Hour)
	require.NoError(t, err)
	w := serve(router, http.MethodGet, "/api/admin/ws?token="+token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Body.String())
}
