package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/runs/:id", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/runs/run-1", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthGateEnforcesRoles(t *testing.T) {
	auth := service.NewAuthService("secret")
	gate := NewAuthGate(auth, true)
	r := newRouter(gate.Authenticate(), gate.Require(models.RoleAdmin, models.RoleScheduler))

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

	viewer, err := auth.IssueToken("u1", models.RoleViewer, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, viewer).Code)

	scheduler, err := auth.IssueToken("u2", models.RoleScheduler, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(r, scheduler).Code)
}

func TestAuthGateDisabledSkipsChecks(t *testing.T) {
	gate := NewAuthGate(nil, true)
	assert.False(t, gate.Enabled())

	r := newRouter(gate.Authenticate(), gate.Require(models.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, do(r, "").Code)
}

func TestOptionalJWTAttachesClaims(t *testing.T) {
	auth := service.NewAuthService("secret")
	token, err := auth.IssueToken("u1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var seen *models.JWTClaims
	r := newRouter(OptionalJWT(auth), func(c *gin.Context) {
		seen, _ = CurrentUser(c)
		c.Next()
	})

	assert.Equal(t, http.StatusNoContent, do(r, "bad").Code)
	assert.Nil(t, seen)
	do(r, token)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))
	do(r, "")

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestResponseMetaCollectsValues(t *testing.T) {
	var meta map[string]interface{}
	r := newRouter(WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "feasible", false)
		meta = ExtractMeta(c)
		c.Next()
	})
	do(r, "")

	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, false, meta["feasible"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(Audit(zap.New(core), "schedule.export"))
	do(r, "")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit", entry.Message)
	assert.Equal(t, "run-1", entry.ContextMap()["resource_id"])
	assert.Equal(t, "schedule.export", entry.ContextMap()["action"])
}
