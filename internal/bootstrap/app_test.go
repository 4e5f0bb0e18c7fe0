package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/config"
	"github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/identity"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)

	return &config.Config{
		Server: config.ServerConfig{Port: "0", AllowedOrigins: []string{"https://map.example"}},
		Redis:  config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"},
		Session: config.SessionConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
		Presence: config.PresenceConfig{
			Backend:          config.StoreRedis,
			AllowedNames:     identity.DefaultMembers,
			PublishPerMinute: 60,
		},
		App: config.AppConfig{ID: "test-app", Environment: "test", LogLevel: "debug", Version: "test"},
	}
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://map.example")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestNewApp_EndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	rr := do(t, app.Router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "https://map.example", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = do(t, app.Router, http.MethodPost, "/api/v1/sessions", "", gin.H{"name": "오스틴"})
	require.Equal(t, http.StatusCreated, rr.Code)
	var sess domain.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))

	rr = do(t, app.Router, http.MethodPost, "/api/v1/sessions", "", gin.H{"name": "Mallory"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, app.Router, http.MethodGet, "/api/v1/presence", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, app.Router, http.MethodPut, "/api/v1/presence/me", sess.Token, gin.H{
		"latitude":      37.5,
		"longitude":     127.02,
		"statusMessage": "coffee",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, app.Router, http.MethodGet, "/api/v1/presence", sess.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Records []struct {
			UID         string `json:"uid"`
			DisplayName string `json:"displayName"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Records, 1)
	assert.Equal(t, sess.UID, list.Records[0].UID)
	assert.Equal(t, "오스틴", list.Records[0].DisplayName)

	rr = do(t, app.Router, http.MethodPost, "/api/v1/push/tokens", sess.Token, gin.H{"token": "abc"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	_, err := NewApp(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestCorsConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)

	some := corsConfig([]string{"https://a.example"})
	assert.False(t, some.AllowAllOrigins)
	assert.True(t, some.AllowOriginFunc("https://a.example"))
	assert.False(t, some.AllowOriginFunc("https://b.example"))
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("production", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	_, err = NewLogger("development", "loud")
	assert.Error(t, err)
}
