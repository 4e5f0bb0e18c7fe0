package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/auth/middleware"
	"github.com/enjoysite/friendmap/internal/auth/service"
	"github.com/enjoysite/friendmap/internal/auth/session"
	"github.com/enjoysite/friendmap/internal/identity"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gate := identity.MustAllowList([]string{identity.Encode("Austin")})
	issuer := session.NewIssuer("secret", time.Hour)
	h := New(service.NewSessionService(gate, issuer, nil, nil), nil)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublic(api)
	protected := api.Group("")
	protected.Use(middleware.RequireSession(nil, issuer))
	h.Register(protected)
	return r
}

func postSession(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateSession(t *testing.T) {
	r := setupRouter(t)

	t.Run("accepted name", func(t *testing.T) {
		rr := postSession(r, `{"name":" Austin "}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		var sess domain.Session
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
		assert.Equal(t, "Austin", sess.DisplayName)
		assert.NotEmpty(t, sess.UID)
		assert.NotEmpty(t, sess.Token)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/me", nil)
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		me := httptest.NewRecorder()
		r.ServeHTTP(me, req)
		require.Equal(t, http.StatusOK, me.Code)

		var body struct {
			Principal domain.Principal `json:"principal"`
		}
		require.NoError(t, json.Unmarshal(me.Body.Bytes(), &body))
		assert.Equal(t, sess.UID, body.Principal.UID)
	})

	t.Run("resume token keeps the principal", func(t *testing.T) {
		rr := postSession(r, `{"name":"Austin"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		var first domain.Session
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))

		rr = postSession(r, `{"name":"Austin","resumeToken":"`+first.Token+`"}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		var second domain.Session
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))
		assert.Equal(t, first.UID, second.UID)

		rr = postSession(r, `{"name":"austin","resumeToken":"`+first.Token+`"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("rejected name issues no token", func(t *testing.T) {
		rr := postSession(r, `{"name":"austin"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.NotContains(t, rr.Body.String(), "token")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := postSession(r, `{`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestListMembers_RequiresSession(t *testing.T) {
	r := setupRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/members", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
