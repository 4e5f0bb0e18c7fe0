package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enjoysite/friendmap/internal/auth"
	"github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/auth/session"
)

type staticVerifier struct {
	token string
	p     *domain.Principal
}

func (v staticVerifier) Verify(_ context.Context, token string) (*domain.Principal, error) {
	if token != v.token {
		return nil, errors.New("nope")
	}
	return v.p, nil
}

func newRouter(verifiers ...TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireSession(nil, verifiers...), func(c *gin.Context) {
		c.JSON(http.StatusOK, auth.Principal(c))
	})
	return r
}

func TestRequireSession(t *testing.T) {
	issuer := session.NewIssuer("secret", time.Hour)
	token, _, err := issuer.Sign("uid-1", "오스틴")
	require.NoError(t, err)

	fb := staticVerifier{token: "firebase-id-token", p: &domain.Principal{UID: "fb-uid", Provider: domain.ProviderFirebase}}
	router := newRouter(issuer, fb)

	t.Run("missing token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("session token in header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var p domain.Principal
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
		assert.Equal(t, "uid-1", p.UID)
		assert.Equal(t, "오스틴", p.DisplayName)
		assert.Equal(t, domain.ProviderSession, p.Provider)
	})

	t.Run("firebase token in query", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me?token=firebase-id-token", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var p domain.Principal
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
		assert.Equal(t, "fb-uid", p.UID)
		assert.Equal(t, domain.ProviderFirebase, p.Provider)
	})
}
