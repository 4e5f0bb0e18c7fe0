package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/auth"
	"github.com/enjoysite/friendmap/internal/auth/domain"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Principal, error)
}

// RequireSession accepts a request when any verifier accepts its token, and
// stores the principal in the context.
func RequireSession(logger *zap.Logger, verifiers ...TokenVerifier) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrMissingToken.Error()})
			c.Abort()
			return
		}

		for _, v := range verifiers {
			if v == nil {
				continue
			}
			p, err := v.Verify(c.Request.Context(), token)
			if err != nil {
				continue
			}
			auth.SetPrincipal(c, p)
			c.Next()
			return
		}

		logger.Debug("rejected bearer token", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrInvalidToken.Error()})
		c.Abort()
	}
}

// extractToken reads the Bearer token from the Authorization header, falling
// back to the token query parameter that EventSource and WebSocket clients use.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
