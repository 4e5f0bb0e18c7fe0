package auth

import (
	"strings"

	"github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/gin-gonic/gin"
)

const (
	CtxPrincipalUID = "principal_uid"
	CtxDisplayName  = "display_name"
	CtxProvider     = "auth_provider"
)

// SetPrincipal stores an authenticated principal in the Gin context.
func SetPrincipal(c *gin.Context, p *domain.Principal) {
	c.Set(CtxPrincipalUID, p.UID)
	c.Set(CtxDisplayName, p.DisplayName)
	c.Set(CtxProvider, p.Provider)
}

// PrincipalUID extracts the principal id set by the session middleware.
func PrincipalUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxPrincipalUID))
}

// Principal returns the full principal, or nil when the request is anonymous.
func Principal(c *gin.Context) *domain.Principal {
	uid := PrincipalUID(c)
	if uid == "" {
		return nil
	}
	return &domain.Principal{
		UID:         uid,
		DisplayName: c.GetString(CtxDisplayName),
		Provider:    c.GetString(CtxProvider),
	}
}
