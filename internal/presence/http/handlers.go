package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/auth"
	authdomain "github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/presence/domain"
	"github.com/enjoysite/friendmap/internal/presence/service"
)

// PublishMine merge-writes the caller's own presence record
func (h *Handler) PublishMine(c *gin.Context) {
	p := auth.Principal(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req PublishPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingCoordinates.Error()})
		return
	}

	name := p.DisplayName
	if p.Provider != authdomain.ProviderSession {
		// Firebase principals never went through the name gate.
		name = req.DisplayName
		if h.names == nil || h.names.VerifyName(name) != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a registered member"})
			return
		}
	}

	rec, err := h.presence.Publish(c.Request.Context(), service.PublishRequest{
		UID:           p.UID,
		DisplayName:   name,
		Fix:           domain.Fix{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Emoji:         req.Emoji,
		StatusMessage: req.StatusMessage,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCoordinates), errors.Is(err, domain.ErrUnknownEmoji):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		default:
			h.logger.Error("failed to publish presence", zap.String("uid", p.UID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish presence"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// ListPresence returns every record, the caller's first
func (h *Handler) ListPresence(c *gin.Context) {
	records, err := h.presence.Snapshot(c.Request.Context(), auth.PrincipalUID(c))
	if err != nil {
		h.logger.Error("failed to list presence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list presence"})
		return
	}
	if records == nil {
		records = []domain.Record{}
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}
