package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/auth"
	"github.com/enjoysite/friendmap/internal/identity"
)

// CreateSession runs the name check and issues an anonymous session, resuming
// the caller's earlier principal when it presents its last token
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), req.Name, req.ResumeToken)
	if err != nil {
		if errors.Is(err, identity.ErrNameRejected) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to start session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// GetMe returns the caller's principal
func (h *Handler) GetMe(c *gin.Context) {
	p := auth.Principal(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"principal": p})
}

// ListMembers returns the member directory
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.sessions.Members(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list members", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}
