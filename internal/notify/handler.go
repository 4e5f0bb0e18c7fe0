package notify

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewHandler(notifier Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{notifier: notifier, logger: logger}
}

type registerTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterToken subscribes the caller's device to presence notifications
func (h *Handler) RegisterToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.notifier.RegisterToken(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, ErrPushDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Warn("failed to register push token", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to register token"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/push/tokens", h.RegisterToken)
}
