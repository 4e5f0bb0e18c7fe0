package http

import "github.com/gin-gonic/gin"

// RegisterPublic registers routes reachable without a session.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.CreateSession)
}

// Register registers routes that need a session.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/sessions/me", h.GetMe)
	rg.GET("/members", h.ListMembers)
}
