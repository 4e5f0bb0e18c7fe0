package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.PUT("/presence/me", h.PublishMine)
	rg.GET("/presence", h.ListPresence)
	rg.GET("/presence/stream", h.StreamPresence)
	rg.GET("/presence/ws", h.WatchPresence)
}
