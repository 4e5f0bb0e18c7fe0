package http

import (
	"github.com/enjoysite/friendmap/internal/auth/service"
	"go.uber.org/zap"
)

type Handler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

func New(sessions *service.SessionService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		logger:   logger,
	}
}

type createSessionRequest struct {
	Name        string `json:"name"`
	ResumeToken string `json:"resumeToken,omitempty"`
}
