package http

import (
	"github.com/enjoysite/friendmap/internal/presence/domain"
	"github.com/enjoysite/friendmap/internal/presence/service"
	"go.uber.org/zap"
)

// NameVerifier checks a display name supplied by a principal that did not
// pass the name gate when it signed in.
type NameVerifier interface {
	VerifyName(name string) error
}

type Handler struct {
	presence *service.PresenceService
	names    NameVerifier
	logger   *zap.Logger
}

func New(presence *service.PresenceService, names NameVerifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		presence: presence,
		names:    names,
		logger:   logger,
	}
}

// PublishPresenceRequest is the body of PUT /presence/me.
type PublishPresenceRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	DisplayName   string   `json:"displayName"`
	Emoji         string   `json:"emoji"`
	StatusMessage string   `json:"statusMessage"`
}

// SnapshotMessage is the frame pushed on the stream and websocket endpoints.
type SnapshotMessage struct {
	Type    string          `json:"type"`
	Records []domain.Record `json:"records"`
}

func newSnapshotMessage(records []domain.Record) SnapshotMessage {
	if records == nil {
		records = []domain.Record{}
	}
	return SnapshotMessage{Type: "snapshot", Records: records}
}
