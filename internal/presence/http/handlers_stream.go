package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/auth"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

const keepAliveInterval = 15 * time.Second

// watchSnapshots runs a store watch for viewer in the background and hands
// snapshots over a channel. Only the newest pending snapshot is kept so a
// slow consumer never blocks the store.
func (h *Handler) watchSnapshots(ctx context.Context, viewer string) (<-chan []domain.Record, <-chan error) {
	snapshots := make(chan []domain.Record, 1)
	errs := make(chan error, 1)

	go func() {
		errs <- h.presence.Watch(ctx, viewer, func(records []domain.Record) {
			select {
			case <-snapshots:
			default:
			}
			select {
			case snapshots <- records:
			case <-ctx.Done():
			}
		})
	}()

	return snapshots, errs
}

// StreamPresence pushes the full collection using Server-Sent Events
func (h *Handler) StreamPresence(c *gin.Context) {
	viewer := auth.PrincipalUID(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	snapshots, errs := h.watchSnapshots(ctx, viewer)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case records := <-snapshots:
			data, _ := json.Marshal(newSnapshotMessage(records))
			fmt.Fprintf(c.Writer, "event: snapshot\ndata: %s\n\n", string(data))
			flusher.Flush()

		case err := <-errs:
			if err != nil {
				h.logger.Warn("presence stream ended", zap.String("uid", viewer), zap.Error(err))
				data, _ := json.Marshal(gin.H{"error": "subscription failed"})
				fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", string(data))
				flusher.Flush()
			}
			return
		}
	}
}
