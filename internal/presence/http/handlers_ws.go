package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WatchPresence upgrades to a websocket and pushes a snapshot frame after
// every change to the collection.
func (h *Handler) WatchPresence(c *gin.Context) {
	viewer := auth.PrincipalUID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go readPump(conn, cancel)

	snapshots, errs := h.watchSnapshots(ctx, viewer)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case records := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newSnapshotMessage(records)); err != nil {
				return
			}

		case err := <-errs:
			code, msg := websocket.CloseNormalClosure, ""
			if err != nil {
				h.logger.Warn("presence watch ended", zap.String("uid", viewer), zap.Error(err))
				code, msg = websocket.CloseInternalServerErr, "subscription failed"
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, msg))
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the peer so pongs and close frames are processed, and
// cancels the watch when the connection goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
