package web

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"lens/internal/gallery"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// liveMessage is pushed on every state change of the session's gallery
type liveMessage struct {
	Type   string           `json:"type"`
	State  gallery.Snapshot `json:"state"`
	Alerts []string         `json:"alerts,omitempty"`
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin accepts same-host pages and the configured origins
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// live upgrades to a websocket and pushes the session's snapshot on every
// change until the client goes away.
func (h *Handler) live(c *gin.Context) {
	sessionID := currentSession(c).ID
	v := h.registry.attach(sessionID)
	defer h.registry.detach(v)

	if !v.ctrl.Mounted() {
		if err := h.registry.mount(v); err != nil {
			h.logger.Warn("Failed to mount gallery", "error", err, "request_id", c.GetString("request_id"))
		}
	}

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err, "request_id", c.GetString("request_id"))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the read loop only handles control frames and notices the close
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	changes, stop := v.ctrl.Watch()
	defer stop()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	send := func() error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(liveMessage{
			Type:   "state",
			State:  v.ctrl.Snapshot(),
			Alerts: v.alerts.Drain(),
		})
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-changes:
			if err := send(); err != nil {
				h.logger.Debug("Live push failed", "session_id", sessionID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
