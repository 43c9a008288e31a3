package colorpages

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/html"
)

// navigateMessage is sent by the page script on every in-page navigation.
type navigateMessage struct {
	Path string `json:"path"`
}

// maxNavigateMessageSize bounds a single navigation message.
const maxNavigateMessageSize = 4096

// serveLive upgrades the request to a WebSocket and answers every navigation message with
// the content region rendered for the requested path. An empty message means that no route
// matched and the content region must be removed. Each message is an independent render.
//
// Once upgraded the connection belongs to this loop: failures are logged here and never
// returned, as the HTTP response can no longer be written.
func (h *Handler) serveLive(w http.ResponseWriter, r *http.Request) error {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("Upgrade live connection", "error", err)
		return nil
	}
	defer ws.Close()

	ws.SetReadLimit(maxNavigateMessageSize)

	h.Metrics.sessionStarted()
	defer h.Metrics.sessionEnded()

	h.logger.Debug("Live session started", "remote_addr", r.RemoteAddr)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Live session closed", "remote_addr", r.RemoteAddr)
			} else {
				h.logger.Warn("Read live message", "remote_addr", r.RemoteAddr, "error", err)
			}
			return nil
		}

		var msg navigateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("Skip malformed live message", "remote_addr", r.RemoteAddr, "error", err)
			continue
		}

		h.Metrics.navigated()

		start := time.Now()
		urlPath := cleanPath(msg.Path)
		res := h.renderContent(r, urlPath)
		h.Metrics.observeRender(res.route.Pattern, res.outcome(), "live", start)

		var buf bytes.Buffer
		if res.node != nil {
			if err := html.Render(&buf, res.node); err != nil {
				h.logger.Error("Render live content", "path", urlPath, "error", err)
				return nil
			}
		}

		if err := ws.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
			h.logger.Warn("Write live message", "remote_addr", r.RemoteAddr, "error", err)
			return nil
		}
	}
}
