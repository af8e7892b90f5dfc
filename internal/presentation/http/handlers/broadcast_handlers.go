package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/compass-coaching/compass-go/internal/infrastructure/messaging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/presentation/http/middleware"
	"github.com/compass-coaching/compass-go/pkg/config"
)

// BroadcastHandlers exposes the auth event channel over websocket so sibling
// tabs and devices hear login/logout events.
type BroadcastHandlers struct {
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	upgrader    websocket.Upgrader
}

// NewBroadcastHandlers creates broadcast handlers with injected dependencies
func NewBroadcastHandlers(broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *BroadcastHandlers {
	return &BroadcastHandlers{
		broadcaster: broadcaster,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens in the CORS layer; the websocket
			// endpoint is bearer-token gated.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetAuthEvents handles GET /api/v1/auth/events - upgrades to a websocket and
// streams the user's auth events until the client disconnects.
func (h *BroadcastHandlers) GetAuthEvents(c *gin.Context) {
	authenticated, ok := middleware.GetAuthUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if h.broadcaster.SubscriberCount(authenticated.ID) >= config.MaxSubscribersPerUser {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many open connections"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Broadcast().Error("Websocket upgrade failed", "error", err.Error(), "userId", authenticated.ID)
		return
	}

	subscriberID, events := h.broadcaster.Subscribe(authenticated.ID)
	h.logger.Broadcast().Info("Auth event stream opened", "userId", authenticated.ID, "subscriberId", subscriberID)

	// Reader goroutine: we never expect client messages, but reading is what
	// surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.writePump(conn, events, done)

	h.broadcaster.Unsubscribe(authenticated.ID, subscriberID)
	conn.Close()
	h.logger.Broadcast().Info("Auth event stream closed", "userId", authenticated.ID, "subscriberId", subscriberID)
}

func (h *BroadcastHandlers) writePump(conn *websocket.Conn, events chan messaging.AuthEvent, done chan struct{}) {
	ticker := time.NewTicker(config.BroadcastPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(config.BroadcastWriteTimeout))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(config.BroadcastWriteTimeout))
			if err := conn.WriteJSON(gin.H{"event": event}); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(config.BroadcastWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
