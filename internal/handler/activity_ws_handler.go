package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ctkuo2438/NUboard/internal/middleware"
	"github.com/ctkuo2438/NUboard/internal/model"
	ws "github.com/ctkuo2438/NUboard/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ActivitySubscriber opens a subscription to the activity channel.
type ActivitySubscriber interface {
	Subscribe(ctx context.Context) *redis.PubSub
}

// ActivityWSHandler streams committed authorization changes to admins.
type ActivityWSHandler struct {
	events   ActivitySubscriber
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewActivityWSHandler creates a new ActivityWSHandler.
func NewActivityWSHandler(events ActivitySubscriber, log zerolog.Logger, allowedOrigins []string) *ActivityWSHandler {
	return &ActivityWSHandler{
		events:   events,
		log:      log.With().Str("component", "activity_ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/v1/admin/activity?token=
// Upgrades to WebSocket and forwards every activity event until the client leaves.
func (h *ActivityWSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int64("user_id", claims.UserID).Logger()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.events.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Activity subscription failed")
		_ = ws.WriteError(conn, "activity stream unavailable")
		return
	}

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady}); err != nil {
		return
	}
	wsLog.Info().Msg("Admin connected to activity stream")

	pongs := make(chan struct{}, 1)
	go h.readLoop(conn, cancel, pongs, wsLog)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()
	messages := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Activity stream closed")
			return
		case <-pongs:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var ev model.ActivityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				wsLog.Warn().Err(err).Msg("Dropping undecodable activity event")
				continue
			}
			if err := ws.WriteTyped(conn, ws.ActivityResponse{Event: ws.EventActivity, Activity: ev}); err != nil {
				return
			}
		}
	}
}

// readLoop owns all reads on conn. Writes stay on the Stream goroutine, so ping
// requests are handed over through pongs.
func (h *ActivityWSHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, pongs chan<- struct{}, log zerolog.Logger) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			select {
			case pongs <- struct{}{}:
			default:
			}
		default:
			log.Debug().Str("action", string(msg.Action)).Msg("Ignoring client action")
		}
	}
}
