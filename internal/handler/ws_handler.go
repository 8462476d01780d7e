package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rexmirak/Chat-app/internal/ai"
	"github.com/rexmirak/Chat-app/internal/config"
	"github.com/rexmirak/Chat-app/internal/hub"
	"github.com/rexmirak/Chat-app/internal/presence"
	"github.com/rexmirak/Chat-app/internal/service"
	"github.com/rexmirak/Chat-app/internal/token"
	"github.com/rexmirak/Chat-app/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler owns the persistent-connection handshake and the per-connection
// lifecycle: credential check, registration, pump startup, teardown.
type WSHandler struct {
	presence     *presence.Tracker
	relay        service.Relay
	orchestrator *ai.Orchestrator
	tokens       *token.Manager
	wsCfg        config.WebSocketConfig
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(tracker *presence.Tracker, relay service.Relay, orchestrator *ai.Orchestrator, tokens *token.Manager, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		presence:     tracker,
		relay:        relay,
		orchestrator: orchestrator,
		tokens:       tokens,
		wsCfg:        wsCfg,
	}
}

// RegisterRoutes registers the relay endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and validates the access
// credential before any state is established. Invalid or missing
// credentials close with a policy-violation code; a missing server secret
// closes with an internal-error code. Only after a successful handshake is
// the connection registered.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	tokenStr := c.Query("token")
	if tokenStr == "" {
		closeWith(conn, websocket.ClosePolicyViolation, "Unauthorized")
		return
	}
	if !h.tokens.Configured() {
		closeWith(conn, websocket.CloseInternalServerErr, "Server misconfigured")
		return
	}

	claims, err := h.tokens.Verify(tokenStr)
	if err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "Unauthorized")
		return
	}
	userID := claims.Subject

	client := hub.NewClient(uuid.New().String(), userID, conn, h.wsCfg)

	connLogger := log.L().With().
		Str(log.FieldConnID, client.ID).
		Str(log.FieldUserID, userID).
		Logger()
	// Not derived from the request context: the HTTP handler returns while
	// the pumps keep running, and its cancellation must not abort relay work.
	ctx := log.WithLogger(context.Background(), connLogger)

	// The automated identity is advertised in the presence snapshot; its
	// absence is tolerated so a storage hiccup cannot fail the handshake.
	botUserID := ""
	if bot, err := h.orchestrator.EnsureBotUser(ctx); err == nil {
		botUserID = bot.ID
	} else {
		connLogger.Warn().Err(err).Msg("bot user resolution failed during handshake")
	}

	h.presence.HandleConnect(ctx, userID, client, botUserID)
	connLogger.Debug().Msg("connection established")

	go client.WritePump()
	go h.runReadLoop(ctx, client)
}

// runReadLoop pumps inbound frames through the relay in arrival order and
// tears the connection down when the socket drops.
func (h *WSHandler) runReadLoop(ctx context.Context, client *hub.Client) {
	client.ReadPump(func(c *hub.Client, raw []byte) {
		h.relay.HandleInbound(ctx, c, c.UserID, raw)
	})

	h.presence.HandleDisconnect(ctx, client.UserID, client)
	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldConnID, client.ID).Msg("connection closed")
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}
