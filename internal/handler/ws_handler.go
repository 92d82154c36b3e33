package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/weiawesome/wes-io-live/live-relay/internal/chat"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	"github.com/weiawesome/wes-io-live/live-relay/internal/hub"
	"github.com/weiawesome/wes-io-live/live-relay/internal/live"
	"github.com/weiawesome/wes-io-live/live-relay/internal/ratelimit"
	"github.com/weiawesome/wes-io-live/live-relay/internal/signaling"
	"github.com/weiawesome/wes-io-live/live-relay/internal/topic"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/log"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the signaling and event WebSockets. Both share one
// registry, so a connection's id is unique across them.
type WSHandler struct {
	reg     *hub.Registry
	router  *signaling.Router
	bus     *topic.Bus
	chat    *chat.Broadcaster
	viewers *live.Tracker
	limiter *ratelimit.Limiter
}

// NewWSHandler creates the handler and registers per-connection cleanup
// with the registry.
func NewWSHandler(reg *hub.Registry, router *signaling.Router, bus *topic.Bus, chatSvc *chat.Broadcaster, viewers *live.Tracker, limiter *ratelimit.Limiter) *WSHandler {
	h := &WSHandler{
		reg:     reg,
		router:  router,
		bus:     bus,
		chat:    chatSvc,
		viewers: viewers,
		limiter: limiter,
	}
	reg.OnDisconnect(h.cleanup)
	return h
}

// cleanup runs inside Registry.Unregister, before it returns.
func (h *WSHandler) cleanup(connID string) {
	ctx := log.WithConn(context.Background(), connID)
	h.router.Disconnect(ctx, connID)
	h.bus.UnsubscribeAll(connID)
	h.viewers.Leave(ctx, connID)
	h.limiter.Forget(connID)
}

// RegisterRoutes registers the WebSocket routes.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	ws := r.Group("/ws")
	{
		ws.GET("/signaling", h.HandleSignaling)
		ws.GET("/events", h.HandleEvents)
	}
}

// HandleSignaling upgrades to the signaling socket.
func (h *WSHandler) HandleSignaling(c *gin.Context) {
	h.serve(c, h.handleSignal)
}

// HandleEvents upgrades to the topic subscription socket.
func (h *WSHandler) HandleEvents(c *gin.Context) {
	h.serve(c, h.handleEvent)
}

// serve blocks for the lifetime of the connection.
func (h *WSHandler) serve(c *gin.Context, handle func(context.Context, *hub.Client, []byte)) {
	l := log.Ctx(c.Request.Context())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.reg, conn)
	h.reg.Register(client)

	ctx := log.WithConn(c.Request.Context(), client.ID)
	connLog := log.Ctx(ctx)
	connLog.Info().Msg("websocket connected")

	go client.WritePump()
	client.ReadPump(func(cl *hub.Client, msg []byte) {
		handle(ctx, cl, msg)
	})

	connLog.Info().Msg("websocket disconnected")
}

func (h *WSHandler) handleSignal(ctx context.Context, client *hub.Client, msg []byte) {
	if err := h.router.Route(ctx, client.ID, msg); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("signaling envelope rejected")
		h.reply(client.ID, domain.NewErrorMessage(errorCode(err), err.Error()))
	}
}

func (h *WSHandler) handleEvent(ctx context.Context, client *hub.Client, msg []byte) {
	var frame domain.ClientFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		h.reply(client.ID, domain.NewErrorMessage(response.CodeBadRequest, "invalid message format"))
		return
	}

	switch frame.Type {
	case domain.FrameSubscribe:
		if !domain.IsKnownTopic(frame.Topic) {
			h.reply(client.ID, domain.NewErrorMessage(response.CodeBadRequest, "unknown topic"))
			return
		}
		h.bus.Subscribe(frame.Topic, client.ID)
		h.reply(client.ID, domain.AckFrame{Type: domain.FrameSubscribed, Topic: frame.Topic})

	case domain.FrameUnsubscribe:
		h.bus.Unsubscribe(frame.Topic, client.ID)
		h.reply(client.ID, domain.AckFrame{Type: domain.FrameUnsubscribed, Topic: frame.Topic})

	case domain.FrameChat:
		h.handleChat(ctx, client.ID, frame)

	case domain.FrameViewerJoin:
		h.viewers.Join(ctx, client.ID)

	case domain.FrameViewerLeave:
		h.viewers.Leave(ctx, client.ID)

	case domain.FramePing:
		h.reply(client.ID, domain.AckFrame{Type: domain.FramePong})

	default:
		h.reply(client.ID, domain.NewErrorMessage(response.CodeBadRequest, "unknown message type"))
	}
}

// handleChat answers rejected submissions with an ERROR chat message sent
// to the submitter only.
func (h *WSHandler) handleChat(ctx context.Context, connID string, frame domain.ClientFrame) {
	if !h.limiter.Allow(connID) {
		h.reply(connID, domain.NewErrorMessage(response.CodeRateLimited, "sending messages too fast"))
		return
	}

	if _, err := h.chat.Submit(ctx, frame.DisplayName, frame.Content); err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("chat message rejected")

		data, err := json.Marshal(h.chat.NewErrorMessage("Message content cannot be empty"))
		if err != nil {
			return
		}
		h.reply(connID, domain.EventFrame{Type: domain.FrameEvent, Topic: domain.TopicChat, Data: data})
	}
}

func (h *WSHandler) reply(connID string, v any) {
	_ = h.reg.SendJSON(connID, v)
}
