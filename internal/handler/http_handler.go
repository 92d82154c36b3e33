package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/weiawesome/wes-io-live/live-relay/internal/chat"
	"github.com/weiawesome/wes-io-live/live-relay/internal/domain"
	"github.com/weiawesome/wes-io-live/live-relay/internal/hub"
	"github.com/weiawesome/wes-io-live/live-relay/internal/live"
	"github.com/weiawesome/wes-io-live/live-relay/internal/ratelimit"
	"github.com/weiawesome/wes-io-live/live-relay/internal/room"
	"github.com/weiawesome/wes-io-live/live-relay/internal/topic"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/log"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/middleware"
	"github.com/weiawesome/wes-io-live/live-relay/pkg/response"
)

// HTTPHandler serves the REST surface of the relay.
type HTTPHandler struct {
	machine        *live.Machine
	chat           *chat.Broadcaster
	reg            *hub.Registry
	dir            *room.Directory
	bus            *topic.Bus
	limiter        *ratelimit.Limiter
	authMiddleware *middleware.AuthMiddleware
	adminRole      string
	iceServers     []webrtc.ICEServer
}

// HTTPDeps groups the collaborators of HTTPHandler.
type HTTPDeps struct {
	Machine        *live.Machine
	Chat           *chat.Broadcaster
	Registry       *hub.Registry
	Directory      *room.Directory
	Bus            *topic.Bus
	Limiter        *ratelimit.Limiter
	AuthMiddleware *middleware.AuthMiddleware
	AdminRole      string
	ICEServers     []webrtc.ICEServer
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(d HTTPDeps) *HTTPHandler {
	return &HTTPHandler{
		machine:        d.Machine,
		chat:           d.Chat,
		reg:            d.Registry,
		dir:            d.Directory,
		bus:            d.Bus,
		limiter:        d.Limiter,
		authMiddleware: d.AuthMiddleware,
		adminRole:      d.AdminRole,
		iceServers:     d.ICEServers,
	}
}

// RegisterRoutes registers all routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	requireAuth := h.authMiddleware.RequireAuth()
	requireAdmin := h.authMiddleware.RequireRole(h.adminRole)

	api := r.Group("/api")
	{
		stream := api.Group("/livestream")
		{
			stream.GET("/status", h.GetStatus)
			stream.POST("/control", requireAuth, requireAdmin, h.ControlStream)
			stream.POST("/viewer/join", h.ViewerJoin)
			stream.POST("/viewer/leave", h.ViewerLeave)
		}

		chats := api.Group("/chat")
		{
			chats.GET("/history", h.GetHistory)
			chats.POST("/messages", h.PostMessage)
			chats.DELETE("/history", requireAuth, requireAdmin, h.ClearHistory)
		}

		api.GET("/ice-servers", h.GetICEServers)
		api.GET("/relay/stats", h.GetStats)
	}
}

// GetStatus returns the live-session snapshot.
func (h *HTTPHandler) GetStatus(c *gin.Context) {
	response.Success(c, h.machine.Status())
}

// ControlStream applies a START/STOP/PAUSE/RESUME action.
func (h *HTTPHandler) ControlStream(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind control request")
		response.BadRequest(c, "invalid request body")
		return
	}
	req.Actor = middleware.GetUserID(c)

	status, err := h.machine.Control(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAction) {
			response.InvalidAction(c, err.Error())
			return
		}
		l.Error().Err(err).Msg("failed to control stream")
		response.InternalError(c, "failed to control stream")
		return
	}

	response.Success(c, status)
}

// ViewerJoin counts an anonymous viewer. It is a no-op while idle.
func (h *HTTPHandler) ViewerJoin(c *gin.Context) {
	h.machine.AddViewer(c.Request.Context())
	response.Success(c, h.machine.Status())
}

// ViewerLeave uncounts an anonymous viewer.
func (h *HTTPHandler) ViewerLeave(c *gin.Context) {
	h.machine.RemoveViewer(c.Request.Context())
	response.Success(c, h.machine.Status())
}

// GetHistory returns buffered chat messages, oldest first.
func (h *HTTPHandler) GetHistory(c *gin.Context) {
	response.Success(c, h.chat.History())
}

// PostMessage submits a chat message. Callers are rate limited by IP.
func (h *HTTPHandler) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.ChatInput
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind chat message")
		response.BadRequest(c, "invalid request body")
		return
	}

	if !h.limiter.Allow("ip:" + c.ClientIP()) {
		response.TooManyRequests(c, "sending messages too fast")
		return
	}

	msg, err := h.chat.Submit(ctx, req.DisplayName, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			response.ValidationError(c, err.Error())
			return
		}
		l.Error().Err(err).Msg("failed to submit chat message")
		response.InternalError(c, "failed to submit chat message")
		return
	}

	response.Created(c, msg)
}

// ClearHistory empties the chat buffer.
func (h *HTTPHandler) ClearHistory(c *gin.Context) {
	msg := h.chat.Clear(c.Request.Context(), middleware.GetUserID(c))
	response.Success(c, msg)
}

// GetICEServers returns the ICE servers browsers should use.
func (h *HTTPHandler) GetICEServers(c *gin.Context) {
	response.Success(c, gin.H{"iceServers": h.iceServers})
}

// GetStats reports relay occupancy.
func (h *HTTPHandler) GetStats(c *gin.Context) {
	response.Success(c, gin.H{
		"connections": h.reg.Count(),
		"rooms":       h.dir.Stats(),
		"topics":      h.bus.Stats(),
		"chatHistory": h.chat.Len(),
		"stream":      h.machine.Status(),
	})
}
