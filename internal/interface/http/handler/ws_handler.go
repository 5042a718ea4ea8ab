package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/freelance-escrow/internal/http/middleware"
	"github.com/ignatzorin/freelance-escrow/internal/interface/http/response"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/ws"
)

type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.AccessTokenParser
	upgrader websocket.Upgrader
}

// NewWSHandler accepts browser connections from allowedOrigins only; "*" allows any.
func NewWSHandler(hub *ws.Hub, tokens middleware.AccessTokenParser, allowedOrigins []string) *WSHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// Handle serves GET /api/ws?token=... Browsers cannot set headers on the
// upgrade request, so the access token travels in the query.
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access token required")
		return
	}

	userID, _, err := h.tokens.ParseAccess(rawToken)
	if err != nil || userID == uuid.Nil {
		response.Unauthorized(c, "invalid access token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.FromContext(c.Request.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}

	ws.NewClient(conn, h.hub, userID).Run()
}
