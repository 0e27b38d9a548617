package realtime

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/app/services"
)

// Handler for WebSocket connections
type Handler struct {
	hub        *Hub
	membership services.MembershipStore
	typing     services.TypingService
	presence   services.PresenceService
	logger     zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(
	hub *Hub,
	membership services.MembershipStore,
	typing services.TypingService,
	presence services.PresenceService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		hub:        hub,
		membership: membership,
		typing:     typing,
		presence:   presence,
		logger:     logger,
	}
}

// HandleConnection godoc
// @Summary Establish a WebSocket connection for conversation updates
// @Description Upgrades to a WebSocket carrying dirty signals for the conversation. Clients re-request affected views on each signal.
// @Tags conversations, websocket
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 400 {object} dto.ErrorResponse "Invalid conversation ID"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Not a conversation member"
// @Router /conversations/{id}/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid conversation ID",
		})
		return
	}

	userIDValue, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in context",
		})
		return
	}
	userID, ok := userIDValue.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid user ID format",
		})
		return
	}

	isMember, err := h.membership.IsMember(c, conversationID, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("conversationID", conversationID).
			Int64("userID", userID).
			Msg("Failed to check membership")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check membership",
		})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "User is not a member of this conversation",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("conversationID", conversationID).
			Int64("userID", userID).
			Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:            h.hub,
		conn:           conn,
		send:           make(chan []byte, 256),
		userID:         userID,
		conversationID: conversationID,
		typing:         h.typing,
		presence:       h.presence,
		logger:         h.logger,
	}
	client.hub.register <- client

	h.presence.Connect(c, userID, &conversationID)

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Int64("conversationID", conversationID).
		Int64("userID", userID).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
