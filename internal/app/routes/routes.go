package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/flexlog/flexchat/internal/app/controllers"
	"github.com/flexlog/flexchat/internal/middleware"
	"github.com/flexlog/flexchat/internal/pkg/realtime"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	messageController *controllers.MessageController,
	typingController *controllers.TypingController,
	presenceController *controllers.PresenceController,
	reactionController *controllers.ReactionController,
	conversationController *controllers.ConversationController,
	wsHandler *realtime.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	v1 := router.Group("/api/v1")

	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		conversations := authenticated.Group("/conversations")
		{
			conversations.GET("/:id/view", conversationController.GetConversationView)
			conversations.GET("/:id/participants", conversationController.GetParticipants)
			conversations.POST("/:id/messages", messageController.SendMessage)
			conversations.GET("/:id/pinned", messageController.GetPinnedMessages)

			conversations.POST("/:id/typing", typingController.SetTyping)
			conversations.DELETE("/:id/typing", typingController.ClearTyping)
			conversations.GET("/:id/typing", typingController.GetTyping)

			conversations.GET("/:id/presence", presenceController.GetConversationPresence)
			conversations.GET("/:id/ws", wsHandler.HandleConnection)
		}

		messages := authenticated.Group("/messages")
		{
			// The retry route takes the provisional uuid, the rest take the
			// server id; gin requires one param name per position.
			messages.POST("/:messageId/retry", messageController.RetryMessage)
			messages.POST("/:messageId/pin", messageController.PinMessage)
			messages.POST("/:messageId/read", messageController.MarkMessageRead)
			messages.DELETE("/:messageId/pin", messageController.UnpinMessage)
			messages.POST("/:messageId/reactions", reactionController.AddReaction)
			messages.GET("/:messageId/reactions", reactionController.GetReactions)
			messages.DELETE("/:messageId/reactions/:emoji", reactionController.RemoveReaction)
		}

		presence := authenticated.Group("/presence")
		{
			presence.GET("", presenceController.GetPresence)
			presence.POST("/heartbeat", presenceController.Heartbeat)
			presence.POST("/disconnect", presenceController.Disconnect)
		}
	}
}
