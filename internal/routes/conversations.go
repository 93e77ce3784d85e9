package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Tahmied/arterest/internal/handlers"
	"github.com/Tahmied/arterest/internal/middleware"
)

func RegisterConversationRoutes(r gin.IRouter, h *handlers.Handler) {
	conversations := r.Group("/conversations")
	conversations.Use(middleware.AuthMiddleware())
	{
		conversations.GET("", h.GetConversations)
		conversations.POST("", h.CreateConversation)
		conversations.GET("/:id/messages", h.GetMessages) // ?limit&before
		conversations.POST("/:id/messages", h.SendMessage)
	}
}
