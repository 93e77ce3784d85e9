package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Tahmied/arterest/internal/handlers"
	"github.com/Tahmied/arterest/internal/middleware"
)

func RegisterNotificationRoutes(r gin.IRouter, h *handlers.Handler) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", h.GetNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PATCH("", h.UpdateNotifications)
	}
}
