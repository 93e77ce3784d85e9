package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Tahmied/arterest/internal/services"
	apperrors "github.com/Tahmied/arterest/pkg/errors"
	"github.com/Tahmied/arterest/pkg/logger"
)

// Handler bundles the services behind the HTTP surface. Dependencies are
// injected at startup instead of reached through package globals.
type Handler struct {
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Notifications *services.NotificationService
}

func New(conversations *services.ConversationService, messages *services.MessageService, notifications *services.NotificationService) *Handler {
	return &Handler{
		Conversations: conversations,
		Messages:      messages,
		Notifications: notifications,
	}
}

// currentUserID pulls the authenticated identity set by AuthMiddleware.
func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(apperrors.ErrUnauthorized.Code, gin.H{"error": apperrors.ErrUnauthorized.Message})
		return "", false
	}
	return userID.(string), true
}

// respondError renders typed service failures; anything untyped is logged
// and masked as a 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.FromError(err); ok {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled request error")
	c.JSON(apperrors.ErrInternalServer.Code, gin.H{"error": apperrors.ErrInternalServer.Message})
}
