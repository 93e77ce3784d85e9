package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Tahmied/arterest/pkg/errors"
)

// GetNotifications GET /notifications?limit&unread
func (h *Handler) GetNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}
	unreadOnly := c.Query("unread") == "true"

	notifications, unreadCount, err := h.Notifications.List(userID, limit, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unreadCount,
	})
}

// GetUnreadCount GET /notifications/unread-count
// Poll fallback for badge counts; served from cache when warm.
func (h *Handler) GetUnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.Notifications.UnreadCount(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// UpdateNotifications PATCH /notifications
// Marks the given notifications read, or all of them with markAllRead.
func (h *Handler) UpdateNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		NotificationIDs []string `json:"notificationIds"`
		MarkAllRead     bool     `json:"markAllRead"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	var err error
	if req.MarkAllRead {
		err = h.Notifications.MarkAllRead(userID)
	} else {
		err = h.Notifications.MarkRead(userID, req.NotificationIDs)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
