package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tahmied/arterest/internal/database"
	apperrors "github.com/Tahmied/arterest/pkg/errors"
	"github.com/Tahmied/arterest/pkg/logger"
	"github.com/Tahmied/arterest/pkg/utils"
)

// Chat sends per user: 30 per minute keeps spam down without getting in the
// way of a normal conversation.
const (
	chatRateLimit  = 30
	chatRateWindow = time.Minute
)

// GetMessages GET /conversations/:id/messages?limit&before
// Marks the requester's unread messages in the conversation as read.
func (h *Handler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversationID := c.Param("id")
	if !utils.IsUUID(conversationID) {
		respondError(c, apperrors.NotFound("Conversation not found"))
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

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before timestamp"})
			return
		}
		before = &parsed
	}

	messages, err := h.Messages.List(conversationID, userID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage POST /conversations/:id/messages
func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversationID := c.Param("id")
	if !utils.IsUUID(conversationID) {
		respondError(c, apperrors.NotFound("Conversation not found"))
		return
	}

	allowed, err := database.CheckRateLimit("chat:"+userID, chatRateLimit, chatRateWindow)
	if err != nil {
		// Redis down: fail open, sends keep working
		logger.Warn().Err(err).Msg("chat rate limit check failed")
	} else if !allowed {
		respondError(c, apperrors.ErrRateLimit)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	message, err := h.Messages.Send(conversationID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}
