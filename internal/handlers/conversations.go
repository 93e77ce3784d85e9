package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Tahmied/arterest/pkg/errors"
)

// GetConversations GET /conversations
func (h *Handler) GetConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversations, err := h.Conversations.ListForUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// CreateConversation POST /conversations
// Returns the existing conversation for the pair when there is one.
func (h *Handler) CreateConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		ParticipantID string `json:"participantId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	conversation, err := h.Conversations.GetOrCreate(userID, req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conversation,
		"participants": conversation.Participants(),
	})
}
