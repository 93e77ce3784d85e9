package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Tahmied/arterest/internal/models"
	"github.com/Tahmied/arterest/internal/realtime"
	apperrors "github.com/Tahmied/arterest/pkg/errors"
	"github.com/Tahmied/arterest/pkg/logger"
	"github.com/Tahmied/arterest/pkg/utils"
)

// DefaultMessageLimit applies when the listing caller passes no limit.
const DefaultMessageLimit = 50

// MaxMessageLimit caps a single page of messages.
const MaxMessageLimit = 200

// MessageService appends to and reads from conversation threads, keeping the
// denormalized conversation summary in step and fanning persisted messages
// out to live connections.
type MessageService struct {
	db          *gorm.DB
	broadcaster realtime.Broadcaster
}

func NewMessageService(db *gorm.DB, broadcaster realtime.Broadcaster) *MessageService {
	return &MessageService{db: db, broadcaster: broadcaster}
}

func (s *MessageService) conversationFor(conversationID, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Conversation not found")
		}
		return nil, apperrors.Transient("Failed to load conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.Forbidden("Not a participant of this conversation")
	}
	return &conv, nil
}

// List returns up to limit messages oldest-first, fetched from the tail of
// the thread. A before timestamp pages further back. As a side effect every
// unread message not authored by the requester is marked read; the update is
// set-based and safe to repeat.
func (s *MessageService) List(conversationID, requesterID string, limit int, before *time.Time) ([]models.Message, error) {
	if _, err := s.conversationFor(conversationID, requesterID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	query := s.db.Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []models.Message
	err := query.Order("created_at DESC").Limit(limit).Preload("Sender").Find(&messages).Error
	if err != nil {
		return nil, apperrors.Transient("Failed to fetch messages")
	}

	// Newest-first from the index, reversed for the response
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	err = s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, requesterID, false).
		Update("read", true).Error
	if err != nil {
		// Read-state is recovered on the next listing; the page itself is valid.
		logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to mark messages read")
	}

	return messages, nil
}

// Send validates and persists a message, updates the conversation summary in
// the same transaction, then fans out two events: the full message to the
// conversation room and a notification envelope to the other participant's
// personal channel. Fan-out is best-effort and never fails the send.
func (s *MessageService) Send(conversationID, senderID, content string) (*models.Message, error) {
	conv, err := s.conversationFor(conversationID, senderID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.BadRequest("Message content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, apperrors.BadRequest("Message content exceeds maximum length")
	}
	content = strings.TrimSpace(utils.SanitizeMessageContent(content))
	if content == "" {
		return nil, apperrors.BadRequest("Message content is required")
	}
	// Escaping expands entities, so the stored form needs its own bound check
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, apperrors.BadRequest("Message content exceeds maximum length")
	}

	msg := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	// Message insert happens before the summary update; the transaction
	// guarantees a summary is never visible without its message.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{
				"last_message_id":   msg.ID,
				"last_message_text": utils.TruncatePreview(content, models.PreviewLength),
				"last_message_at":   msg.CreatedAt,
			}).Error
	})
	if err != nil {
		return nil, apperrors.Transient("Failed to send message")
	}

	if err := s.db.Preload("Sender").First(&msg, "id = ?", msg.ID).Error; err != nil {
		logger.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to populate sender for fan-out")
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(realtime.ConversationChannel(conversationID), realtime.EventNewMessage, msg)
		s.broadcaster.Publish(
			realtime.UserChannel(conv.OtherParticipantID(senderID)),
			realtime.EventNewMessageNotification,
			map[string]interface{}{
				"conversationId": conversationID,
				"message":        msg,
			},
		)
	}

	return &msg, nil
}
