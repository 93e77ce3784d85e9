package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Tahmied/arterest/internal/models"
	apperrors "github.com/Tahmied/arterest/pkg/errors"
)

// ConversationService resolves and lists two-party conversations.
type ConversationService struct {
	db *gorm.DB
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db}
}

// ConversationSummary is a conversation annotated for the listing API:
// participant profiles populated and the caller's unread count attached.
type ConversationSummary struct {
	models.Conversation
	Participants []models.User `json:"participants"`
	UnreadCount  int64         `json:"unreadCount"`
}

// GetOrCreate returns the unique conversation for the unordered pair
// {userID, participantID}, creating it when absent. The pair is stored
// sorted under a unique index, so concurrent first-time calls from both
// sides resolve to a single row: the loser's insert is a no-op and the
// follow-up read returns the winner's record.
func (s *ConversationService) GetOrCreate(userID, participantID string) (*models.Conversation, error) {
	if participantID == "" {
		return nil, apperrors.BadRequest("Participant ID is required")
	}
	if userID == participantID {
		return nil, apperrors.BadRequest("Cannot start conversation with yourself")
	}

	var participant models.User
	if err := s.db.Select("id").First(&participant, "id = ?", participantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Transient("Failed to resolve participant")
	}

	one, two := models.SortPair(userID, participantID)
	conv := models.Conversation{ParticipantOneID: one, ParticipantTwoID: two}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
		return nil, apperrors.Transient("Failed to create conversation")
	}

	var out models.Conversation
	err := s.db.Preload("ParticipantOne").Preload("ParticipantTwo").
		Where("participant_one_id = ? AND participant_two_id = ?", one, two).
		First(&out).Error
	if err != nil {
		return nil, apperrors.Transient("Failed to load conversation")
	}
	return &out, nil
}

// ListForUser returns the user's conversations, most recent activity first,
// each with the count of messages the user has not read yet. Conversations
// without messages sort by their update time.
func (s *ConversationService) ListForUser(userID string) ([]ConversationSummary, error) {
	var conversations []models.Conversation
	err := s.db.Preload("ParticipantOne").Preload("ParticipantTwo").
		Where("participant_one_id = ? OR participant_two_id = ?", userID, userID).
		Order("COALESCE(last_message_at, updated_at) DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, apperrors.Transient("Failed to fetch conversations")
	}

	unread, err := s.unreadByConversation(conversations, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, ConversationSummary{
			Conversation: conv,
			Participants: conv.Participants(),
			UnreadCount:  unread[conv.ID],
		})
	}
	return summaries, nil
}

func (s *ConversationService) unreadByConversation(conversations []models.Conversation, userID string) (map[string]int64, error) {
	counts := make(map[string]int64, len(conversations))
	if len(conversations) == 0 {
		return counts, nil
	}

	ids := make([]string, 0, len(conversations))
	for _, conv := range conversations {
		ids = append(ids, conv.ID)
	}

	var rows []struct {
		ConversationID string
		Count          int64
	}
	err := s.db.Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS count").
		Where("conversation_id IN ? AND sender_id <> ? AND read = ?", ids, userID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Transient("Failed to count unread messages")
	}

	for _, row := range rows {
		counts[row.ConversationID] = row.Count
	}
	return counts, nil
}
