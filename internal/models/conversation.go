package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PreviewLength bounds the denormalized last-message text on a conversation.
const PreviewLength = 100

// Conversation is a two-party message thread. The participant pair is stored
// in sorted order so the composite unique index guarantees at most one
// conversation per unordered pair, no matter which side creates it first.
type Conversation struct {
	ID string `gorm:"primaryKey;type:text" json:"id"`

	ParticipantOneID string `gorm:"uniqueIndex:idx_conversations_pair;type:text;not null" json:"-"`
	ParticipantTwoID string `gorm:"uniqueIndex:idx_conversations_pair;type:text;not null" json:"-"`

	// Denormalized summary of the most recent message
	LastMessageID   *string    `gorm:"type:text" json:"lastMessageId,omitempty"`
	LastMessageText string     `json:"lastMessageText"`
	LastMessageAt   *time.Time `gorm:"index" json:"lastMessageAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	ParticipantOne User `gorm:"foreignKey:ParticipantOneID" json:"-"`
	ParticipantTwo User `gorm:"foreignKey:ParticipantTwoID" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// Participants returns both participant profiles in storage order.
func (c *Conversation) Participants() []User {
	return []User{c.ParticipantOne, c.ParticipantTwo}
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantOneID == userID || c.ParticipantTwoID == userID
}

// OtherParticipantID returns the counterpart of userID in the pair.
func (c *Conversation) OtherParticipantID(userID string) string {
	if c.ParticipantOneID == userID {
		return c.ParticipantTwoID
	}
	return c.ParticipantOneID
}

// SortPair normalizes an unordered participant pair into storage order.
func SortPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
